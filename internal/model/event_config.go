package model

import "time"

// EventConfig is the single-row table holding dashboard defaults
// for bulk table creation. It is seeded with 10 tables of 8 seats
// when missing.
type EventConfig struct {
	ID            uint64    // event_config.id
	TotalTables   uint32    // event_config.total_tables
	SeatsPerTable uint32    // event_config.seats_per_table
	UpdatedAt     time.Time // event_config.updated_at
}
