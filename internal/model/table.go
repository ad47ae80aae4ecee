package model

import "time"

// Table represents one physical seating unit at the reception.
// Occupancy is tracked denormalized in occupied_seats and is only
// ever mutated through the seat-ledger statements in the
// repository layer, which keep it within [0, capacity] and equal
// to the sum of party sizes of the passes assigned to the table.
//
// Fields:
//  ID            – primary key identifier.
//  TableNumber   – unique display number shown on the invitation.
//  Capacity      – number of seats at the table.
//  OccupiedSeats – seats currently reserved by guest passes.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Table struct {
	ID            uint64    // tables.id
	TableNumber   uint32    // tables.table_number
	Capacity      uint32    // tables.capacity
	OccupiedSeats uint32    // tables.occupied_seats
	CreatedAt     time.Time // tables.created_at
	UpdatedAt     time.Time // tables.updated_at
}

// SeatsAvailable returns the number of free seats at the table.
func (t Table) SeatsAvailable() uint32 {
	if t.OccupiedSeats >= t.Capacity {
		return 0
	}
	return t.Capacity - t.OccupiedSeats
}
