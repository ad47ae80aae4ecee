package repository

import (
	"context"
	"database/sql"

	"github.com/jmorales/wedding-pass-api/internal/model"
)

// EventConfigRepo manages the single-row event_config table that
// holds dashboard defaults for bulk table creation.
type EventConfigRepo struct {
	db *sql.DB
}

// NewEventConfigRepo returns an EventConfigRepo bound to the database.
func NewEventConfigRepo(db *sql.DB) *EventConfigRepo { return &EventConfigRepo{db: db} }

// Get returns the config row, seeding the default of 10 tables of 8
// seats when none exists yet.
func (r *EventConfigRepo) Get(ctx context.Context) (model.EventConfig, error) {
	cfg, err := r.get(ctx)
	if err == sql.ErrNoRows {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO event_config (total_tables, seats_per_table) VALUES (10, 8)`); err != nil {
			// A concurrent request may have seeded it first.
			if !isDuplicateKey(err) {
				return model.EventConfig{}, err
			}
		}
		return r.get(ctx)
	}
	return cfg, err
}

func (r *EventConfigRepo) get(ctx context.Context) (model.EventConfig, error) {
	var cfg model.EventConfig
	err := r.db.QueryRowContext(ctx,
		`SELECT id, total_tables, seats_per_table, updated_at FROM event_config ORDER BY id LIMIT 1`).
		Scan(&cfg.ID, &cfg.TotalTables, &cfg.SeatsPerTable, &cfg.UpdatedAt)
	return cfg, err
}

// Update rewrites the defaults, creating the row if missing.
func (r *EventConfigRepo) Update(ctx context.Context, totalTables, seatsPerTable uint32) (model.EventConfig, error) {
	cur, err := r.Get(ctx)
	if err != nil {
		return model.EventConfig{}, err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE event_config SET total_tables = ?, seats_per_table = ? WHERE id = ?`,
		totalTables, seatsPerTable, cur.ID); err != nil {
		return model.EventConfig{}, err
	}
	return r.get(ctx)
}
