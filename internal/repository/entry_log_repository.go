package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmorales/wedding-pass-api/internal/model"
)

// EntryLogRepo provides access to the append-only entry_logs audit
// trail. Rows are only ever written in the same transaction that
// increments the pass's entered_count, so the per-pass sum of
// count_entering always equals that counter.
type EntryLogRepo struct {
	db *sql.DB
}

// NewEntryLogRepo returns an EntryLogRepo bound to the database.
func NewEntryLogRepo(db *sql.DB) *EntryLogRepo { return &EntryLogRepo{db: db} }

// InsertTx appends one audit row. The unique index on request_id
// is what makes check-in replays detectable: a duplicate key here
// means the identical request was already applied.
func (r *EntryLogRepo) InsertTx(ctx context.Context, tx *sql.Tx, rec *model.EntryLog) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO entry_logs (guest_pass_id, count_entering, request_id, recorded_by)
		 VALUES (?, ?, ?, ?)`,
		rec.GuestPassID, rec.CountEntering, rec.RequestID, rec.RecordedBy)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		`SELECT recorded_at FROM entry_logs WHERE id = ?`, rec.ID).Scan(&rec.RecordedAt)
}

// GetByRequestID returns the audit row for an idempotency key, or
// sql.ErrNoRows when the request was never applied.
func (r *EntryLogRepo) GetByRequestID(ctx context.Context, requestID string) (model.EntryLog, error) {
	return r.getByRequestID(ctx, r.db.QueryRowContext, requestID)
}

// GetByRequestIDTx is GetByRequestID within a transaction.
func (r *EntryLogRepo) GetByRequestIDTx(ctx context.Context, tx *sql.Tx, requestID string) (model.EntryLog, error) {
	return r.getByRequestID(ctx, tx.QueryRowContext, requestID)
}

func (r *EntryLogRepo) getByRequestID(ctx context.Context, queryRow func(context.Context, string, ...any) *sql.Row, requestID string) (model.EntryLog, error) {
	var rec model.EntryLog
	err := queryRow(ctx,
		`SELECT id, guest_pass_id, count_entering, request_id, recorded_by, recorded_at
		 FROM entry_logs WHERE request_id = ?`, requestID).
		Scan(&rec.ID, &rec.GuestPassID, &rec.CountEntering, &rec.RequestID, &rec.RecordedBy, &rec.RecordedAt)
	return rec, err
}

// DeleteByPassTx removes all audit rows of a pass (part of pass
// deletion cleanup) and returns how many were removed.
func (r *EntryLogRepo) DeleteByPassTx(ctx context.Context, tx *sql.Tx, passID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM entry_logs WHERE guest_pass_id = ?`, passID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumForPass returns the cumulative count_entering recorded for a
// pass. Outside of tests this should always equal the pass's
// entered_count.
func (r *EntryLogRepo) SumForPass(ctx context.Context, passID uint64) (uint32, error) {
	var sum sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(count_entering) FROM entry_logs WHERE guest_pass_id = ?`, passID).Scan(&sum)
	if err != nil {
		return 0, err
	}
	if !sum.Valid {
		return 0, nil
	}
	return uint32(sum.Int64), nil
}

// EntryDetail is one row of the scanner's recent-entries list,
// joined with the pass it belongs to.
type EntryDetail struct {
	ID            uint64    `json:"id"`
	GuestPassID   uint64    `json:"guest_pass_id"`
	FamilyName    string    `json:"family_name"`
	AccessCode    string    `json:"access_code"`
	CountEntering uint32    `json:"count_entering"`
	RecordedBy    uint64    `json:"recorded_by"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// ListRecent returns the latest entries, newest first, joined with
// pass names for the check-in station's activity feed.
func (r *EntryLogRepo) ListRecent(ctx context.Context, limit int) ([]EntryDetail, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.guest_pass_id, p.family_name, p.access_code,
		        e.count_entering, e.recorded_by, e.recorded_at
		 FROM entry_logs e
		 JOIN guest_passes p ON p.id = e.guest_pass_id
		 ORDER BY e.recorded_at DESC, e.id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]EntryDetail, 0)
	for rows.Next() {
		var d EntryDetail
		if err := rows.Scan(&d.ID, &d.GuestPassID, &d.FamilyName, &d.AccessCode,
			&d.CountEntering, &d.RecordedBy, &d.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
