package repository

import (
	"context"
	"database/sql"

	"github.com/jmorales/wedding-pass-api/internal/model"
)

// GuestPassRepo provides data access to guest_passes and the
// invitation_downloads log. Multi-step flows (create with seat
// reservation, edit with transfer, delete with cleanup) are
// orchestrated by the service layer inside one transaction; this
// repository exposes the Tx primitives those flows are built from.
type GuestPassRepo struct {
	db *sql.DB
}

// NewGuestPassRepo returns a GuestPassRepo bound to the database.
func NewGuestPassRepo(db *sql.DB) *GuestPassRepo { return &GuestPassRepo{db: db} }

// DB exposes the underlying handle for transaction management.
func (r *GuestPassRepo) DB() *sql.DB { return r.db }

const passColumns = `id, access_code, family_name, party_size, entered_count,
	table_id, phone, confirmed, confirmed_at, completed, created_by, created_at, updated_at`

func scanPass(row interface{ Scan(...any) error }) (model.GuestPass, error) {
	var (
		p           model.GuestPass
		tableID     sql.NullInt64
		phone       sql.NullString
		confirmedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.AccessCode, &p.FamilyName, &p.PartySize, &p.EnteredCount,
		&tableID, &phone, &p.Confirmed, &confirmedAt, &p.Completed, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.GuestPass{}, err
	}
	if tableID.Valid {
		tid := uint64(tableID.Int64)
		p.TableID = &tid
	}
	if phone.Valid {
		ph := phone.String
		p.Phone = &ph
	}
	if confirmedAt.Valid {
		at := confirmedAt.Time
		p.ConfirmedAt = &at
	}
	return p, nil
}

// CodeExistsTx reports whether an access code is already taken.
// Runs inside the creation transaction; the unique index on
// access_code is the backstop for a concurrent insert of the same
// code between this check and InsertTx.
func (r *GuestPassRepo) CodeExistsTx(ctx context.Context, tx *sql.Tx, code string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM guest_passes WHERE access_code = ? LIMIT 1`, code).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertTx persists a new pass and populates its generated ID and
// timestamps. A duplicate access code surfaces as ErrConflict so
// the caller can retry with a fresh code.
func (r *GuestPassRepo) InsertTx(ctx context.Context, tx *sql.Tx, p *model.GuestPass) error {
	var tableID interface{}
	if p.TableID != nil {
		tableID = *p.TableID
	}
	var phone interface{}
	if p.Phone != nil {
		phone = *p.Phone
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO guest_passes (access_code, family_name, party_size, table_id, phone, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.AccessCode, p.FamilyName, p.PartySize, tableID, phone, p.CreatedBy)
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
	p.ID = uint64(id)
	stored, err := scanPass(tx.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM guest_passes WHERE id = ?`, p.ID))
	if err != nil {
		return err
	}
	*p = stored
	return nil
}

// GetByID returns a pass by primary key or ErrPassNotFound.
func (r *GuestPassRepo) GetByID(ctx context.Context, id uint64) (model.GuestPass, error) {
	p, err := scanPass(r.db.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM guest_passes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.GuestPass{}, ErrPassNotFound
	}
	return p, err
}

// GetByIDForUpdateTx loads a pass and locks its row for the rest of
// the transaction. The edit and delete flows take this lock first
// so a concurrent check-in or second edit serializes behind them.
func (r *GuestPassRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.GuestPass, error) {
	p, err := scanPass(tx.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM guest_passes WHERE id = ? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return model.GuestPass{}, ErrPassNotFound
	}
	return p, err
}

// GetByCode returns a pass by access code or ErrPassNotFound.
func (r *GuestPassRepo) GetByCode(ctx context.Context, code string) (model.GuestPass, error) {
	p, err := scanPass(r.db.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM guest_passes WHERE access_code = ?`, code))
	if err == sql.ErrNoRows {
		return model.GuestPass{}, ErrPassNotFound
	}
	return p, err
}

// GetByCodeTx is GetByCode within an existing transaction.
func (r *GuestPassRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.GuestPass, error) {
	p, err := scanPass(tx.QueryRowContext(ctx,
		`SELECT `+passColumns+` FROM guest_passes WHERE access_code = ?`, code))
	if err == sql.ErrNoRows {
		return model.GuestPass{}, ErrPassNotFound
	}
	return p, err
}

// List returns passes ordered newest first, optionally filtered by
// the staff user that created them (the dashboard's per-creator
// filter).
func (r *GuestPassRepo) List(ctx context.Context, createdBy *uint64) ([]model.GuestPass, error) {
	query := `SELECT ` + passColumns + ` FROM guest_passes`
	args := []interface{}{}
	if createdBy != nil {
		query += ` WHERE created_by = ?`
		args = append(args, *createdBy)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	passes := make([]model.GuestPass, 0)
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return passes, nil
}

// UpdateTx rewrites the mutable pass fields (family name, party
// size, table assignment, phone). Seat-ledger rebalancing must
// already have happened in the same transaction.
func (r *GuestPassRepo) UpdateTx(ctx context.Context, tx *sql.Tx, p *model.GuestPass) error {
	var tableID interface{}
	if p.TableID != nil {
		tableID = *p.TableID
	}
	var phone interface{}
	if p.Phone != nil {
		phone = *p.Phone
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE guest_passes
		 SET family_name = ?, party_size = ?, table_id = ?, phone = ?,
		     completed = (entered_count >= ?)
		 WHERE id = ?`,
		p.FamilyName, p.PartySize, tableID, phone, p.PartySize, p.ID)
	return err
}

// DeleteTx removes the pass row itself. Entry logs, download logs
// and the seat allocation must be cleaned up first in the same
// transaction (see PassService.Delete for the ordering).
func (r *GuestPassRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM guest_passes WHERE id = ?`, id)
	return err
}

// ConfirmByCode idempotently marks a pass confirmed. The guard
// `confirmed = 0` makes repeated confirmations no-ops that keep the
// original confirmed_at; the bool reports whether the pass had
// already been confirmed before this call.
func (r *GuestPassRepo) ConfirmByCode(ctx context.Context, code string) (model.GuestPass, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE guest_passes
		 SET confirmed = 1, confirmed_at = UTC_TIMESTAMP()
		 WHERE access_code = ? AND confirmed = 0`,
		code)
	if err != nil {
		return model.GuestPass{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.GuestPass{}, false, err
	}
	p, err := r.GetByCode(ctx, code)
	if err != nil {
		return model.GuestPass{}, false, err
	}
	return p, n == 0, nil
}

// TryRecordEntryTx is the check-in engine's atomic test-and-
// increment. The WHERE clause rejects any increment that would push
// entered_count past party_size, and the same statement flips
// completed and stamps the first confirmation, so there is no
// read-compute-write window for a second scanner to race through.
// On a zero-row match it distinguishes an unknown code from an
// over-capacity request and reports the remaining allowance.
func (r *GuestPassRepo) TryRecordEntryTx(ctx context.Context, tx *sql.Tx, code string, count uint32) (model.GuestPass, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE guest_passes
		 SET entered_count = entered_count + ?,
		     completed = (entered_count >= party_size),
		     confirmed = 1,
		     confirmed_at = COALESCE(confirmed_at, UTC_TIMESTAMP())
		 WHERE access_code = ? AND entered_count + ? <= party_size`,
		count, code, count)
	if err != nil {
		return model.GuestPass{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.GuestPass{}, err
	}
	if n == 0 {
		p, err := r.GetByCodeTx(ctx, tx, code)
		if err != nil {
			return model.GuestPass{}, err
		}
		return model.GuestPass{}, &CapacityError{Remaining: p.Remaining()}
	}
	return r.GetByCodeTx(ctx, tx, code)
}

// RecordDownload appends one invitation_downloads row for the pass.
func (r *GuestPassRepo) RecordDownload(ctx context.Context, passID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitation_downloads (guest_pass_id) VALUES (?)`, passID)
	return err
}

// DeleteDownloadsTx removes the pass's download log rows.
func (r *GuestPassRepo) DeleteDownloadsTx(ctx context.Context, tx *sql.Tx, passID uint64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM invitation_downloads WHERE guest_pass_id = ?`, passID)
	return err
}
