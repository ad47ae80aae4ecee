package repository

import (
	"context"
	"database/sql"

	"github.com/jmorales/wedding-pass-api/internal/model"
)

// TableRepo is the seat ledger. It owns all writes to
// tables.occupied_seats; no other component updates that column.
// Reservations are single conditional UPDATE statements so two
// admin sessions creating passes against the same table can never
// overbook it, regardless of interleaving.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *TableRepo) DB() *sql.DB { return r.db }

const tableColumns = "id, table_number, capacity, occupied_seats, created_at, updated_at"

func scanTable(row interface{ Scan(...any) error }) (model.Table, error) {
	var t model.Table
	err := row.Scan(&t.ID, &t.TableNumber, &t.Capacity, &t.OccupiedSeats, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Create inserts one table numbered after the current maximum and
// returns the stored row. Numbering and insert run in one
// transaction so two concurrent creates cannot claim the same
// number; the unique index on table_number is the backstop.
func (r *TableRepo) Create(ctx context.Context, capacity uint32) (model.Table, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Table{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	next, err := r.nextTableNumberTx(ctx, tx)
	if err != nil {
		return model.Table{}, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tables (table_number, capacity, occupied_seats) VALUES (?, ?, 0)`,
		next, capacity)
	if err != nil {
		if isDuplicateKey(err) {
			return model.Table{}, ErrConflict
		}
		return model.Table{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Table{}, err
	}
	t, err := scanTable(tx.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE id = ?`, id))
	if err != nil {
		return model.Table{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Table{}, err
	}
	committed = true
	return t, nil
}

// CreateBulk inserts count tables of the given capacity, numbering
// them consecutively after the current maximum, and returns the new
// rows ordered by table number.
func (r *TableRepo) CreateBulk(ctx context.Context, count, capacity uint32) ([]model.Table, error) {
	if count == 0 {
		return []model.Table{}, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	next, err := r.nextTableNumberTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	query := `INSERT INTO tables (table_number, capacity, occupied_seats) VALUES `
	args := make([]interface{}, 0, int(count)*2)
	for i := uint32(0); i < count; i++ {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, 0)"
		args = append(args, next+i, capacity)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE table_number >= ? ORDER BY table_number`, next)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	created := make([]model.Table, 0, count)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		created = append(created, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return created, nil
}

// nextTableNumberTx returns max(table_number)+1 within the transaction.
func (r *TableRepo) nextTableNumberTx(ctx context.Context, tx *sql.Tx) (uint32, error) {
	var max sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(table_number) FROM tables`).Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 1, nil
	}
	return uint32(max.Int64) + 1, nil
}

// List returns all tables ordered by table number.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM tables ORDER BY table_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tables := make([]model.Table, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetByID returns a single table or ErrTableNotFound.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (model.Table, error) {
	t, err := scanTable(r.db.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Table{}, ErrTableNotFound
	}
	return t, err
}

// GetByIDTx is GetByID within an existing transaction.
func (r *TableRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Table, error) {
	t, err := scanTable(tx.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Table{}, ErrTableNotFound
	}
	return t, err
}

// ReserveTx atomically claims seats at a table. The guard in the
// WHERE clause makes the capacity check and the increment a single
// statement; when it matches no row the follow-up read tells apart
// a missing table from a full one and reports the seats remaining.
func (r *TableRepo) ReserveTx(ctx context.Context, tx *sql.Tx, tableID uint64, seats uint32) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE tables SET occupied_seats = occupied_seats + ?
		 WHERE id = ? AND occupied_seats + ? <= capacity`,
		seats, tableID, seats)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	t, err := r.GetByIDTx(ctx, tx, tableID)
	if err != nil {
		return err
	}
	return &CapacityError{Remaining: t.SeatsAvailable()}
}

// ReleaseTx gives seats back, floored at zero to stay safe against
// a double release. It succeeds even when the table is already empty.
func (r *TableRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, tableID uint64, seats uint32) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE tables SET occupied_seats = IF(occupied_seats >= ?, occupied_seats - ?, 0)
		 WHERE id = ?`,
		seats, seats, tableID)
	return err
}

// TransferTx moves a pass's allocation between tables (either side
// may be nil for unassigned). Release and reserve run in the same
// transaction, so when the reserve half fails the caller's rollback
// also undoes the release and no seats are lost.
func (r *TableRepo) TransferTx(ctx context.Context, tx *sql.Tx, fromTable *uint64, fromSeats uint32, toTable *uint64, toSeats uint32) error {
	if fromTable != nil {
		if err := r.ReleaseTx(ctx, tx, *fromTable, fromSeats); err != nil {
			return err
		}
	}
	if toTable != nil {
		if err := r.ReserveTx(ctx, tx, *toTable, toSeats); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a table. Passes assigned to it are unassigned
// first (table_id set to NULL), never deleted; their seats vanish
// with the table row. It returns how many passes were unassigned.
func (r *TableRepo) Delete(ctx context.Context, id uint64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := r.GetByIDTx(ctx, tx, id); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE guest_passes SET table_id = NULL WHERE table_id = ?`, id)
	if err != nil {
		return 0, err
	}
	unassigned, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tables WHERE id = ?`, id); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return unassigned, nil
}

// DeleteEmpty removes every table with no occupied seats and no
// assigned pass, returning how many were deleted.
func (r *TableRepo) DeleteEmpty(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tables
		 WHERE occupied_seats = 0
		   AND NOT EXISTS (SELECT 1 FROM guest_passes p WHERE p.table_id = tables.id)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
