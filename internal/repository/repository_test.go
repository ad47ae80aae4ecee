package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorales/wedding-pass-api/internal/database"
	"github.com/jmorales/wedding-pass-api/internal/model"
	"github.com/jmorales/wedding-pass-api/internal/utils"
)

// Integration tests run against a real MySQL instance. Set
// TEST_DB_DSN, e.g.
//
//	TEST_DB_DSN='root@tcp(localhost:3306)/wedding_test?parseTime=true&loc=UTC'
//
// to enable them. Each test starts from empty tables.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping database integration test")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, database.EnsureSchema(ctx, db))

	// Child tables first to satisfy foreign keys.
	for _, table := range []string{
		"entry_logs", "invitation_downloads", "guest_passes",
		"refresh_tokens", "tables", "users", "event_config",
	} {
		_, err := db.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
	return db
}

func createTestUser(t *testing.T, db *sql.DB) uint64 {
	t.Helper()
	users := NewUserRepo(db)
	email := fmt.Sprintf("staff-%s@example.com", uuid.NewString()[:8])
	id, err := users.Create(context.Background(), email, "password", model.RoleStaff, 4)
	require.NoError(t, err)
	return id
}

func createTestPass(t *testing.T, db *sql.DB, tableID *uint64, familyName string, partySize uint32, createdBy uint64) model.GuestPass {
	t.Helper()
	passes := NewGuestPassRepo(db)
	ctx := context.Background()

	code, err := utils.GenerateAccessCode()
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	p := model.GuestPass{
		AccessCode: code,
		FamilyName: familyName,
		PartySize:  partySize,
		TableID:    tableID,
		CreatedBy:  createdBy,
	}
	require.NoError(t, passes.InsertTx(ctx, tx, &p))
	require.NoError(t, tx.Commit())
	return p
}

func TestTableReserveAndRelease(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tables := NewTableRepo(db)

	tbl, err := tables.Create(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), tbl.Capacity)
	assert.Equal(t, uint32(0), tbl.OccupiedSeats)

	inTx := func(fn func(tx *sql.Tx) error) error {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	}

	require.NoError(t, inTx(func(tx *sql.Tx) error { return tables.ReserveTx(ctx, tx, tbl.ID, 5) }))

	// 4 more would exceed capacity 8; the rejection reports 3 free.
	err = inTx(func(tx *sql.Tx) error { return tables.ReserveTx(ctx, tx, tbl.ID, 4) })
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, uint32(3), capErr.Remaining)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	require.NoError(t, inTx(func(tx *sql.Tx) error { return tables.ReserveTx(ctx, tx, tbl.ID, 3) }))
	got, err := tables.GetByID(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), got.OccupiedSeats)

	require.NoError(t, inTx(func(tx *sql.Tx) error { return tables.ReleaseTx(ctx, tx, tbl.ID, 5) }))
	// Releasing more than occupied clamps at zero.
	require.NoError(t, inTx(func(tx *sql.Tx) error { return tables.ReleaseTx(ctx, tx, tbl.ID, 10) }))
	got, err = tables.GetByID(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.OccupiedSeats)

	err = inTx(func(tx *sql.Tx) error { return tables.ReserveTx(ctx, tx, 999999, 1) })
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestTryRecordEntry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	passes := NewGuestPassRepo(db)
	staff := createTestUser(t, db)
	pass := createTestPass(t, db, nil, "Rivera", 5, staff)

	record := func(count uint32) (model.GuestPass, error) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		p, err := passes.TryRecordEntryTx(ctx, tx, pass.AccessCode, count)
		if err != nil {
			_ = tx.Rollback()
			return model.GuestPass{}, err
		}
		require.NoError(t, tx.Commit())
		return p, nil
	}

	p, err := record(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), p.EnteredCount)
	assert.True(t, p.Confirmed, "first entry confirms the pass")
	assert.False(t, p.Completed)
	require.NotNil(t, p.ConfirmedAt)
	firstConfirmed := *p.ConfirmedAt

	p, err = record(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), p.EnteredCount)
	assert.True(t, p.Completed)
	require.NotNil(t, p.ConfirmedAt)
	assert.True(t, p.ConfirmedAt.Equal(firstConfirmed), "confirmed_at is written once")

	_, err = record(1)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, uint32(0), capErr.Remaining)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = passes.TryRecordEntryTx(ctx, tx, "QQQQ", 1)
	_ = tx.Rollback()
	assert.ErrorIs(t, err, ErrPassNotFound)
}

func TestConfirmByCodeIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	passes := NewGuestPassRepo(db)
	staff := createTestUser(t, db)
	pass := createTestPass(t, db, nil, "Moreno", 2, staff)

	p, already, err := passes.ConfirmByCode(ctx, pass.AccessCode)
	require.NoError(t, err)
	assert.False(t, already)
	assert.True(t, p.Confirmed)
	require.NotNil(t, p.ConfirmedAt)
	first := *p.ConfirmedAt

	time.Sleep(1100 * time.Millisecond) // DATETIME has second resolution

	p2, already, err := passes.ConfirmByCode(ctx, pass.AccessCode)
	require.NoError(t, err)
	assert.True(t, already)
	require.NotNil(t, p2.ConfirmedAt)
	assert.True(t, p2.ConfirmedAt.Equal(first))

	_, _, err = passes.ConfirmByCode(ctx, "QQQQ")
	assert.ErrorIs(t, err, ErrPassNotFound)
}

func TestEntryLogRequestIDUnique(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	entries := NewEntryLogRepo(db)
	staff := createTestUser(t, db)
	pass := createTestPass(t, db, nil, "Luna", 4, staff)

	reqID := uuid.NewString()
	insert := func() error {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		rec := model.EntryLog{
			GuestPassID:   pass.ID,
			CountEntering: 2,
			RequestID:     reqID,
			RecordedBy:    staff,
		}
		if err := entries.InsertTx(ctx, tx, &rec); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	}

	require.NoError(t, insert())
	assert.ErrorIs(t, insert(), ErrConflict)

	rec, err := entries.GetByRequestID(ctx, reqID)
	require.NoError(t, err)
	assert.Equal(t, pass.ID, rec.GuestPassID)
	assert.Equal(t, uint32(2), rec.CountEntering)

	_, err = entries.GetByRequestID(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestTableDeleteUnassignsPasses(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tables := NewTableRepo(db)
	passes := NewGuestPassRepo(db)
	staff := createTestUser(t, db)

	tbl, err := tables.Create(ctx, 8)
	require.NoError(t, err)
	pass := createTestPass(t, db, &tbl.ID, "Serrano", 4, staff)

	unassigned, err := tables.Delete(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unassigned)

	got, err := passes.GetByID(ctx, pass.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TableID)

	_, err = tables.GetByID(ctx, tbl.ID)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestDeleteEmptyTables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tables := NewTableRepo(db)
	staff := createTestUser(t, db)

	empty, err := tables.Create(ctx, 8)
	require.NoError(t, err)
	occupied, err := tables.Create(ctx, 8)
	require.NoError(t, err)
	createTestPass(t, db, &occupied.ID, "Vega", 3, staff)

	removed, err := tables.DeleteEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = tables.GetByID(ctx, empty.ID)
	assert.ErrorIs(t, err, ErrTableNotFound)
	_, err = tables.GetByID(ctx, occupied.ID)
	assert.NoError(t, err)
}

func TestCreateBulkNumbersConsecutively(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tables := NewTableRepo(db)

	created, err := tables.CreateBulk(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, created, 3)
	for i, tbl := range created {
		assert.Equal(t, uint32(i+1), tbl.TableNumber)
		assert.Equal(t, uint32(10), tbl.Capacity)
	}

	more, err := tables.CreateBulk(ctx, 2, 6)
	require.NoError(t, err)
	require.Len(t, more, 2)
	assert.Equal(t, uint32(4), more[0].TableNumber)
	assert.Equal(t, uint32(5), more[1].TableNumber)
}

func TestEventConfigSeedAndUpdate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cfgRepo := NewEventConfigRepo(db)

	cfg, err := cfgRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), cfg.TotalTables)
	assert.Equal(t, uint32(8), cfg.SeatsPerTable)

	updated, err := cfgRepo.Update(ctx, 12, 6)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), updated.TotalTables)
	assert.Equal(t, uint32(6), updated.SeatsPerTable)
}
