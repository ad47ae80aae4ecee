package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorales/wedding-pass-api/internal/database"
	"github.com/jmorales/wedding-pass-api/internal/model"
	"github.com/jmorales/wedding-pass-api/internal/repository"
	"github.com/jmorales/wedding-pass-api/internal/utils"
)

// These tests exercise the full transactional flows against a real
// MySQL instance; set TEST_DB_DSN to enable them. Event publishing
// fires as a side effect and is allowed to fail when no broker is
// reachable.
type testEnv struct {
	db      *sql.DB
	tables  *repository.TableRepo
	passes  *repository.GuestPassRepo
	entries *repository.EntryLogRepo
	passSvc *PassService
	checkin *CheckinEngine
	staffID uint64
}

func newTestEnv(t *testing.T) *testEnv {
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
	for _, table := range []string{
		"entry_logs", "invitation_downloads", "guest_passes",
		"refresh_tokens", "tables", "users", "event_config",
	} {
		_, err := db.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}

	users := repository.NewUserRepo(db)
	email := fmt.Sprintf("staff-%s@example.com", uuid.NewString()[:8])
	staffID, err := users.Create(ctx, email, "password", model.RoleStaff, 4)
	require.NoError(t, err)

	tables := repository.NewTableRepo(db)
	passes := repository.NewGuestPassRepo(db)
	entries := repository.NewEntryLogRepo(db)
	return &testEnv{
		db:      db,
		tables:  tables,
		passes:  passes,
		entries: entries,
		passSvc: NewPassService(db, tables, passes, entries),
		checkin: NewCheckinEngine(db, passes, entries),
		staffID: staffID,
	}
}

func (env *testEnv) createTable(t *testing.T, capacity uint32) model.Table {
	t.Helper()
	tbl, err := env.tables.Create(context.Background(), capacity)
	require.NoError(t, err)
	return tbl
}

func TestCreatePassReservesSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tbl := env.createTable(t, 8)

	p, err := env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "García",
		PartySize:  5,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	require.NoError(t, err)
	assert.True(t, utils.IsValidAccessCode(p.AccessCode))
	require.NotNil(t, p.TableID)
	assert.Equal(t, tbl.ID, *p.TableID)

	got, err := env.tables.GetByID(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got.OccupiedSeats)

	// 6 more on a table with 3 free seats is rejected and nothing is
	// written.
	_, err = env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Romero",
		PartySize:  6,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	var capErr *repository.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, uint32(3), capErr.Remaining)

	got, err = env.tables.GetByID(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got.OccupiedSeats)
	all, err := env.passes.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreatePassValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tbl := env.createTable(t, 8)

	_, err := env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "   ",
		PartySize:  2,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	assert.ErrorIs(t, err, repository.ErrValidation)

	_, err = env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Ortiz",
		PartySize:  0,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	assert.ErrorIs(t, err, repository.ErrValidation)

	_, err = env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Ortiz",
		PartySize:  2,
		TableID:    999999,
		CreatedBy:  env.staffID,
	})
	assert.ErrorIs(t, err, repository.ErrTableNotFound)
}

func TestEditPassMovesSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tblA := env.createTable(t, 8)
	tblB := env.createTable(t, 6)

	p, err := env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Navarro",
		PartySize:  4,
		TableID:    tblA.ID,
		CreatedBy:  env.staffID,
	})
	require.NoError(t, err)

	// Move to table B and grow the party by one.
	newSize := uint32(5)
	edited, err := env.passSvc.Edit(ctx, p.ID, EditPassInput{
		PartySize: &newSize,
		TableID:   &tblB.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), edited.PartySize)
	require.NotNil(t, edited.TableID)
	assert.Equal(t, tblB.ID, *edited.TableID)

	a, err := env.tables.GetByID(ctx, tblA.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), a.OccupiedSeats)
	b, err := env.tables.GetByID(ctx, tblB.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), b.OccupiedSeats)

	// Growing beyond the new table's capacity fails atomically: the
	// seats stay where they were.
	tooMany := uint32(7)
	_, err = env.passSvc.Edit(ctx, p.ID, EditPassInput{PartySize: &tooMany})
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
	b, err = env.tables.GetByID(ctx, tblB.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), b.OccupiedSeats)
}

func TestEditPassCannotShrinkBelowEntered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tbl := env.createTable(t, 8)

	p, err := env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Campos",
		PartySize:  5,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	require.NoError(t, err)

	_, err = env.checkin.RecordEntry(ctx, p.AccessCode, 3, env.staffID, uuid.NewString())
	require.NoError(t, err)

	smaller := uint32(2)
	_, err = env.passSvc.Edit(ctx, p.ID, EditPassInput{PartySize: &smaller})
	assert.ErrorIs(t, err, repository.ErrValidation)
}

func TestDeletePassReleasesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tbl := env.createTable(t, 8)

	p, err := env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Iglesias",
		PartySize:  5,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	require.NoError(t, err)
	_, err = env.checkin.RecordEntry(ctx, p.AccessCode, 2, env.staffID, uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, env.passSvc.Delete(ctx, p.ID))

	got, err := env.tables.GetByID(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.OccupiedSeats)
	_, err = env.passes.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrPassNotFound)

	sum, err := env.entries.SumForPass(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), sum)

	assert.ErrorIs(t, env.passSvc.Delete(ctx, p.ID), repository.ErrPassNotFound)
}

func TestRecordEntryFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tbl := env.createTable(t, 8)

	p, err := env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Delgado",
		PartySize:  5,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	require.NoError(t, err)

	res, err := env.checkin.RecordEntry(ctx, p.AccessCode, 3, env.staffID, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, uint32(3), res.Pass.EnteredCount)
	assert.True(t, res.Pass.Confirmed)

	res, err = env.checkin.RecordEntry(ctx, p.AccessCode, 2, env.staffID, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, uint32(5), res.Pass.EnteredCount)
	assert.True(t, res.Pass.Completed)

	_, err = env.checkin.RecordEntry(ctx, p.AccessCode, 1, env.staffID, uuid.NewString())
	var capErr *repository.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, uint32(0), capErr.Remaining)

	_, err = env.checkin.RecordEntry(ctx, p.AccessCode, 0, env.staffID, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrValidation)

	_, err = env.checkin.RecordEntry(ctx, "QQQQ", 1, env.staffID, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrPassNotFound)
}

func TestRecordEntryReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tbl := env.createTable(t, 8)

	p, err := env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Méndez",
		PartySize:  6,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	require.NoError(t, err)

	reqID := uuid.NewString()
	first, err := env.checkin.RecordEntry(ctx, p.AccessCode, 2, env.staffID, reqID)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	// Same request id again: nothing recorded twice.
	replay, err := env.checkin.RecordEntry(ctx, p.AccessCode, 2, env.staffID, reqID)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, uint32(2), replay.Pass.EnteredCount)

	sum, err := env.entries.SumForPass(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), sum)
}

func TestRecordEntryConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tbl := env.createTable(t, 12)

	const party = 10
	p, err := env.passSvc.Create(ctx, CreatePassInput{
		FamilyName: "Fuentes",
		PartySize:  party,
		TableID:    tbl.ID,
		CreatedBy:  env.staffID,
	})
	require.NoError(t, err)

	// Twice as many stations as seats race to admit one person each;
	// exactly party of them may win.
	var wg sync.WaitGroup
	results := make(chan error, party*2)
	for i := 0; i < party*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.checkin.RecordEntry(ctx, p.AccessCode, 1, env.staffID, uuid.NewString())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		var capErr *repository.CapacityError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &capErr):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, party, ok)
	assert.Equal(t, party, rejected)

	got, err := env.passes.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(party), got.EnteredCount)
	assert.True(t, got.Completed)

	sum, err := env.entries.SumForPass(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(party), sum)
}
