package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/jmorales/wedding-pass-api/internal/model"
	"github.com/jmorales/wedding-pass-api/internal/queue"
	"github.com/jmorales/wedding-pass-api/internal/repository"
)

// CheckinEngine applies entry events to guest passes. It is the
// only writer of guest_passes.entered_count. Correctness under
// concurrent scanners rests on two database constraints: the
// conditional UPDATE in TryRecordEntryTx (no lost updates, no
// oversell) and the unique index on entry_logs.request_id
// (idempotent replays). The counter increment and the audit row are
// committed in the same transaction; one never exists without the
// other.
type CheckinEngine struct {
	db      *sql.DB
	passes  *repository.GuestPassRepo
	entries *repository.EntryLogRepo
}

// NewCheckinEngine constructs a CheckinEngine. All dependencies
// must be non-nil.
func NewCheckinEngine(db *sql.DB, passes *repository.GuestPassRepo, entries *repository.EntryLogRepo) *CheckinEngine {
	if db == nil || passes == nil || entries == nil {
		panic("nil dependency passed to NewCheckinEngine")
	}
	return &CheckinEngine{db: db, passes: passes, entries: entries}
}

// EntryResult reports the outcome of RecordEntry. Replayed is true
// when the request id had already been applied and the call
// returned the recorded state without mutating anything.
type EntryResult struct {
	Pass     model.GuestPass
	Replayed bool
}

// RecordEntry admits count people against the pass identified by
// accessCode.
//
// Flow, all inside one transaction:
//  1. dedup lookup by requestID – a hit short-circuits to the
//     already-recorded state;
//  2. atomic test-and-increment of entered_count (rejects oversell
//     with the remaining allowance);
//  3. append of the entry_logs audit row under the same requestID.
//
// Two stations replaying the same requestID concurrently can both
// miss the dedup lookup; then the unique index on request_id fails
// the second insert and that call is resolved as a replay as well.
// The entry.recorded event is published only after commit.
func (e *CheckinEngine) RecordEntry(ctx context.Context, accessCode string, count uint32, staffID uint64, requestID string) (EntryResult, error) {
	if count < 1 {
		return EntryResult{}, repository.ErrValidation
	}
	if requestID == "" {
		// Caller sent no idempotency key; stamp one so the audit
		// row still carries a unique id.
		requestID = uuid.NewString()
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return EntryResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if rec, err := e.entries.GetByRequestIDTx(ctx, tx, requestID); err == nil {
		return e.replayResult(ctx, rec)
	} else if err != sql.ErrNoRows {
		return EntryResult{}, err
	}

	p, err := e.passes.TryRecordEntryTx(ctx, tx, accessCode, count)
	if err != nil {
		return EntryResult{}, err
	}

	rec := model.EntryLog{
		GuestPassID:   p.ID,
		CountEntering: count,
		RequestID:     requestID,
		RecordedBy:    staffID,
	}
	if err := e.entries.InsertTx(ctx, tx, &rec); err != nil {
		if err == repository.ErrConflict {
			// Lost the dedup race: another station committed this
			// request id after our lookup. Drop our increment and
			// report the recorded state.
			_ = tx.Rollback()
			stored, lookupErr := e.entries.GetByRequestID(ctx, requestID)
			if lookupErr != nil {
				return EntryResult{}, lookupErr
			}
			return e.replayResult(ctx, stored)
		}
		return EntryResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return EntryResult{}, err
	}
	committed = true

	ev := queue.NewEvent(queue.EventEntryRecorded)
	ev.GuestPassID = p.ID
	ev.AccessCode = p.AccessCode
	ev.FamilyName = p.FamilyName
	ev.PartySize = p.PartySize
	ev.EnteredCount = p.EnteredCount
	ev.CountEntering = count
	ev.Completed = p.Completed
	ev.RecordedBy = staffID
	if p.TableID != nil {
		ev.TableID = *p.TableID
	}
	_ = queue.Publish(ctx, ev)

	return EntryResult{Pass: p}, nil
}

// replayResult loads the current pass state for an already-applied
// request. Reads run outside the (rolled back) transaction.
func (e *CheckinEngine) replayResult(ctx context.Context, rec model.EntryLog) (EntryResult, error) {
	p, err := e.passes.GetByID(ctx, rec.GuestPassID)
	if err != nil {
		return EntryResult{}, err
	}
	return EntryResult{Pass: p, Replayed: true}, nil
}
