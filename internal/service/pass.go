// Package service holds the transactional flows behind the HTTP
// handlers: the guest-pass lifecycle and the check-in engine. All
// multi-step mutations run inside one database transaction so no
// partial state is ever observable, and every committed change is
// published to the event feed.
package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmorales/wedding-pass-api/internal/model"
	"github.com/jmorales/wedding-pass-api/internal/queue"
	"github.com/jmorales/wedding-pass-api/internal/repository"
	"github.com/jmorales/wedding-pass-api/internal/utils"
)

// codeAttempts bounds the generate-and-check loop for access codes.
// Exhausting it fails creation with ErrCodeSpaceExhausted instead
// of retrying forever against a nearly full code space.
const codeAttempts = 10

// PassService owns the guest-pass lifecycle: create with seat
// reservation, edit with seat transfer, delete with cleanup and
// guest confirmation.
type PassService struct {
	db      *sql.DB
	tables  *repository.TableRepo
	passes  *repository.GuestPassRepo
	entries *repository.EntryLogRepo
}

// NewPassService constructs a PassService. All dependencies must be
// non-nil.
func NewPassService(db *sql.DB, tables *repository.TableRepo, passes *repository.GuestPassRepo, entries *repository.EntryLogRepo) *PassService {
	if db == nil || tables == nil || passes == nil || entries == nil {
		panic("nil dependency passed to NewPassService")
	}
	return &PassService{db: db, tables: tables, passes: passes, entries: entries}
}

// CreatePassInput carries the fields of a pass-creation request.
type CreatePassInput struct {
	FamilyName string
	PartySize  uint32
	TableID    uint64
	Phone      *string
	CreatedBy  uint64
}

// Create reserves seats, generates a unique access code and
// persists the pass, all in one transaction. Reservation runs
// first: when the table is full nothing else happens and the caller
// learns how many seats remain.
func (s *PassService) Create(ctx context.Context, in CreatePassInput) (model.GuestPass, error) {
	if strings.TrimSpace(in.FamilyName) == "" || in.PartySize < 1 {
		return model.GuestPass{}, repository.ErrValidation
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.GuestPass{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.tables.ReserveTx(ctx, tx, in.TableID, in.PartySize); err != nil {
		return model.GuestPass{}, err
	}

	pass := model.GuestPass{
		FamilyName: strings.TrimSpace(in.FamilyName),
		PartySize:  in.PartySize,
		TableID:    &in.TableID,
		Phone:      in.Phone,
		CreatedBy:  in.CreatedBy,
	}
	inserted := false
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := utils.GenerateAccessCode()
		if err != nil {
			return model.GuestPass{}, err
		}
		taken, err := s.passes.CodeExistsTx(ctx, tx, code)
		if err != nil {
			return model.GuestPass{}, err
		}
		if taken {
			continue
		}
		pass.AccessCode = code
		err = s.passes.InsertTx(ctx, tx, &pass)
		if err == repository.ErrConflict {
			// Lost the unique-index race to a concurrent create;
			// counts as a failed attempt.
			continue
		}
		if err != nil {
			return model.GuestPass{}, err
		}
		inserted = true
		break
	}
	if !inserted {
		return model.GuestPass{}, repository.ErrCodeSpaceExhausted
	}

	if err := tx.Commit(); err != nil {
		return model.GuestPass{}, err
	}
	committed = true

	s.publishPassChanged(ctx, queue.ActionCreated, pass)
	s.publishTableChanged(ctx, in.TableID)
	return pass, nil
}

// EditPassInput carries the optional fields of a pass edit. Nil
// pointers leave the current value untouched; ClearTable/ClearPhone
// explicitly null the column.
type EditPassInput struct {
	FamilyName *string
	PartySize  *uint32
	TableID    *uint64
	ClearTable bool
	Phone      *string
	ClearPhone bool
}

// Edit applies an admin edit. When the table or party size changes
// the old allocation is released and the new one reserved in the
// same transaction, so a failed reserve rolls the release back and
// the edit fails atomically with no partial state.
func (s *PassService) Edit(ctx context.Context, passID uint64, in EditPassInput) (model.GuestPass, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.GuestPass{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := s.passes.GetByIDForUpdateTx(ctx, tx, passID)
	if err != nil {
		return model.GuestPass{}, err
	}
	oldTable, oldSize := p.TableID, p.PartySize

	if in.FamilyName != nil {
		name := strings.TrimSpace(*in.FamilyName)
		if name == "" {
			return model.GuestPass{}, repository.ErrValidation
		}
		p.FamilyName = name
	}
	if in.PartySize != nil {
		if *in.PartySize < 1 || *in.PartySize < p.EnteredCount {
			return model.GuestPass{}, repository.ErrValidation
		}
		p.PartySize = *in.PartySize
	}
	switch {
	case in.ClearTable:
		p.TableID = nil
	case in.TableID != nil:
		p.TableID = in.TableID
	}
	switch {
	case in.ClearPhone:
		p.Phone = nil
	case in.Phone != nil:
		p.Phone = in.Phone
	}

	tableChanged := !sameTable(oldTable, p.TableID)
	if tableChanged || p.PartySize != oldSize {
		if err := s.tables.TransferTx(ctx, tx, oldTable, oldSize, p.TableID, p.PartySize); err != nil {
			return model.GuestPass{}, err
		}
	}
	if err := s.passes.UpdateTx(ctx, tx, &p); err != nil {
		return model.GuestPass{}, err
	}
	stored, err := s.passes.GetByCodeTx(ctx, tx, p.AccessCode)
	if err != nil {
		return model.GuestPass{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.GuestPass{}, err
	}
	committed = true

	s.publishPassChanged(ctx, queue.ActionUpdated, stored)
	if oldTable != nil {
		s.publishTableChanged(ctx, *oldTable)
	}
	if stored.TableID != nil && tableChanged {
		s.publishTableChanged(ctx, *stored.TableID)
	}
	return stored, nil
}

// Delete removes a pass: seats released first, then the dependent
// entry-log and download rows, then the pass itself. The ordering
// is the compensating-action pattern from the design: a crash mid-
// sequence leaves nothing that a re-run of the cleanup cannot fix,
// and the transaction makes the whole sequence atomic anyway.
func (s *PassService) Delete(ctx context.Context, passID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := s.passes.GetByIDForUpdateTx(ctx, tx, passID)
	if err != nil {
		return err
	}
	if p.TableID != nil {
		if err := s.tables.ReleaseTx(ctx, tx, *p.TableID, p.PartySize); err != nil {
			return err
		}
	}
	if _, err := s.entries.DeleteByPassTx(ctx, tx, passID); err != nil {
		return err
	}
	if err := s.passes.DeleteDownloadsTx(ctx, tx, passID); err != nil {
		return err
	}
	if err := s.passes.DeleteTx(ctx, tx, passID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	s.publishPassChanged(ctx, queue.ActionDeleted, p)
	if p.TableID != nil {
		s.publishTableChanged(ctx, *p.TableID)
	}
	return nil
}

// Confirm marks the pass with the given access code as confirmed.
// It is idempotent: the second and later calls return the existing
// state with alreadyConfirmed=true and do not touch confirmed_at.
func (s *PassService) Confirm(ctx context.Context, code string) (model.GuestPass, bool, error) {
	p, already, err := s.passes.ConfirmByCode(ctx, code)
	if err != nil {
		return model.GuestPass{}, false, err
	}
	if !already {
		s.publishPassChanged(ctx, queue.ActionConfirmed, p)
	}
	return p, already, nil
}

func (s *PassService) publishPassChanged(ctx context.Context, action string, p model.GuestPass) {
	ev := queue.NewEvent(queue.EventPassChanged)
	ev.Action = action
	ev.GuestPassID = p.ID
	ev.AccessCode = p.AccessCode
	ev.FamilyName = p.FamilyName
	ev.PartySize = p.PartySize
	ev.EnteredCount = p.EnteredCount
	ev.Completed = p.Completed
	if p.TableID != nil {
		ev.TableID = *p.TableID
	}
	_ = queue.Publish(ctx, ev)
}

func (s *PassService) publishTableChanged(ctx context.Context, tableID uint64) {
	ev := queue.NewEvent(queue.EventTableChanged)
	ev.TableID = tableID
	_ = queue.Publish(ctx, ev)
}

func sameTable(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
