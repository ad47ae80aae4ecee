// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds carried on the pass.events queue. Delivery is
// at-least-once; consumers key on EventID to stay idempotent.
const (
	EventEntryRecorded = "entry.recorded"
	EventPassChanged   = "pass.changed"
	EventTableChanged  = "table.changed"
)

// Actions for pass.changed events.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionConfirmed = "confirmed"
)

// PassEvent is published whenever guest-pass or table state
// changes. It carries enough information for downstream consumers
// (dashboard refresh, the check-in log writer) to act without
// querying the primary database. Fields not relevant to a given
// event kind are omitted from the JSON.
type PassEvent struct {
	EventID       string `json:"event_id"`
	Event         string `json:"event"`
	Action        string `json:"action,omitempty"`
	OccurredAt    string `json:"occurred_at"`
	GuestPassID   uint64 `json:"guest_pass_id,omitempty"`
	AccessCode    string `json:"access_code,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	PartySize     uint32 `json:"party_size,omitempty"`
	EnteredCount  uint32 `json:"entered_count,omitempty"`
	CountEntering uint32 `json:"count_entering,omitempty"`
	Completed     bool   `json:"completed,omitempty"`
	RecordedBy    uint64 `json:"recorded_by,omitempty"`
	TableID       uint64 `json:"table_id,omitempty"`
}

// NewEvent returns a PassEvent of the given kind stamped with a
// fresh UUID and the current UTC time.
func NewEvent(kind string) PassEvent {
	return PassEvent{
		EventID:    uuid.NewString(),
		Event:      kind,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
