package model

import "time"

// GuestPass represents one invited family and its redeemable
// access code. A pass moves only forward through three states:
// pending (entered_count = 0), partial (0 < entered_count <
// party_size) and complete (entered_count = party_size). The
// entered count is mutated exclusively by the check-in engine's
// atomic increment; no handler computes it client-side.
//
// Fields:
//  ID           – primary key identifier.
//  AccessCode   – unique 4-character code printed on the QR.
//  FamilyName   – display name of the invited family.
//  PartySize    – total invited people on this pass.
//  EnteredCount – people who have entered so far.
//  TableID      – assigned table (nullable; weak reference).
//  Phone        – optional WhatsApp contact number.
//  Confirmed    – set on first successful code redemption.
//  ConfirmedAt  – set once, immutable afterwards.
//  Completed    – entered_count has reached party_size.
//  CreatedBy    – staff user that issued the pass.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type GuestPass struct {
	ID           uint64     // guest_passes.id
	AccessCode   string     // guest_passes.access_code
	FamilyName   string     // guest_passes.family_name
	PartySize    uint32     // guest_passes.party_size
	EnteredCount uint32     // guest_passes.entered_count
	TableID      *uint64    // guest_passes.table_id (nullable)
	Phone        *string    // guest_passes.phone (nullable)
	Confirmed    bool       // guest_passes.confirmed
	ConfirmedAt  *time.Time // guest_passes.confirmed_at (nullable)
	Completed    bool       // guest_passes.completed
	CreatedBy    uint64     // guest_passes.created_by
	CreatedAt    time.Time  // guest_passes.created_at
	UpdatedAt    time.Time  // guest_passes.updated_at
}

// Remaining returns how many people from the party may still enter.
func (p GuestPass) Remaining() uint32 {
	if p.EnteredCount >= p.PartySize {
		return 0
	}
	return p.PartySize - p.EnteredCount
}

// Pass status values reported to the scanner and dashboard.
const (
	PassStatusPending  = "PENDING"
	PassStatusPartial  = "PARTIAL"
	PassStatusComplete = "COMPLETE"
)

// Status derives the check-in state from the entered count.
func (p GuestPass) Status() string {
	switch {
	case p.EnteredCount == 0:
		return PassStatusPending
	case p.EnteredCount < p.PartySize:
		return PassStatusPartial
	default:
		return PassStatusComplete
	}
}
