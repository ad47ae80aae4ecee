package model

import "time"

// EntryLog is one row of the append-only check-in audit trail.
// The sum of CountEntering over a pass's rows always equals that
// pass's entered_count; both are written in the same transaction.
//
// Fields:
//  ID            – primary key identifier.
//  GuestPassID   – pass the entry was recorded against.
//  CountEntering – people admitted in this scan (>= 1).
//  RequestID     – caller-supplied idempotency key (unique).
//  RecordedBy    – staff user operating the station.
//  RecordedAt    – when the entry was recorded.
type EntryLog struct {
	ID            uint64    // entry_logs.id
	GuestPassID   uint64    // entry_logs.guest_pass_id
	CountEntering uint32    // entry_logs.count_entering
	RequestID     string    // entry_logs.request_id
	RecordedBy    uint64    // entry_logs.recorded_by
	RecordedAt    time.Time // entry_logs.recorded_at
}

// InvitationDownload logs one download of the printable invitation
// from the public confirm page.
type InvitationDownload struct {
	ID           uint64    // invitation_downloads.id
	GuestPassID  uint64    // invitation_downloads.guest_pass_id
	DownloadedAt time.Time // invitation_downloads.downloaded_at
}
