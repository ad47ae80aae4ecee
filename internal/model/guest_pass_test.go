package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuestPassRemaining(t *testing.T) {
	assert.Equal(t, uint32(5), GuestPass{PartySize: 5}.Remaining())
	assert.Equal(t, uint32(2), GuestPass{PartySize: 5, EnteredCount: 3}.Remaining())
	assert.Equal(t, uint32(0), GuestPass{PartySize: 5, EnteredCount: 5}.Remaining())
	// Entered never exceeds party size in the database; Remaining
	// still clamps instead of underflowing.
	assert.Equal(t, uint32(0), GuestPass{PartySize: 5, EnteredCount: 6}.Remaining())
}

func TestGuestPassStatus(t *testing.T) {
	assert.Equal(t, PassStatusPending, GuestPass{PartySize: 4}.Status())
	assert.Equal(t, PassStatusPartial, GuestPass{PartySize: 4, EnteredCount: 1}.Status())
	assert.Equal(t, PassStatusComplete, GuestPass{PartySize: 4, EnteredCount: 4}.Status())
}

func TestTableSeatsAvailable(t *testing.T) {
	assert.Equal(t, uint32(8), Table{Capacity: 8}.SeatsAvailable())
	assert.Equal(t, uint32(3), Table{Capacity: 8, OccupiedSeats: 5}.SeatsAvailable())
	assert.Equal(t, uint32(0), Table{Capacity: 8, OccupiedSeats: 8}.SeatsAvailable())
}
