// Package repository defines error values that are reused across
// multiple repositories. These sentinels let handlers distinguish
// failure scenarios with errors.Is and translate them into HTTP
// responses: not-found conditions become 404, capacity violations
// 409, an exhausted code space 503 and lost concurrent races 409
// with a retry hint.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTableNotFound is returned when a referenced table does not exist.
var ErrTableNotFound = errors.New("table not found")

// ErrPassNotFound is returned when no guest pass matches the given
// id or access code.
var ErrPassNotFound = errors.New("guest pass not found")

// ErrCapacityExceeded is returned when an operation would push a
// table past its capacity or a pass past its party size. Use
// errors.As with *CapacityError to learn how many seats remain.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrCodeSpaceExhausted is returned when the access-code generator
// failed to find an unused code within its retry budget.
var ErrCodeSpaceExhausted = errors.New("access code space exhausted")

// ErrConflict is returned when a concurrent mutation won the race.
// The caller may retry with a fresh read.
var ErrConflict = errors.New("conflict")

// ErrValidation is returned for malformed input that survived
// handler-level checks, e.g. a party size below the number of
// guests already inside. Handlers translate it into 400.
var ErrValidation = errors.New("validation error")

// CapacityError reports a capacity violation along with the number
// of seats (or pass slots) still available, so the caller can show
// "only N seats remain". It matches ErrCapacityExceeded under
// errors.Is.
type CapacityError struct {
	Remaining uint32
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: %d remaining", e.Remaining)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// isDuplicateKey reports whether err is a MySQL duplicate-key
// violation (error 1062), used to detect lost uniqueness races on
// access codes, table numbers and entry request ids.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
