// Package repository implements the MySQL record store for reservations,
// call groups and operator settings.  These sentinel values let higher
// layers distinguish failure scenarios: handlers translate them into
// HTTP statuses and the scheduler treats a stale write as a recoverable
// conflict rather than a crash.
package repository

import "errors"

// ErrReservationNotFound is returned when no reservation exists with the
// requested id.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrGroupNotFound is returned when no group exists with the requested
// day and number.
var ErrGroupNotFound = errors.New("group not found")

// ErrStaleWrite is returned when an update loses an optimistic
// concurrency check: the record changed since the caller read it.  The
// caller should re-fetch and retry; the repository never overwrites a
// concurrent change silently.
var ErrStaleWrite = errors.New("stale write")
