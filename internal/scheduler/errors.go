// Package scheduler implements the reservation queue and group-call
// scheduler: lane classification, group formation, the call lifecycle
// state machine, the absence monitor and the admission controller.  It
// operates on snapshots read through the Store interface and commits
// individual record updates back; there is no multi-record transaction,
// so every flow tolerates partial application.
package scheduler

import "errors"

// ErrCapacityExceeded is returned when adding a reservation would push a
// group's total headcount past model.MaxGroupHeadcount.  The operation
// leaves no state behind; the operator can retry with a smaller party.
var ErrCapacityExceeded = errors.New("group capacity exceeded")

// ErrAlreadyCalling is returned when a group call is attempted while
// another group for the same day is already in the calling state.
var ErrAlreadyCalling = errors.New("another group is already being called")

// ErrNotFound is returned when an operation targets a reservation or
// group that no longer exists.  Callers acting on purged records treat
// this as already-resolved.
var ErrNotFound = errors.New("record not found")

// ErrStaleWrite is returned when the store rejects an update because the
// record changed since it was read.  It is recoverable: re-fetch and
// retry is an operator action, never an implicit loop inside the
// scheduler.
var ErrStaleWrite = errors.New("record changed since last read")

// ErrValidation is returned when a request is rejected before any write,
// e.g. a time-slot category without a scheduled time.
var ErrValidation = errors.New("validation failed")
