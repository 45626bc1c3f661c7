package model

import "time"

// ReservationStatus enumerates the lifecycle states a reservation can be
// in.  The numeric values match what the record store persists, so they
// must never be reordered.
type ReservationStatus uint8

const (
	StatusWaiting   ReservationStatus = 0 // queued, eligible for lanes
	StatusVisited   ReservationStatus = 1 // admitted at the entrance
	StatusCancelled ReservationStatus = 2 // withdrawn or purged
)

// String returns a lowercase label for logging and JSON payloads.
func (s ReservationStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusVisited:
		return "visited"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Cancel reasons stored alongside a cancelled reservation.
const (
	// CancelReasonTimeout marks a reservation cancelled by the absence
	// monitor after the grace period elapsed.
	CancelReasonTimeout = "priority_timeout"
	// CancelReasonOperator marks an explicit cancellation at the desk.
	CancelReasonOperator = "operator"
)

// Reservation is a single party queued for admission.  The first character
// of the ID encodes the category (see category.go), which in turn fixes the
// event day and lane.
//
// Invariants:
//   - Absent is only ever true while Status is StatusWaiting.
//   - ScheduledTime is set iff the category requires a time slot.
//   - Priority is set only when an absentee is guided back before timeout.
type Reservation struct {
	ID            string            // reservations.id, e.g. "A0012"
	Day           Day               // reservations.day
	Headcount     int               // reservations.headcount (people in the party)
	ScheduledTime *string           // reservations.scheduled_time ("HH:MM", time-slot categories only)
	Status        ReservationStatus // reservations.status
	Priority      bool              // reservations.priority (re-admitted absentee)
	Absent        bool              // reservations.absent
	AbsentAt      *time.Time        // reservations.absent_at (set together with Absent)
	CancelReason  *string           // reservations.cancel_reason (nullable)
	GroupNumber   *int              // reservations.group_number (nullable)
	CreatedAt     time.Time         // reservations.created_at
	Version       uint64            // reservations.version, bumped on every write
}

// Category returns the category letter encoded in the reservation ID.
func (r *Reservation) Category() Category {
	if r.ID == "" {
		return 0
	}
	return Category(r.ID[0])
}

// Eligible reports whether the reservation may appear in a lane: it must
// still be waiting and not currently marked absent.
func (r *Reservation) Eligible() bool {
	return r.Status == StatusWaiting && !r.Absent
}
