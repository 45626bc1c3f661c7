package model

import "time"

// MaxGroupHeadcount is the hard capacity of a call group.  No sequence of
// add/assign operations may push a group's total past this value.
const MaxGroupHeadcount = 4

// CallState enumerates the lifecycle of a call group.  Values are
// persisted by the record store and must not be reordered.
type CallState uint8

const (
	CallWaiting   CallState = 0 // queued, may be called
	CallCalling   CallState = 1 // at the entrance, being processed
	CallCompleted CallState = 2 // every member resolved
)

// String returns a lowercase label for logging and JSON payloads.
func (s CallState) String() string {
	switch s {
	case CallWaiting:
		return "waiting"
	case CallCalling:
		return "calling"
	case CallCompleted:
		return "completed"
	}
	return "unknown"
}

// Group bundles up to MaxGroupHeadcount people worth of reservations that
// are called forward together.  Numbers are unique per day; odd numbers
// carry advance reservations, even numbers walk-ins.
type Group struct {
	Number      int        // groups.number (unique per day)
	Day         Day        // groups.day
	Members     []string   // groups_members.reservation_id, active membership
	CallState   CallState  // groups.call_state
	CalledAt    *time.Time // groups.called_at (nullable)
	CompletedAt *time.Time // groups.completed_at (nullable)
	CreatedAt   time.Time  // groups.created_at
}
