// Package queue defines message payloads exchanged over the message broker.
package queue

// GroupCalledEvent is published when an operator calls a group to the
// service counter.  It carries enough context for the call-log consumer
// and any display surfaces without querying the primary database.
type GroupCalledEvent struct {
	Day         string   `json:"day"`
	GroupNumber int      `json:"group_number"`
	MemberIDs   []string `json:"member_ids"`
	CalledAt    string   `json:"called_at"`
}

// ReservationAbsentEvent is published when a reservation is marked
// absent and detached from its group.
type ReservationAbsentEvent struct {
	ReservationID string `json:"reservation_id"`
	Day           string `json:"day"`
	Category      string `json:"category"`
	Headcount     int    `json:"headcount"`
	AbsentAt      string `json:"absent_at"`
}

// ReceptionClosedEvent is published when the auto-stop check closes
// reception after the waiting headcount crossed the threshold.
type ReceptionClosedEvent struct {
	Day              string `json:"day"`
	WaitingHeadcount int    `json:"waiting_headcount"`
	ClosedAt         string `json:"closed_at"`
}
