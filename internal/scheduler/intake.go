package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/kunugida/reservation-queue/internal/model"
)

// CreateRequest is a new reservation entered by an operator.
type CreateRequest struct {
	Category      string `json:"category"`       // single category letter
	Day           string `json:"day"`            // event day, must match the category
	Headcount     int    `json:"headcount"`      // people in the party, 1..capacity
	ScheduledTime string `json:"scheduled_time"` // "HH:MM", time-slot categories only
}

// CreateReservation validates the request, generates the next sequential
// id for the category, and for standard categories assigns a group right
// away: advance reservations ride odd-numbered groups, walk-ins even
// ones.  Time-slot reservations stay ungrouped until their pre-call
// window opens.
func (s *Scheduler) CreateReservation(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	if len(req.Category) != 1 {
		return nil, fmt.Errorf("%w: category must be a single letter", ErrValidation)
	}
	cat := model.Category(req.Category[0])
	spec, err := model.LookupCategory(cat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	day := model.Day(req.Day)
	if !day.Valid() {
		return nil, fmt.Errorf("%w: invalid day %q", ErrValidation, req.Day)
	}
	if spec.Day != day {
		return nil, fmt.Errorf("%w: category %s belongs to %s", ErrValidation, req.Category, spec.Day)
	}
	if req.Headcount < 1 || req.Headcount > model.MaxGroupHeadcount {
		return nil, fmt.Errorf("%w: headcount must be between 1 and %d", ErrValidation, model.MaxGroupHeadcount)
	}
	if spec.RequiresTime && req.ScheduledTime == "" {
		return nil, fmt.Errorf("%w: category %s requires a scheduled time", ErrValidation, req.Category)
	}
	if !spec.RequiresTime && req.ScheduledTime != "" {
		return nil, fmt.Errorf("%w: category %s does not take a scheduled time", ErrValidation, req.Category)
	}

	snapshot, err := s.store.ListReservations(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	r := &model.Reservation{
		ID:        nextReservationID(snapshot, cat),
		Day:       day,
		Headcount: req.Headcount,
		Status:    model.StatusWaiting,
		CreatedAt: s.now(),
	}
	if spec.RequiresTime {
		t := req.ScheduledTime
		r.ScheduledTime = &t
	}
	if err := s.store.CreateReservation(ctx, r); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	if spec.Lane == model.LaneStandard {
		parity := 2 // walk-ins ride even groups
		if spec.Advance {
			parity = 1
		}
		number, err := s.placeInGroup(ctx, day, *r, parity)
		if err != nil {
			// The reservation exists; it just has no group yet.  The
			// operator can stage it by hand.
			return r, fmt.Errorf("assign group: %w", err)
		}
		r.GroupNumber = &number
	}
	return r, nil
}

// CancelReservation is an explicit operator cancellation.  The record
// becomes terminal Cancelled, leaves the staging set and its group's
// active membership, and stops counting toward auto-stop.  Cancelling a
// record that is already gone or already cancelled is a no-op.
func (s *Scheduler) CancelReservation(ctx context.Context, id string) error {
	r, err := s.store.GetReservation(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if r.Status == model.StatusCancelled {
		return nil
	}
	if r.Status == model.StatusVisited {
		return fmt.Errorf("%w: reservation %s already visited", ErrValidation, id)
	}

	status := model.StatusCancelled
	reason := model.CancelReasonOperator
	priority := false
	if err := s.store.UpdateReservation(ctx, id, r.Version, ReservationUpdate{
		Status:       &status,
		CancelReason: &reason,
		Priority:     &priority,
		ClearAbsence: true,
		ClearGroup:   true,
	}); err != nil {
		return err
	}
	s.RemoveFromStaging(id)

	day, g, err := s.owningGroup(ctx, r)
	if err != nil {
		log.Printf("scheduler: cancel %s: owning group lookup failed: %v", id, err)
	} else if g != nil {
		s.detachFromGroup(ctx, day, g, r)
	}
	return nil
}

// nextReservationID produces the next id for a category: the letter
// followed by a zero-padded sequence one past the highest seen.
func nextReservationID(snapshot []model.Reservation, cat model.Category) string {
	max := 0
	prefix := string(cat)
	for _, r := range snapshot {
		if !strings.HasPrefix(r.ID, prefix) {
			continue
		}
		if n, err := strconv.Atoi(r.ID[1:]); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, max+1)
}
