package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

// Absentee is a no-show tracked during its grace period.
type Absentee struct {
	Reservation model.Reservation `json:"reservation"`
	Elapsed     time.Duration     `json:"elapsed"`
}

// ListAbsentees returns the day's absentees, oldest first, each annotated
// with the time elapsed since it was marked absent.
func (s *Scheduler) ListAbsentees(ctx context.Context, day model.Day) ([]Absentee, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	snapshot, err := s.store.ListReservations(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	now := s.now()
	out := []Absentee{}
	for _, r := range snapshot {
		if !r.Absent || r.Status != model.StatusWaiting || r.AbsentAt == nil {
			continue
		}
		if spec, err := model.LookupCategory(r.Category()); err != nil || spec.Day != day {
			continue
		}
		out = append(out, Absentee{Reservation: r, Elapsed: now.Sub(*r.AbsentAt)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Reservation.AbsentAt.Before(*out[j].Reservation.AbsentAt)
	})
	return out, nil
}

// SweepAbsentees purges every absentee whose grace period has run out.
// Each purge is attempted once per sweep; a record purged by an earlier
// sweep (or a racing session) is simply gone and costs nothing.  Returns
// the ids purged this pass.
func (s *Scheduler) SweepAbsentees(ctx context.Context, day model.Day) ([]string, error) {
	absentees, err := s.ListAbsentees(ctx, day)
	if err != nil {
		return nil, err
	}
	var purged []string
	for _, a := range absentees {
		if a.Elapsed < s.cfg.AbsenceGrace {
			continue
		}
		if err := s.purge(ctx, a.Reservation); err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStaleWrite) {
				continue // another session resolved it first
			}
			log.Printf("scheduler: purge %s failed: %v", a.Reservation.ID, err)
			continue
		}
		purged = append(purged, a.Reservation.ID)
	}
	return purged, nil
}

// purge applies the configured purge policy to a timed-out absentee.
func (s *Scheduler) purge(ctx context.Context, r model.Reservation) error {
	if s.cfg.PurgePolicy == PurgeDelete {
		return s.store.DeleteReservation(ctx, r.ID)
	}
	status := model.StatusCancelled
	reason := model.CancelReasonTimeout
	priority := false
	return s.store.UpdateReservation(ctx, r.ID, r.Version, ReservationUpdate{
		Status:       &status,
		CancelReason: &reason,
		Priority:     &priority,
		ClearAbsence: true,
	})
}

// GuideBack re-admits an absentee who showed up before the grace period
// ran out.  The reservation loses its absence stamp and gains priority,
// which puts it ahead of every non-priority entry in the standard lane.
// This is the only place priority is ever granted.
func (s *Scheduler) GuideBack(ctx context.Context, id string) error {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !r.Absent {
		return fmt.Errorf("%w: reservation %s is not marked absent", ErrValidation, id)
	}
	if r.Status != model.StatusWaiting {
		return fmt.Errorf("%w: reservation %s is %s", ErrValidation, id, r.Status)
	}
	priority := true
	return s.store.UpdateReservation(ctx, id, r.Version, ReservationUpdate{
		Priority:     &priority,
		ClearAbsence: true,
	})
}
