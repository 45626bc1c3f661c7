package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/kunugida/reservation-queue/internal/model"
)

// CallResult reports the outcome of calling one group.  CallMany is not
// atomic; each group is attempted independently and surfaced here.
type CallResult struct {
	Number int
	Err    error
}

// Call transitions a waiting group to calling.  It fails with
// ErrAlreadyCalling when another group for the day is already at the
// entrance, and with ErrValidation when the group has no eligible member
// left to call.
func (s *Scheduler) Call(ctx context.Context, day model.Day, number int) error {
	if !day.Valid() {
		return fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	calling, err := s.store.GetCallingGroup(ctx, day)
	if err != nil {
		return fmt.Errorf("get calling group: %w", err)
	}
	if calling != nil {
		if calling.Number == number {
			return ErrAlreadyCalling
		}
		return fmt.Errorf("%w: group %d is at the entrance", ErrAlreadyCalling, calling.Number)
	}

	g, err := s.store.GetGroup(ctx, day, number)
	if err != nil {
		return err
	}
	if g.CallState != model.CallWaiting {
		return fmt.Errorf("%w: group %d is %s", ErrAlreadyCalling, number, g.CallState)
	}
	byID, err := s.reservationIndex(ctx, day)
	if err != nil {
		return err
	}
	cand := buildCandidate(*g, byID)
	if len(cand.Members) == 0 {
		return fmt.Errorf("%w: group %d has no callable member", ErrValidation, number)
	}

	if err := s.store.SetGroupCallState(ctx, day, number, model.CallWaiting, model.CallCalling); err != nil {
		if errors.Is(err, ErrStaleWrite) {
			// Another session moved this group, or called a different
			// one, between our read and the transition.  The store-side
			// guard on the calling transition is authoritative.
			return fmt.Errorf("%w: group %d moved concurrently", ErrAlreadyCalling, number)
		}
		return err
	}
	if s.events != nil {
		ids := make([]string, 0, len(cand.Members))
		for _, m := range cand.Members {
			ids = append(ids, m.ID)
		}
		s.events.GroupCalled(ctx, day, number, ids)
	}
	return nil
}

// CallingGroup returns the group currently at the entrance, or nil when
// no call is in progress.
func (s *Scheduler) CallingGroup(ctx context.Context, day model.Day) (*model.Group, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	return s.store.GetCallingGroup(ctx, day)
}

// CallMany applies Call to each group independently.  One rejection does
// not block the others; with a single entrance at most one call can
// succeed and the rest report ErrAlreadyCalling.
func (s *Scheduler) CallMany(ctx context.Context, day model.Day, numbers []int) []CallResult {
	results := make([]CallResult, 0, len(numbers))
	for _, n := range numbers {
		results = append(results, CallResult{Number: n, Err: s.Call(ctx, day, n)})
	}
	return results
}

// MarkVisited records that a member of the calling group showed up.  When
// it was the last unresolved member the group auto-completes and the
// rollover countdown is armed.  Operating on a purged reservation is a
// no-op.
func (s *Scheduler) MarkVisited(ctx context.Context, id string) error {
	r, err := s.store.GetReservation(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil // already resolved elsewhere
	}
	if err != nil {
		return err
	}
	if r.Status != model.StatusWaiting {
		return fmt.Errorf("%w: reservation %s is %s", ErrValidation, id, r.Status)
	}
	day, g, err := s.owningGroup(ctx, r)
	if err != nil {
		return err
	}
	if g == nil || g.CallState != model.CallCalling {
		return fmt.Errorf("%w: reservation %s is not part of the calling group", ErrValidation, id)
	}

	status := model.StatusVisited
	priority := false
	if err := s.store.UpdateReservation(ctx, id, r.Version, ReservationUpdate{
		Status:   &status,
		Priority: &priority,
	}); err != nil {
		return err
	}
	return s.completeIfResolved(ctx, day, g.Number)
}

// MarkAbsent records a no-show.  The reservation keeps waiting status but
// is stamped absent and handed to the absence monitor; it leaves its
// group's active membership (and the staging set, in the drag-assembly
// flow).  If the group was being called, the vacated capacity is
// refilled from a later group when possible.
func (s *Scheduler) MarkAbsent(ctx context.Context, id string) error {
	r, err := s.store.GetReservation(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if r.Absent {
		return nil // already tracked
	}
	if r.Status != model.StatusWaiting {
		return fmt.Errorf("%w: reservation %s is %s", ErrValidation, id, r.Status)
	}

	absent := true
	now := s.now()
	if err := s.store.UpdateReservation(ctx, id, r.Version, ReservationUpdate{
		Absent:     &absent,
		AbsentAt:   &now,
		ClearGroup: true,
	}); err != nil {
		return err
	}
	s.RemoveFromStaging(id)

	day, g, err := s.owningGroup(ctx, r)
	if err != nil {
		log.Printf("scheduler: absent %s: owning group lookup failed: %v", id, err)
	} else if g != nil {
		s.detachFromGroup(ctx, day, g, r)
	}

	if s.events != nil {
		r.Absent = true
		r.AbsentAt = &now
		s.events.ReservationAbsent(ctx, *r)
	}
	return nil
}

// detachFromGroup removes an absentee from its group's membership,
// refills the vacated slot when the group is mid-call, and completes the
// group if the absentee was the last unresolved member.  Each write is
// independent; failures are logged, never rolled back.
func (s *Scheduler) detachFromGroup(ctx context.Context, day model.Day, g *model.Group, r *model.Reservation) {
	members := make([]string, 0, len(g.Members))
	for _, id := range g.Members {
		if id != r.ID {
			members = append(members, id)
		}
	}
	if len(members) != len(g.Members) {
		if err := s.store.SetGroupMembers(ctx, day, g.Number, members); err != nil {
			log.Printf("scheduler: drop %s from group %d: %v", r.ID, g.Number, err)
			return
		}
		g.Members = members
	}
	if g.CallState != model.CallCalling {
		return
	}
	if err := s.fillVacantSlot(ctx, day, g, r.Headcount); err != nil {
		log.Printf("scheduler: refill group %d: %v", g.Number, err)
	}
	if err := s.completeIfResolved(ctx, day, g.Number); err != nil {
		log.Printf("scheduler: complete group %d: %v", g.Number, err)
	}
}

// fillVacantSlot pulls the best waiting reservation from a later group
// into the calling group: promoted absentees first, then the lowest group
// number, then the lowest id.  Only parties that fit the vacated
// headcount qualify.  Doing nothing is fine; the group simply runs
// smaller.
func (s *Scheduler) fillVacantSlot(ctx context.Context, day model.Day, g *model.Group, vacated int) error {
	snapshot, err := s.store.ListReservations(ctx, day)
	if err != nil {
		return err
	}
	var candidates []model.Reservation
	for _, r := range snapshot {
		if !r.Eligible() || r.GroupNumber == nil || *r.GroupNumber <= g.Number {
			continue
		}
		if r.Headcount <= vacated {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority
		}
		if *a.GroupNumber != *b.GroupNumber {
			return *a.GroupNumber < *b.GroupNumber
		}
		return a.ID < b.ID
	})
	pick := candidates[0]
	oldNumber := *pick.GroupNumber

	priority := false
	if err := s.store.UpdateReservation(ctx, pick.ID, pick.Version, ReservationUpdate{
		GroupNumber: &g.Number,
		Priority:    &priority,
	}); err != nil {
		return err
	}
	if old, err := s.store.GetGroup(ctx, day, oldNumber); err == nil {
		trimmed := make([]string, 0, len(old.Members))
		for _, id := range old.Members {
			if id != pick.ID {
				trimmed = append(trimmed, id)
			}
		}
		if err := s.store.SetGroupMembers(ctx, day, oldNumber, trimmed); err != nil {
			log.Printf("scheduler: trim group %d after refill: %v", oldNumber, err)
		}
	}
	if err := s.store.SetGroupMembers(ctx, day, g.Number, append(g.Members, pick.ID)); err != nil {
		return err
	}
	g.Members = append(g.Members, pick.ID)
	log.Printf("scheduler: moved %s into calling group %d to fill a vacated slot", pick.ID, g.Number)
	return nil
}

// Reset returns a calling or completed group to the waiting state and
// cancels any armed rollover countdown.  Resetting an already-waiting
// group is a no-op.
func (s *Scheduler) Reset(ctx context.Context, day model.Day, number int) error {
	if !day.Valid() {
		return fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	g, err := s.store.GetGroup(ctx, day, number)
	if err != nil {
		return err
	}
	if g.CallState == model.CallWaiting {
		return nil
	}
	s.CancelRollover(day, number)
	return s.store.SetGroupCallState(ctx, day, number, g.CallState, model.CallWaiting)
}

// completeIfResolved transitions a calling group to completed once no
// active member is still waiting, and arms the rollover countdown.
func (s *Scheduler) completeIfResolved(ctx context.Context, day model.Day, number int) error {
	g, err := s.store.GetGroup(ctx, day, number)
	if err != nil {
		return err
	}
	if g.CallState != model.CallCalling {
		return nil
	}
	byID, err := s.reservationIndex(ctx, day)
	if err != nil {
		return err
	}
	for _, id := range g.Members {
		if r, ok := byID[id]; ok && r.Status == model.StatusWaiting && !r.Absent {
			return nil
		}
	}
	if err := s.store.SetGroupCallState(ctx, day, number, model.CallCalling, model.CallCompleted); err != nil {
		return err
	}
	s.armRollover(day, number)
	return nil
}

// owningGroup resolves the group a reservation currently belongs to.
// Returns a nil group for ungrouped reservations.
func (s *Scheduler) owningGroup(ctx context.Context, r *model.Reservation) (model.Day, *model.Group, error) {
	spec, err := model.LookupCategory(r.Category())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if r.GroupNumber == nil {
		return spec.Day, nil, nil
	}
	g, err := s.store.GetGroup(ctx, spec.Day, *r.GroupNumber)
	if errors.Is(err, ErrNotFound) {
		return spec.Day, nil, nil
	}
	if err != nil {
		return spec.Day, nil, err
	}
	return spec.Day, g, nil
}
