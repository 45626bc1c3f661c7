package scheduler

import (
	"context"
	"fmt"

	"github.com/kunugida/reservation-queue/internal/model"
)

// StagedView is a snapshot of the interactive staging group an operator
// is assembling for one day.
type StagedView struct {
	Members        []model.Reservation `json:"members"`
	TotalHeadcount int                 `json:"total_headcount"`
}

// CommitResult reports the outcome of committing one staged member.
// Commit is not atomic; members that fail stay staged.
type CommitResult struct {
	ID  string
	Err error
}

// AddToStaging pulls a standard-lane reservation into the staging group
// for its day.  Adding an entry whose headcount would push the running
// total past the group capacity fails with ErrCapacityExceeded and
// changes nothing.  Adding an already-staged entry is a no-op.
func (s *Scheduler) AddToStaging(ctx context.Context, id string) error {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !r.Eligible() {
		return fmt.Errorf("%w: reservation %s is not waiting", ErrValidation, id)
	}
	spec, err := model.LookupCategory(r.Category())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if spec.Lane != model.LaneStandard {
		return fmt.Errorf("%w: time-slot reservations are called by schedule, not staged", ErrValidation)
	}
	day := spec.Day

	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, sid := range s.staged[day] {
		if sid == id {
			return nil
		}
		m, err := s.store.GetReservation(ctx, sid)
		if err != nil {
			// A staged member vanished underneath us; drop it rather
			// than let a ghost block the capacity check.
			continue
		}
		total += m.Headcount
	}
	if total+r.Headcount > model.MaxGroupHeadcount {
		return ErrCapacityExceeded
	}
	s.staged[day] = append(s.staged[day], id)
	return nil
}

// RemoveFromStaging drops a reservation from its staging group.  The
// entry reappears in its lane on the next classification.  Removing an
// entry that is not staged is a no-op.
func (s *Scheduler) RemoveFromStaging(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for day, ids := range s.staged {
		for i, sid := range ids {
			if sid == id {
				s.staged[day] = append(ids[:i], ids[i+1:]...)
				return
			}
		}
	}
}

// StagedGroup returns the current staging set for a day with member
// records and the running headcount.  Members that were resolved or
// purged by another session are silently dropped from the set.
func (s *Scheduler) StagedGroup(ctx context.Context, day model.Day) (StagedView, error) {
	if !day.Valid() {
		return StagedView{}, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	view := StagedView{Members: []model.Reservation{}}
	kept := s.staged[day][:0]
	for _, id := range s.staged[day] {
		r, err := s.store.GetReservation(ctx, id)
		if err != nil || !r.Eligible() {
			continue
		}
		kept = append(kept, id)
		view.Members = append(view.Members, *r)
		view.TotalHeadcount += r.Headcount
	}
	s.staged[day] = kept
	return view, nil
}

// CommitStaging applies the accept policy to every staged member and
// clears the set.  Each member is committed independently; one failure
// does not roll back the others, and failed members remain staged so the
// operator can retry.
func (s *Scheduler) CommitStaging(ctx context.Context, day model.Day) ([]CommitResult, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	s.mu.Lock()
	ids := append([]string(nil), s.staged[day]...)
	s.mu.Unlock()

	results := make([]CommitResult, 0, len(ids))
	committed := make(map[string]bool, len(ids))
	for _, id := range ids {
		err := s.commitOne(ctx, id)
		if err == nil {
			committed[id] = true
		}
		results = append(results, CommitResult{ID: id, Err: err})
	}

	// Remove only the committed ids from the live set.  Failed members
	// stay staged, and so does anything another session staged while the
	// commit was running.
	s.mu.Lock()
	kept := s.staged[day][:0]
	for _, id := range s.staged[day] {
		if !committed[id] {
			kept = append(kept, id)
		}
	}
	s.staged[day] = kept
	s.mu.Unlock()
	return results, nil
}

func (s *Scheduler) commitOne(ctx context.Context, id string) error {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	switch s.cfg.AcceptPolicy {
	case AcceptDelete:
		return s.store.DeleteReservation(ctx, id)
	default:
		status := model.StatusVisited
		priority := false
		return s.store.UpdateReservation(ctx, id, r.Version, ReservationUpdate{
			Status:   &status,
			Priority: &priority,
		})
	}
}

// stagedHeadcount sums the headcount of staged members that are still
// waiting.  Staged parties have left the lanes but not the venue, so
// admission checks count them.
func (s *Scheduler) stagedHeadcount(ctx context.Context, day model.Day) int {
	s.mu.Lock()
	ids := append([]string(nil), s.staged[day]...)
	s.mu.Unlock()
	total := 0
	for _, id := range ids {
		r, err := s.store.GetReservation(ctx, id)
		if err != nil || !r.Eligible() {
			continue
		}
		total += r.Headcount
	}
	return total
}

// stagedSet returns the staged ids for a day as a lookup set.
func (s *Scheduler) stagedSet(day model.Day) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.staged[day]) == 0 {
		return nil
	}
	set := make(map[string]bool, len(s.staged[day]))
	for _, id := range s.staged[day] {
		set[id] = true
	}
	return set
}
