package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

// precallWindow is how far ahead of its scheduled time a time-slot
// reservation is folded into a call group.
const precallWindow = 5 * time.Minute

// GroupCandidate is a stored group offered to the operator for calling.
type GroupCandidate struct {
	Number         int                 `json:"number"`
	HasPriority    bool                `json:"has_priority"`
	TotalHeadcount int                 `json:"total_headcount"`
	Members        []model.Reservation `json:"members"`
}

// FormCandidateGroups aggregates reservations by their stored group
// number into call candidates.  Only waiting groups with at least one
// eligible member qualify; the group currently being called is excluded
// by virtue of not being in the waiting state.  Candidates carrying a
// promoted absentee sort ahead, then lower numbers first.
func (s *Scheduler) FormCandidateGroups(ctx context.Context, day model.Day) ([]GroupCandidate, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	groups, err := s.store.ListGroups(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	byID, err := s.reservationIndex(ctx, day)
	if err != nil {
		return nil, err
	}

	candidates := make([]GroupCandidate, 0, len(groups))
	for _, g := range groups {
		if g.CallState != model.CallWaiting {
			continue
		}
		cand := buildCandidate(g, byID)
		if len(cand.Members) == 0 {
			continue
		}
		candidates = append(candidates, cand)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].HasPriority != candidates[j].HasPriority {
			return candidates[i].HasPriority
		}
		return candidates[i].Number < candidates[j].Number
	})
	return candidates, nil
}

// NextGroup computes the group the operator should call next.  It first
// folds due time-slot reservations into groups, then synthesizes a fresh
// group from any promoted absentees, and finally falls back to the best
// ordinary candidate.  Returns nil when nothing is waiting.
func (s *Scheduler) NextGroup(ctx context.Context, day model.Day) (*GroupCandidate, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	if err := s.assignDueTimeSlots(ctx, day); err != nil {
		// Fold-in failures must not hide the queue from the operator.
		log.Printf("scheduler: time-slot fold-in failed: %v", err)
	}
	if cand, err := s.synthesizePriorityGroup(ctx, day); err != nil {
		log.Printf("scheduler: priority group synthesis failed: %v", err)
	} else if cand != nil {
		return cand, nil
	}
	candidates, err := s.FormCandidateGroups(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

// assignDueTimeSlots attaches every unassigned time-slot reservation
// whose call time (scheduled time minus the pre-call window) has arrived
// to the earliest waiting group with room, or to a fresh group.
func (s *Scheduler) assignDueTimeSlots(ctx context.Context, day model.Day) error {
	snapshot, err := s.store.ListReservations(ctx, day)
	if err != nil {
		return err
	}
	now := s.now()
	for _, r := range snapshot {
		if !r.Eligible() || r.GroupNumber != nil || r.ScheduledTime == nil {
			continue
		}
		spec, err := model.LookupCategory(r.Category())
		if err != nil || spec.Lane != model.LanePriorityTime || spec.Day != day {
			continue
		}
		// Slots are wall-clock times at the venue; interpret them in the
		// scheduler clock's zone so the pre-call window does not shift on
		// servers running outside UTC.
		slot, err := time.ParseInLocation("2006-01-02 15:04", string(day)+" "+*r.ScheduledTime, now.Location())
		if err != nil {
			log.Printf("scheduler: reservation %s has malformed scheduled time %q", r.ID, *r.ScheduledTime)
			continue
		}
		if now.Before(slot.Add(-precallWindow)) {
			continue
		}
		if _, err := s.placeInGroup(ctx, day, r, 0); err != nil {
			return fmt.Errorf("assign %s: %w", r.ID, err)
		}
	}
	return nil
}

// synthesizePriorityGroup packs waiting promoted absentees into a fresh
// group and returns it as the next candidate.  Members that do not fit
// under the capacity stay where they are and ride the next synthesis.
func (s *Scheduler) synthesizePriorityGroup(ctx context.Context, day model.Day) (*GroupCandidate, error) {
	snapshot, err := s.store.ListReservations(ctx, day)
	if err != nil {
		return nil, err
	}
	var promoted []model.Reservation
	for _, r := range snapshot {
		// Already-grouped promoted entries surface through the ordinary
		// candidate ordering; only loose ones need a fresh group.
		if !r.Eligible() || !r.Priority || r.GroupNumber != nil {
			continue
		}
		if spec, err := model.LookupCategory(r.Category()); err != nil || spec.Day != day {
			continue
		}
		promoted = append(promoted, r)
	}
	if len(promoted) == 0 {
		return nil, nil
	}
	sort.SliceStable(promoted, func(i, j int) bool {
		return promoted[i].CreatedAt.Before(promoted[j].CreatedAt)
	})

	groups, err := s.store.ListGroups(ctx, day)
	if err != nil {
		return nil, err
	}
	number := nextGroupNumber(groups, 0)
	g := &model.Group{Number: number, Day: day, CallState: model.CallWaiting, CreatedAt: s.now()}

	cand := &GroupCandidate{Number: number, HasPriority: true, Members: []model.Reservation{}}
	for _, r := range promoted {
		if cand.TotalHeadcount+r.Headcount > model.MaxGroupHeadcount {
			continue
		}
		if err := s.store.UpdateReservation(ctx, r.ID, r.Version, ReservationUpdate{GroupNumber: &number}); err != nil {
			// Lost a race for this member; leave it for the next pass.
			log.Printf("scheduler: could not move %s into priority group %d: %v", r.ID, number, err)
			continue
		}
		g.Members = append(g.Members, r.ID)
		r.GroupNumber = &number
		cand.Members = append(cand.Members, r)
		cand.TotalHeadcount += r.Headcount
	}
	if len(g.Members) == 0 {
		return nil, nil
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("create priority group: %w", err)
	}
	return cand, nil
}

// placeInGroup puts the reservation into the lowest-numbered waiting
// group that has room, creating a new group when none fits.  parity is 0
// for no constraint, 1 for odd-only, 2 for even-only numbers.
func (s *Scheduler) placeInGroup(ctx context.Context, day model.Day, r model.Reservation, parity int) (int, error) {
	groups, err := s.store.ListGroups(ctx, day)
	if err != nil {
		return 0, err
	}
	byID, err := s.reservationIndex(ctx, day)
	if err != nil {
		return 0, err
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Number < groups[j].Number })
	for _, g := range groups {
		if g.CallState != model.CallWaiting || !matchesParity(g.Number, parity) {
			continue
		}
		if groupHeadcount(g, byID)+r.Headcount > model.MaxGroupHeadcount {
			continue
		}
		if err := s.store.UpdateReservation(ctx, r.ID, r.Version, ReservationUpdate{GroupNumber: &g.Number}); err != nil {
			return 0, err
		}
		if err := s.store.SetGroupMembers(ctx, day, g.Number, append(g.Members, r.ID)); err != nil {
			return 0, err
		}
		return g.Number, nil
	}

	number := nextGroupNumber(groups, parity)
	if err := s.store.CreateGroup(ctx, &model.Group{
		Number:    number,
		Day:       day,
		Members:   []string{r.ID},
		CallState: model.CallWaiting,
		CreatedAt: s.now(),
	}); err != nil {
		return 0, err
	}
	if err := s.store.UpdateReservation(ctx, r.ID, r.Version, ReservationUpdate{GroupNumber: &number}); err != nil {
		return 0, err
	}
	return number, nil
}

// reservationIndex loads the day's snapshot keyed by id.
func (s *Scheduler) reservationIndex(ctx context.Context, day model.Day) (map[string]model.Reservation, error) {
	snapshot, err := s.store.ListReservations(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	byID := make(map[string]model.Reservation, len(snapshot))
	for _, r := range snapshot {
		byID[r.ID] = r
	}
	return byID, nil
}

// buildCandidate filters a stored group down to its eligible members.
func buildCandidate(g model.Group, byID map[string]model.Reservation) GroupCandidate {
	cand := GroupCandidate{Number: g.Number, Members: []model.Reservation{}}
	for _, id := range g.Members {
		r, ok := byID[id]
		if !ok || !r.Eligible() {
			continue
		}
		if r.Priority {
			cand.HasPriority = true
		}
		cand.Members = append(cand.Members, r)
		cand.TotalHeadcount += r.Headcount
	}
	return cand
}

// groupHeadcount sums the headcount of a group's still-active members.
func groupHeadcount(g model.Group, byID map[string]model.Reservation) int {
	total := 0
	for _, id := range g.Members {
		if r, ok := byID[id]; ok && r.Status == model.StatusWaiting {
			total += r.Headcount
		}
	}
	return total
}

// nextGroupNumber picks a fresh group number above every existing one,
// honoring the parity constraint (odd numbers carry advance
// reservations, even numbers walk-ins).
func nextGroupNumber(groups []model.Group, parity int) int {
	existing := make(map[int]bool, len(groups))
	max := 0
	for _, g := range groups {
		existing[g.Number] = true
		if g.Number > max {
			max = g.Number
		}
	}
	step := 1
	next := max + 1
	switch parity {
	case 1:
		if next%2 == 0 {
			next++
		}
		step = 2
	case 2:
		if next%2 == 1 {
			next++
		}
		step = 2
	}
	for existing[next] {
		next += step
	}
	return next
}

// matchesParity reports whether a group number satisfies the parity
// constraint (0 none, 1 odd, 2 even).
func matchesParity(number, parity int) bool {
	switch parity {
	case 1:
		return number%2 == 1
	case 2:
		return number%2 == 0
	}
	return true
}
