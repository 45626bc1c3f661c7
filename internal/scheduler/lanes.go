package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/kunugida/reservation-queue/internal/model"
)

// Lanes is the classified view of the waiting queue for one day.
type Lanes struct {
	Standard     []model.Reservation // priority first, then FIFO by creation
	PriorityTime []model.Reservation // time-slot parties by scheduled time
}

// WaitingHeadcount sums the headcount of every entry across both lanes.
// The admission controller compares this against the auto-stop threshold.
func (l Lanes) WaitingHeadcount() int {
	total := 0
	for _, r := range l.Standard {
		total += r.Headcount
	}
	for _, r := range l.PriorityTime {
		total += r.Headcount
	}
	return total
}

// ClassifyLanes fetches the day's snapshot and splits it into the two
// lanes.  Reservations currently staged by the operator are excluded so
// that a staged entry cannot be picked twice.
func (s *Scheduler) ClassifyLanes(ctx context.Context, day model.Day) (Lanes, error) {
	if !day.Valid() {
		return Lanes{}, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	snapshot, err := s.store.ListReservations(ctx, day)
	if err != nil {
		return Lanes{}, fmt.Errorf("list reservations: %w", err)
	}
	return classify(snapshot, day, s.stagedSet(day)), nil
}

// classify is the pure core of the lane classifier.  It excludes
// absentees, non-waiting entries, wrong-day categories and anything in
// the exclude set, then orders each lane.
func classify(snapshot []model.Reservation, day model.Day, exclude map[string]bool) Lanes {
	var lanes Lanes
	for _, r := range snapshot {
		if !r.Eligible() || exclude[r.ID] {
			continue
		}
		spec, err := model.LookupCategory(r.Category())
		if err != nil || spec.Day != day {
			continue
		}
		switch spec.Lane {
		case model.LaneStandard:
			lanes.Standard = append(lanes.Standard, r)
		case model.LanePriorityTime:
			lanes.PriorityTime = append(lanes.PriorityTime, r)
		}
	}

	// Promoted absentees jump the queue; within equal priority the
	// original arrival order decides.
	sort.SliceStable(lanes.Standard, func(i, j int) bool {
		a, b := lanes.Standard[i], lanes.Standard[j]
		if a.Priority != b.Priority {
			return a.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	// Scheduled times are "HH:MM" strings, so lexicographic order is
	// chronological.  Entries without a time fall back to arrival order
	// to keep the lane deterministic.
	sort.SliceStable(lanes.PriorityTime, func(i, j int) bool {
		a, b := lanes.PriorityTime[i], lanes.PriorityTime[j]
		if a.ScheduledTime != nil && b.ScheduledTime != nil && *a.ScheduledTime != *b.ScheduledTime {
			return *a.ScheduledTime < *b.ScheduledTime
		}
		if (a.ScheduledTime == nil) != (b.ScheduledTime == nil) {
			return b.ScheduledTime == nil
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return lanes
}
