package scheduler

import (
	"context"
	"fmt"

	"github.com/kunugida/reservation-queue/internal/model"
)

// Stats summarizes one day's queue for the operator screen.
type Stats struct {
	Total      int            `json:"total"`
	Waiting    int            `json:"waiting"`
	Visited    int            `json:"visited"`
	Cancelled  int            `json:"cancelled"`
	Absent     int            `json:"absent"`
	ByCategory map[string]int `json:"by_category"`
}

// Stats counts the day's reservations by status and category.
func (s *Scheduler) Stats(ctx context.Context, day model.Day) (Stats, error) {
	if !day.Valid() {
		return Stats{}, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	snapshot, err := s.store.ListReservations(ctx, day)
	if err != nil {
		return Stats{}, fmt.Errorf("list reservations: %w", err)
	}
	st := Stats{ByCategory: map[string]int{}}
	for _, r := range snapshot {
		spec, err := model.LookupCategory(r.Category())
		if err != nil || spec.Day != day {
			continue
		}
		st.Total++
		st.ByCategory[string(r.Category())]++
		switch r.Status {
		case model.StatusVisited:
			st.Visited++
		case model.StatusCancelled:
			st.Cancelled++
		default:
			if r.Absent {
				st.Absent++
			} else {
				st.Waiting++
			}
		}
	}
	return st, nil
}
