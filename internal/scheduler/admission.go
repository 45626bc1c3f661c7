package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/kunugida/reservation-queue/internal/model"
)

// AutoStopResult is the admission controller's verdict for one check.
type AutoStopResult struct {
	ShouldStop       bool `json:"should_stop"`
	WaitingHeadcount int  `json:"waiting_headcount"`
}

// CheckAutoStop evaluates whether new reservation intake should be shut
// off for the day.  When auto-stop is enabled and the waiting headcount
// has reached the threshold, reception is closed (idempotently; an
// already-closed reception stays closed) and ShouldStop is reported with
// the observed headcount.  The controller never reopens reception; that
// is an explicit operator action.
func (s *Scheduler) CheckAutoStop(ctx context.Context, day model.Day) (AutoStopResult, error) {
	if !day.Valid() {
		return AutoStopResult{}, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	lanes, err := s.ClassifyLanes(ctx, day)
	if err != nil {
		return AutoStopResult{}, err
	}
	// Lane classification hides operator-staged entries, but those
	// parties are still waiting on site.
	result := AutoStopResult{WaitingHeadcount: lanes.WaitingHeadcount() + s.stagedHeadcount(ctx, day)}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return result, fmt.Errorf("get settings: %w", err)
	}
	if !settings.AutoStopEnabled || result.WaitingHeadcount < s.cfg.AutoStopThreshold {
		return result, nil
	}
	result.ShouldStop = true
	if !settings.ReceptionOpen {
		return result, nil // already closed, nothing to write
	}

	closed := false
	if err := s.settings.Save(ctx, SettingsUpdate{ReceptionOpen: &closed}); err != nil {
		return result, fmt.Errorf("close reception: %w", err)
	}
	log.Printf("scheduler: auto-stop closed reception for %s at %d waiting", day, result.WaitingHeadcount)
	if s.events != nil {
		s.events.ReceptionClosed(ctx, day, result.WaitingHeadcount)
	}
	return result, nil
}
