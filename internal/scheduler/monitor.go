package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

// Monitor runs one periodic scheduler pass on its own timer.  Each
// monitor is independently start/stoppable through its context; there is
// no shared interval handle to juggle.
type Monitor struct {
	Name     string
	Interval time.Duration
	Tick     func(ctx context.Context)
}

// Run ticks immediately and then on every interval until the context is
// cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	t := time.NewTicker(m.Interval)
	defer t.Stop()

	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			m.Tick(ctx)
		}
	}
}

// NewAbsenceMonitor builds the periodic no-show sweep across both event
// days.
func NewAbsenceMonitor(s *Scheduler, interval time.Duration) *Monitor {
	return &Monitor{
		Name:     "absence",
		Interval: interval,
		Tick: func(ctx context.Context) {
			for _, day := range []model.Day{model.Day1, model.Day2} {
				purged, err := s.SweepAbsentees(ctx, day)
				if err != nil {
					log.Printf("absence-monitor: sweep %s failed: %v", day, err)
					continue
				}
				if len(purged) > 0 {
					log.Printf("absence-monitor: purged %d timed-out absentees for %s", len(purged), day)
				}
			}
		},
	}
}

// NewAutoStopMonitor builds the periodic admission-control check across
// both event days.
func NewAutoStopMonitor(s *Scheduler, interval time.Duration) *Monitor {
	return &Monitor{
		Name:     "auto-stop",
		Interval: interval,
		Tick: func(ctx context.Context) {
			for _, day := range []model.Day{model.Day1, model.Day2} {
				res, err := s.CheckAutoStop(ctx, day)
				if err != nil {
					log.Printf("auto-stop-monitor: check %s failed: %v", day, err)
					continue
				}
				if res.ShouldStop {
					log.Printf("auto-stop-monitor: %s over threshold (%d waiting)", day, res.WaitingHeadcount)
				}
			}
		},
	}
}
