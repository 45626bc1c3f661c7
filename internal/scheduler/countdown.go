package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

// rolloverHandle identifies one armed countdown so a fired goroutine only
// removes its own map entry, never a replacement armed in the meantime.
type rolloverHandle struct {
	cancel context.CancelFunc
}

// armRollover starts the post-completion countdown for a group.  When it
// elapses the group is reset to waiting so the next candidate surfaces.
// Arming twice for the same group replaces the previous countdown.
func (s *Scheduler) armRollover(day model.Day, number int) {
	key := rolloverKey{day: day, number: number}
	ctx, cancel := context.WithCancel(context.Background())
	h := &rolloverHandle{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.rollovers[key]; ok {
		prev.cancel()
	}
	s.rollovers[key] = h
	s.mu.Unlock()

	delay := s.cfg.RolloverDelay
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			// Cancelled countdowns never advance the group's state.
			return
		case <-timer.C:
		}
		s.mu.Lock()
		if s.rollovers[key] == h {
			delete(s.rollovers, key)
		}
		s.mu.Unlock()
		if err := s.Reset(context.Background(), day, number); err != nil {
			log.Printf("scheduler: rollover reset of group %d failed: %v", number, err)
		}
	}()
}

// CancelRollover stops the pending completion countdown for a group, if
// any.  The group stays completed; cancellation never resets early.
func (s *Scheduler) CancelRollover(day model.Day, number int) {
	key := rolloverKey{day: day, number: number}
	s.mu.Lock()
	h, ok := s.rollovers[key]
	if ok {
		delete(s.rollovers, key)
	}
	s.mu.Unlock()
	if ok {
		h.cancel()
	}
}
