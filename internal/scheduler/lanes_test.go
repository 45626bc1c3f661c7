package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

func laneIDs(rs []model.Reservation) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestClassifyLanesOrdering(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})

	seed(store, "A0001", 2, 0)
	seed(store, "C0001", 1, 1*time.Minute)
	seed(store, "A0002", 1, 2*time.Minute)
	promoted := seed(store, "C0002", 2, 3*time.Minute)
	promoted.Priority = true
	seedTimed(store, "X0001", 2, "11:30", 4*time.Minute)
	seedTimed(store, "X0002", 1, "10:00", 5*time.Minute)

	lanes, err := s.ClassifyLanes(context.Background(), model.Day1)
	if err != nil {
		t.Fatalf("ClassifyLanes: %v", err)
	}
	// Priority jumps the queue; everyone else keeps arrival order.
	if got, want := laneIDs(lanes.Standard), []string{"C0002", "A0001", "C0001", "A0002"}; !equalIDs(got, want) {
		t.Errorf("standard lane = %v, want %v", got, want)
	}
	// Time-slot lane orders by scheduled time, not arrival.
	if got, want := laneIDs(lanes.PriorityTime), []string{"X0002", "X0001"}; !equalIDs(got, want) {
		t.Errorf("priority-time lane = %v, want %v", got, want)
	}
	if got := lanes.WaitingHeadcount(); got != 9 {
		t.Errorf("WaitingHeadcount = %d, want 9", got)
	}
}

func TestClassifyLanesFiltering(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})

	seed(store, "A0001", 1, 0)
	visited := seed(store, "A0002", 1, time.Minute)
	visited.Status = model.StatusVisited
	absent := seed(store, "C0001", 1, 2*time.Minute)
	absent.Absent = true
	at := testBase
	absent.AbsentAt = &at
	cancelled := seed(store, "C0002", 1, 3*time.Minute)
	cancelled.Status = model.StatusCancelled
	seed(store, "B0001", 1, 4*time.Minute) // other day

	staged := seed(store, "A0003", 1, 5*time.Minute)
	if err := s.AddToStaging(context.Background(), staged.ID); err != nil {
		t.Fatalf("AddToStaging: %v", err)
	}

	lanes, err := s.ClassifyLanes(context.Background(), model.Day1)
	if err != nil {
		t.Fatalf("ClassifyLanes: %v", err)
	}
	if got, want := laneIDs(lanes.Standard), []string{"A0001"}; !equalIDs(got, want) {
		t.Errorf("standard lane = %v, want %v", got, want)
	}
	if len(lanes.PriorityTime) != 0 {
		t.Errorf("priority-time lane = %v, want empty", laneIDs(lanes.PriorityTime))
	}
}

func TestClassifyLanesInvalidDay(t *testing.T) {
	s, _, _, _ := newTestScheduler(Config{})
	if _, err := s.ClassifyLanes(context.Background(), model.Day("2025-12-25")); err == nil {
		t.Fatal("expected error for invalid day")
	}
}

func TestStagedEntryReturnsToLaneOnRemove(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	seed(store, "A0001", 2, 0)

	ctx := context.Background()
	if err := s.AddToStaging(ctx, "A0001"); err != nil {
		t.Fatalf("AddToStaging: %v", err)
	}
	lanes, _ := s.ClassifyLanes(ctx, model.Day1)
	if len(lanes.Standard) != 0 {
		t.Fatalf("staged entry still in lane: %v", laneIDs(lanes.Standard))
	}

	s.RemoveFromStaging("A0001")
	lanes, _ = s.ClassifyLanes(ctx, model.Day1)
	if got, want := laneIDs(lanes.Standard), []string{"A0001"}; !equalIDs(got, want) {
		t.Errorf("standard lane after remove = %v, want %v", got, want)
	}
}
