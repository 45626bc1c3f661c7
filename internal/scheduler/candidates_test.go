package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

func TestFormCandidateGroupsOrdering(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	seed(store, "A0001", 2, 0)
	seed(store, "C0001", 1, time.Minute)
	promoted := seed(store, "C0002", 1, 2*time.Minute)
	promoted.Priority = true
	seed(store, "A0002", 1, 3*time.Minute)

	seedGroup(store, model.Day1, 1, model.CallWaiting, "A0001")
	seedGroup(store, model.Day1, 2, model.CallWaiting, "C0001", "C0002")
	seedGroup(store, model.Day1, 3, model.CallCalling, "A0002")
	seedGroup(store, model.Day1, 4, model.CallWaiting) // empty, skipped

	cands, err := s.FormCandidateGroups(context.Background(), model.Day1)
	if err != nil {
		t.Fatalf("FormCandidateGroups: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	// Group 2 carries a promoted absentee and jumps ahead of group 1.
	if cands[0].Number != 2 || !cands[0].HasPriority {
		t.Errorf("first candidate = %+v, want group 2 with priority", cands[0])
	}
	if cands[1].Number != 1 || cands[1].HasPriority {
		t.Errorf("second candidate = %+v, want group 1 without priority", cands[1])
	}
	if cands[0].TotalHeadcount != 2 {
		t.Errorf("group 2 headcount = %d, want 2", cands[0].TotalHeadcount)
	}
}

func TestNextGroupFoldsDueTimeSlots(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	seed(store, "A0001", 2, 0)
	seedGroup(store, model.Day1, 1, model.CallWaiting, "A0001")

	// 09:04 is within the 5 minute pre-call window of the frozen 09:00
	// clock; 10:00 is not.
	seedTimed(store, "X0001", 1, "09:04", time.Minute)
	seedTimed(store, "X0002", 1, "10:00", 2*time.Minute)

	ctx := context.Background()
	cand, err := s.NextGroup(ctx, model.Day1)
	if err != nil {
		t.Fatalf("NextGroup: %v", err)
	}
	if cand == nil || cand.Number != 1 {
		t.Fatalf("candidate = %+v, want group 1", cand)
	}
	if got, want := laneIDs(cand.Members), []string{"A0001", "X0001"}; !equalIDs(got, want) {
		t.Errorf("members = %v, want %v", got, want)
	}

	due, _ := store.GetReservation(ctx, "X0001")
	if due.GroupNumber == nil || *due.GroupNumber != 1 {
		t.Errorf("X0001 group = %v, want 1", due.GroupNumber)
	}
	notDue, _ := store.GetReservation(ctx, "X0002")
	if notDue.GroupNumber != nil {
		t.Errorf("X0002 assigned early to group %d", *notDue.GroupNumber)
	}
}

func TestNextGroupFoldsDueTimeSlotsNonUTCClock(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	// Same frozen wall clock, but the server runs nine hours east of
	// UTC.  Slot strings are venue wall time, so 09:04 is still due at
	// 09:00 regardless of the zone.
	jst := time.FixedZone("JST", 9*60*60)
	s.now = func() time.Time {
		return time.Date(2025, 11, 1, 9, 0, 0, 0, jst)
	}
	seed(store, "A0001", 2, 0)
	seedGroup(store, model.Day1, 1, model.CallWaiting, "A0001")
	seedTimed(store, "X0001", 1, "09:04", time.Minute)

	ctx := context.Background()
	cand, err := s.NextGroup(ctx, model.Day1)
	if err != nil {
		t.Fatalf("NextGroup: %v", err)
	}
	if cand == nil || cand.Number != 1 {
		t.Fatalf("candidate = %+v, want group 1", cand)
	}
	due, _ := store.GetReservation(ctx, "X0001")
	if due.GroupNumber == nil || *due.GroupNumber != 1 {
		t.Errorf("X0001 group = %v, want 1", due.GroupNumber)
	}
}

func TestNextGroupTimeSlotOverflowsToFreshGroup(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	seed(store, "A0001", 4, 0)
	seedGroup(store, model.Day1, 1, model.CallWaiting, "A0001")
	seedTimed(store, "X0001", 2, "09:00", time.Minute)

	ctx := context.Background()
	if _, err := s.NextGroup(ctx, model.Day1); err != nil {
		t.Fatalf("NextGroup: %v", err)
	}
	r, _ := store.GetReservation(ctx, "X0001")
	if r.GroupNumber == nil || *r.GroupNumber != 2 {
		t.Errorf("X0001 group = %v, want fresh group 2", r.GroupNumber)
	}
}

func TestNextGroupSynthesizesPriorityGroup(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	seed(store, "A0001", 2, 0)
	seedGroup(store, model.Day1, 1, model.CallWaiting, "A0001")

	p1 := seed(store, "C0001", 2, time.Minute)
	p1.Priority = true
	p2 := seed(store, "C0002", 1, 2*time.Minute)
	p2.Priority = true
	big := seed(store, "C0003", 3, 3*time.Minute) // does not fit with the others
	big.Priority = true

	ctx := context.Background()
	cand, err := s.NextGroup(ctx, model.Day1)
	if err != nil {
		t.Fatalf("NextGroup: %v", err)
	}
	if cand == nil || !cand.HasPriority {
		t.Fatalf("candidate = %+v, want synthesized priority group", cand)
	}
	if cand.Number != 2 {
		t.Errorf("synthesized group number = %d, want 2", cand.Number)
	}
	if got, want := laneIDs(cand.Members), []string{"C0001", "C0002"}; !equalIDs(got, want) {
		t.Errorf("members = %v, want %v", got, want)
	}
	if cand.TotalHeadcount != 3 {
		t.Errorf("headcount = %d, want 3", cand.TotalHeadcount)
	}

	// The overflow member stays loose and rides the next synthesis.
	left, _ := store.GetReservation(ctx, "C0003")
	if left.GroupNumber != nil {
		t.Errorf("C0003 grouped early into %d", *left.GroupNumber)
	}
	next, err := s.NextGroup(ctx, model.Day1)
	if err != nil {
		t.Fatalf("second NextGroup: %v", err)
	}
	if next == nil || !next.HasPriority || len(next.Members) != 1 || next.Members[0].ID != "C0003" {
		t.Errorf("second candidate = %+v, want group with only C0003", next)
	}
}

func TestNextGroupDoesNotResynthesizeGroupedPriority(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	p := seed(store, "C0001", 1, 0)
	p.Priority = true
	seedGroup(store, model.Day1, 7, model.CallWaiting, "C0001")

	ctx := context.Background()
	cand, err := s.NextGroup(ctx, model.Day1)
	if err != nil {
		t.Fatalf("NextGroup: %v", err)
	}
	if cand == nil || cand.Number != 7 {
		t.Fatalf("candidate = %+v, want existing group 7", cand)
	}
	groups, _ := store.ListGroups(ctx, model.Day1)
	if len(groups) != 1 {
		t.Errorf("synthesis created an extra group: %d groups", len(groups))
	}
}

func TestNextGroupEmptyQueue(t *testing.T) {
	s, _, _, _ := newTestScheduler(Config{})
	cand, err := s.NextGroup(context.Background(), model.Day1)
	if err != nil {
		t.Fatalf("NextGroup: %v", err)
	}
	if cand != nil {
		t.Errorf("candidate = %+v, want nil", cand)
	}
}

func TestNextGroupNumberParity(t *testing.T) {
	tests := []struct {
		name   string
		groups []int
		parity int
		want   int
	}{
		{"first odd", nil, 1, 1},
		{"first even", nil, 2, 2},
		{"odd after even max", []int{1, 2}, 1, 3},
		{"even after odd max", []int{1, 2, 3}, 2, 4},
		{"unconstrained", []int{1, 2, 3}, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var groups []model.Group
			for _, n := range tt.groups {
				groups = append(groups, model.Group{Number: n})
			}
			if got := nextGroupNumber(groups, tt.parity); got != tt.want {
				t.Errorf("nextGroupNumber(%v, %d) = %d, want %d", tt.groups, tt.parity, got, tt.want)
			}
		})
	}
}
