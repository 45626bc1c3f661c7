package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

func TestCreateReservationSequentialIDs(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	seed(store, "A0007", 1, 0)
	seed(store, "C0002", 1, time.Minute)

	ctx := context.Background()
	r, err := s.CreateReservation(ctx, CreateRequest{Category: "A", Day: string(model.Day1), Headcount: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.ID != "A0008" {
		t.Errorf("id = %s, want A0008", r.ID)
	}
	r2, err := s.CreateReservation(ctx, CreateRequest{Category: "C", Day: string(model.Day1), Headcount: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r2.ID != "C0003" {
		t.Errorf("id = %s, want C0003", r2.ID)
	}
}

func TestCreateReservationGroupParity(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	ctx := context.Background()

	adv, err := s.CreateReservation(ctx, CreateRequest{Category: "A", Day: string(model.Day1), Headcount: 3})
	if err != nil {
		t.Fatalf("create advance: %v", err)
	}
	if adv.GroupNumber == nil || *adv.GroupNumber%2 != 1 {
		t.Errorf("advance group = %v, want odd", adv.GroupNumber)
	}
	walk, err := s.CreateReservation(ctx, CreateRequest{Category: "C", Day: string(model.Day1), Headcount: 3})
	if err != nil {
		t.Fatalf("create walk-in: %v", err)
	}
	if walk.GroupNumber == nil || *walk.GroupNumber%2 != 0 {
		t.Errorf("walk-in group = %v, want even", walk.GroupNumber)
	}

	// A second advance party that fits joins the existing odd group.
	adv2, err := s.CreateReservation(ctx, CreateRequest{Category: "A", Day: string(model.Day1), Headcount: 1})
	if err != nil {
		t.Fatalf("create second advance: %v", err)
	}
	if adv2.GroupNumber == nil || *adv2.GroupNumber != *adv.GroupNumber {
		t.Errorf("second advance group = %v, want %d", adv2.GroupNumber, *adv.GroupNumber)
	}
	// One that does not fit opens the next odd group.
	adv3, err := s.CreateReservation(ctx, CreateRequest{Category: "A", Day: string(model.Day1), Headcount: 4})
	if err != nil {
		t.Fatalf("create third advance: %v", err)
	}
	if adv3.GroupNumber == nil || *adv3.GroupNumber%2 != 1 || *adv3.GroupNumber == *adv.GroupNumber {
		t.Errorf("third advance group = %v, want a fresh odd group", adv3.GroupNumber)
	}

	g, _ := store.GetGroup(ctx, model.Day1, *adv.GroupNumber)
	if got, want := g.Members, []string{adv.ID, adv2.ID}; !equalIDs(got, want) {
		t.Errorf("group members = %v, want %v", got, want)
	}
}

func TestCreateReservationTimeSlotStaysUngrouped(t *testing.T) {
	s, _, _, _ := newTestScheduler(Config{})
	r, err := s.CreateReservation(context.Background(), CreateRequest{
		Category: "X", Day: string(model.Day1), Headcount: 2, ScheduledTime: "14:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.GroupNumber != nil {
		t.Errorf("time-slot reservation grouped at intake: %d", *r.GroupNumber)
	}
	if r.ScheduledTime == nil || *r.ScheduledTime != "14:00" {
		t.Errorf("scheduled time = %v, want 14:00", r.ScheduledTime)
	}
}

func TestCreateReservationValidation(t *testing.T) {
	s, _, _, _ := newTestScheduler(Config{})
	ctx := context.Background()
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"unknown category", CreateRequest{Category: "Q", Day: string(model.Day1), Headcount: 1}},
		{"empty category", CreateRequest{Day: string(model.Day1), Headcount: 1}},
		{"wrong day", CreateRequest{Category: "A", Day: string(model.Day2), Headcount: 1}},
		{"invalid day", CreateRequest{Category: "A", Day: "2025-12-01", Headcount: 1}},
		{"zero headcount", CreateRequest{Category: "A", Day: string(model.Day1), Headcount: 0}},
		{"oversized party", CreateRequest{Category: "A", Day: string(model.Day1), Headcount: 5}},
		{"missing time slot", CreateRequest{Category: "X", Day: string(model.Day1), Headcount: 1}},
		{"unexpected time slot", CreateRequest{Category: "A", Day: string(model.Day1), Headcount: 1, ScheduledTime: "12:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateReservation(ctx, tt.req); !errors.Is(err, ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestCancelReservation(t *testing.T) {
	s, store, _, _ := newTestScheduler(Config{})
	seed(store, "A0001", 1, 0)
	seed(store, "A0002", 1, time.Minute)
	seedGroup(store, model.Day1, 1, model.CallWaiting, "A0001", "A0002")

	ctx := context.Background()
	if err := s.CancelReservation(ctx, "A0001"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	r, _ := store.GetReservation(ctx, "A0001")
	if r.Status != model.StatusCancelled {
		t.Errorf("status = %s, want cancelled", r.Status)
	}
	if r.CancelReason == nil || *r.CancelReason != model.CancelReasonOperator {
		t.Errorf("cancel reason = %v, want %q", r.CancelReason, model.CancelReasonOperator)
	}
	g, _ := store.GetGroup(ctx, model.Day1, 1)
	if got, want := g.Members, []string{"A0002"}; !equalIDs(got, want) {
		t.Errorf("group members = %v, want %v", got, want)
	}

	// Cancelling again, or cancelling a missing record, is a no-op.
	if err := s.CancelReservation(ctx, "A0001"); err != nil {
		t.Errorf("second cancel: %v", err)
	}
	if err := s.CancelReservation(ctx, "Z9999"); err != nil {
		t.Errorf("cancel unknown: %v", err)
	}
	// A visited record cannot be cancelled.
	v := seed(store, "A0003", 1, 2*time.Minute)
	v.Status = model.StatusVisited
	if err := s.CancelReservation(ctx, "A0003"); !errors.Is(err, ErrValidation) {
		t.Errorf("cancel visited: got %v, want ErrValidation", err)
	}
}

func TestNextReservationIDPadding(t *testing.T) {
	snapshot := []model.Reservation{
		{ID: "A0009"}, {ID: "A0123"}, {ID: "C0002"},
	}
	if got := nextReservationID(snapshot, 'A'); got != "A0124" {
		t.Errorf("nextReservationID = %s, want A0124", got)
	}
	if got := nextReservationID(snapshot, 'C'); got != "C0003" {
		t.Errorf("nextReservationID = %s, want C0003", got)
	}
	if got := nextReservationID(nil, 'X'); got != "X0001" {
		t.Errorf("nextReservationID = %s, want X0001", got)
	}
}
