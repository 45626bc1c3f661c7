package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

func TestCheckAutoStopUnderThreshold(t *testing.T) {
	s, store, settings, sink := newTestScheduler(Config{AutoStopThreshold: 10})
	seed(store, "A0001", 4, 0)
	seed(store, "C0001", 3, time.Minute)

	res, err := s.CheckAutoStop(context.Background(), model.Day1)
	if err != nil {
		t.Fatalf("CheckAutoStop: %v", err)
	}
	if res.ShouldStop || res.WaitingHeadcount != 7 {
		t.Errorf("result = %+v, want no stop at 7 waiting", res)
	}
	st, _ := settings.Get(context.Background())
	if !st.ReceptionOpen {
		t.Error("reception closed below threshold")
	}
	if len(sink.closures) != 0 {
		t.Errorf("closure published below threshold: %v", sink.closures)
	}
}

func TestCheckAutoStopCountsStagedParties(t *testing.T) {
	s, store, settings, _ := newTestScheduler(Config{AutoStopThreshold: 6})
	seed(store, "A0001", 4, 0)
	seed(store, "C0001", 2, time.Minute)

	// A party an operator pulled into staging is still waiting on site.
	ctx := context.Background()
	if err := s.AddToStaging(ctx, "C0001"); err != nil {
		t.Fatalf("stage C0001: %v", err)
	}
	res, err := s.CheckAutoStop(ctx, model.Day1)
	if err != nil {
		t.Fatalf("CheckAutoStop: %v", err)
	}
	if !res.ShouldStop || res.WaitingHeadcount != 6 {
		t.Fatalf("result = %+v, want stop at 6 waiting", res)
	}
	st, _ := settings.Get(ctx)
	if st.ReceptionOpen {
		t.Error("reception still open with staged headcount over threshold")
	}
}

func TestCheckAutoStopClosesReception(t *testing.T) {
	s, store, settings, sink := newTestScheduler(Config{AutoStopThreshold: 5})
	seed(store, "A0001", 4, 0)
	seed(store, "C0001", 2, time.Minute)

	ctx := context.Background()
	res, err := s.CheckAutoStop(ctx, model.Day1)
	if err != nil {
		t.Fatalf("CheckAutoStop: %v", err)
	}
	if !res.ShouldStop || res.WaitingHeadcount != 6 {
		t.Fatalf("result = %+v, want stop at 6 waiting", res)
	}
	st, _ := settings.Get(ctx)
	if st.ReceptionOpen {
		t.Error("reception still open over threshold")
	}
	if len(sink.closures) != 1 || sink.closures[0] != 6 {
		t.Errorf("closures = %v, want [6]", sink.closures)
	}

	// A second check reports the condition without another write or event.
	res, err = s.CheckAutoStop(ctx, model.Day1)
	if err != nil {
		t.Fatalf("second CheckAutoStop: %v", err)
	}
	if !res.ShouldStop {
		t.Error("second check lost the stop verdict")
	}
	if len(sink.closures) != 1 {
		t.Errorf("closure republished: %v", sink.closures)
	}
}

func TestCheckAutoStopDisabled(t *testing.T) {
	s, store, settings, _ := newTestScheduler(Config{AutoStopThreshold: 1})
	seed(store, "A0001", 4, 0)
	ctx := context.Background()
	if err := settings.Save(ctx, SettingsUpdate{AutoStopEnabled: boolPtr(false)}); err != nil {
		t.Fatalf("disable auto-stop: %v", err)
	}

	res, err := s.CheckAutoStop(ctx, model.Day1)
	if err != nil {
		t.Fatalf("CheckAutoStop: %v", err)
	}
	if res.ShouldStop {
		t.Error("stop verdict while auto-stop disabled")
	}
	st, _ := settings.Get(ctx)
	if !st.ReceptionOpen {
		t.Error("reception closed while auto-stop disabled")
	}
}

func TestCheckAutoStopNeverReopens(t *testing.T) {
	s, _, settings, _ := newTestScheduler(Config{AutoStopThreshold: 100})
	ctx := context.Background()
	if err := settings.Save(ctx, SettingsUpdate{ReceptionOpen: boolPtr(false)}); err != nil {
		t.Fatalf("close reception: %v", err)
	}

	if _, err := s.CheckAutoStop(ctx, model.Day1); err != nil {
		t.Fatalf("CheckAutoStop: %v", err)
	}
	st, _ := settings.Get(ctx)
	if st.ReceptionOpen {
		t.Error("check reopened reception")
	}
}

func boolPtr(b bool) *bool { return &b }
