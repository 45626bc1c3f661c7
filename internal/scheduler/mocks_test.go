package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

// memStore is an in-memory Store with the same write semantics as the
// MySQL-backed one: versioned reservation updates, CAS call-state
// transitions, per-record serialization under one mutex.
type memStore struct {
	mu           sync.Mutex
	reservations map[string]*model.Reservation
	groups       map[groupKey]*model.Group
	settings     model.Settings
}

type groupKey struct {
	day    model.Day
	number int
}

func newMemStore() *memStore {
	return &memStore{
		reservations: make(map[string]*model.Reservation),
		groups:       make(map[groupKey]*model.Group),
		settings:     model.Settings{ReceptionOpen: true, ShowStatus: true, AutoStopEnabled: true},
	}
}

func (m *memStore) ListReservations(_ context.Context, day model.Day) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		if r.Day == day {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) GetReservation(_ context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) CreateReservation(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	if cp.Version == 0 {
		cp.Version = 1
	}
	r.Version = cp.Version
	m.reservations[cp.ID] = &cp
	return nil
}

func (m *memStore) UpdateReservation(_ context.Context, id string, version uint64, upd ReservationUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return ErrNotFound
	}
	if r.Version != version {
		return ErrStaleWrite
	}
	if upd.Status != nil {
		r.Status = *upd.Status
	}
	if upd.Priority != nil {
		r.Priority = *upd.Priority
	}
	if upd.Absent != nil {
		r.Absent = *upd.Absent
	}
	if upd.AbsentAt != nil {
		t := *upd.AbsentAt
		r.AbsentAt = &t
	}
	if upd.CancelReason != nil {
		reason := *upd.CancelReason
		r.CancelReason = &reason
	}
	if upd.GroupNumber != nil {
		n := *upd.GroupNumber
		r.GroupNumber = &n
	}
	if upd.ClearAbsence {
		r.Absent = false
		r.AbsentAt = nil
	}
	if upd.ClearGroup {
		r.GroupNumber = nil
	}
	r.Version++
	return nil
}

func (m *memStore) DeleteReservation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[id]; !ok {
		return ErrNotFound
	}
	delete(m.reservations, id)
	return nil
}

func (m *memStore) ListGroups(_ context.Context, day model.Day) ([]model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Group, 0, len(m.groups))
	for k, g := range m.groups {
		if k.day == day {
			out = append(out, copyGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memStore) GetGroup(_ context.Context, day model.Day, number int) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupKey{day, number}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyGroup(g)
	return &cp, nil
}

func (m *memStore) CreateGroup(_ context.Context, g *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyGroup(g)
	m.groups[groupKey{g.Day, g.Number}] = &cp
	return nil
}

func (m *memStore) GetCallingGroup(_ context.Context, day model.Day) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, g := range m.groups {
		if k.day == day && g.CallState == model.CallCalling {
			cp := copyGroup(g)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) SetGroupCallState(_ context.Context, day model.Day, number int, from, to model.CallState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupKey{day, number}]
	if !ok {
		return ErrNotFound
	}
	if g.CallState != from {
		return ErrStaleWrite
	}
	if to == model.CallCalling {
		for k, other := range m.groups {
			if k.day == day && k.number != number && other.CallState == model.CallCalling {
				return ErrStaleWrite
			}
		}
	}
	g.CallState = to
	return nil
}

func (m *memStore) SetGroupMembers(_ context.Context, day model.Day, number int, members []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupKey{day, number}]
	if !ok {
		return ErrNotFound
	}
	g.Members = append([]string(nil), members...)
	return nil
}

func (m *memStore) GetSettings(_ context.Context) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *memStore) UpdateSettings(_ context.Context, upd SettingsUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if upd.ReceptionOpen != nil {
		m.settings.ReceptionOpen = *upd.ReceptionOpen
	}
	if upd.ShowStatus != nil {
		m.settings.ShowStatus = *upd.ShowStatus
	}
	if upd.AutoStopEnabled != nil {
		m.settings.AutoStopEnabled = *upd.AutoStopEnabled
	}
	return nil
}

func copyGroup(g *model.Group) model.Group {
	cp := *g
	cp.Members = append([]string(nil), g.Members...)
	return cp
}

// flakyStore forces a stale write on one reservation, simulating a
// concurrent session winning the version race.
type flakyStore struct {
	*memStore
	failID string
}

func (f *flakyStore) UpdateReservation(ctx context.Context, id string, version uint64, upd ReservationUpdate) error {
	if id == f.failID {
		return ErrStaleWrite
	}
	return f.memStore.UpdateReservation(ctx, id, version, upd)
}

// laggedStore adds read latency to the calling-group lookup, the shape
// a networked store has.  It widens the window between a session's
// entrance check and its state transition.
type laggedStore struct {
	*memStore
	lag time.Duration
}

func (l *laggedStore) GetCallingGroup(ctx context.Context, day model.Day) (*model.Group, error) {
	time.Sleep(l.lag)
	return l.memStore.GetCallingGroup(ctx, day)
}

// hookStore runs a callback after every reservation update, standing in
// for work another session does while a multi-record flow is in flight.
type hookStore struct {
	*memStore
	onUpdate func()
}

func (h *hookStore) UpdateReservation(ctx context.Context, id string, version uint64, upd ReservationUpdate) error {
	err := h.memStore.UpdateReservation(ctx, id, version, upd)
	if err == nil && h.onUpdate != nil {
		h.onUpdate()
	}
	return err
}

// memSettings is a SettingsProvider without a cache layer.
type memSettings struct {
	mu sync.Mutex
	s  model.Settings
}

func newMemSettings() *memSettings {
	return &memSettings{s: model.Settings{ReceptionOpen: true, ShowStatus: true, AutoStopEnabled: true}}
}

func (m *memSettings) Get(_ context.Context) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *memSettings) Save(_ context.Context, upd SettingsUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if upd.ReceptionOpen != nil {
		m.s.ReceptionOpen = *upd.ReceptionOpen
	}
	if upd.ShowStatus != nil {
		m.s.ShowStatus = *upd.ShowStatus
	}
	if upd.AutoStopEnabled != nil {
		m.s.AutoStopEnabled = *upd.AutoStopEnabled
	}
	return nil
}

// sinkRecorder captures event sink invocations for assertions.
type sinkRecorder struct {
	mu       sync.Mutex
	called   []int
	absent   []string
	closures []int
}

func (s *sinkRecorder) GroupCalled(_ context.Context, _ model.Day, number int, _ []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called = append(s.called, number)
}

func (s *sinkRecorder) ReservationAbsent(_ context.Context, r model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.absent = append(s.absent, r.ID)
}

func (s *sinkRecorder) ReceptionClosed(_ context.Context, _ model.Day, waiting int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closures = append(s.closures, waiting)
}

// testBase is the reference clock for scheduler tests: mid-morning on
// the first event day.
var testBase = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

// newTestScheduler wires a scheduler over fresh fakes with a frozen
// clock.
func newTestScheduler(cfg Config) (*Scheduler, *memStore, *memSettings, *sinkRecorder) {
	store := newMemStore()
	settings := newMemSettings()
	sink := &sinkRecorder{}
	s := New(store, settings, sink, cfg)
	s.now = func() time.Time { return testBase }
	return s, store, settings, sink
}

// seed inserts a waiting reservation directly into the store.
func seed(store *memStore, id string, headcount int, createdOffset time.Duration) *model.Reservation {
	spec, _ := model.LookupCategory(model.Category(id[0]))
	r := &model.Reservation{
		ID:        id,
		Day:       spec.Day,
		Headcount: headcount,
		Status:    model.StatusWaiting,
		CreatedAt: testBase.Add(createdOffset),
		Version:   1,
	}
	store.reservations[id] = r
	return r
}

// seedTimed inserts a waiting time-slot reservation.
func seedTimed(store *memStore, id string, headcount int, slot string, createdOffset time.Duration) *model.Reservation {
	r := seed(store, id, headcount, createdOffset)
	r.ScheduledTime = &slot
	return r
}

// seedGroup inserts a stored group.
func seedGroup(store *memStore, day model.Day, number int, state model.CallState, members ...string) *model.Group {
	g := &model.Group{
		Number:    number,
		Day:       day,
		Members:   members,
		CallState: state,
		CreatedAt: testBase,
	}
	store.groups[groupKey{day, number}] = g
	for _, id := range members {
		if r, ok := store.reservations[id]; ok {
			n := number
			r.GroupNumber = &n
		}
	}
	return g
}
