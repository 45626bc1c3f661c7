package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

// AcceptPolicy selects what committing a staged group does to its
// members.  The store deployments observed disagree on this, so it is
// configuration rather than code.
type AcceptPolicy uint8

const (
	AcceptVisit  AcceptPolicy = iota // members transition to visited
	AcceptDelete                     // member records are deleted
)

// ParseAcceptPolicy maps the config string to a policy.
func ParseAcceptPolicy(s string) (AcceptPolicy, error) {
	switch strings.ToLower(s) {
	case "visit", "":
		return AcceptVisit, nil
	case "delete":
		return AcceptDelete, nil
	}
	return 0, fmt.Errorf("unknown accept policy %q", s)
}

// PurgePolicy selects what happens to an absentee once the grace period
// runs out.
type PurgePolicy uint8

const (
	PurgeCancel PurgePolicy = iota // demote to a terminal cancelled status
	PurgeDelete                    // delete the record outright
)

// ParsePurgePolicy maps the config string to a policy.
func ParsePurgePolicy(s string) (PurgePolicy, error) {
	switch strings.ToLower(s) {
	case "cancel", "":
		return PurgeCancel, nil
	case "delete":
		return PurgeDelete, nil
	}
	return 0, fmt.Errorf("unknown purge policy %q", s)
}

// Config carries the scheduling tunables.  Zero values are usable for
// tests; production values come from internal/config.
type Config struct {
	AutoStopThreshold int           // waiting headcount at which intake closes
	AbsenceGrace      time.Duration // how long an absentee may wait before purge
	RolloverDelay     time.Duration // countdown before a completed group resets
	AcceptPolicy      AcceptPolicy
	PurgePolicy       PurgePolicy
}

// EventSink receives notifications about admission events.  The
// production sink publishes them to the message broker; a nil sink
// disables publication.
type EventSink interface {
	GroupCalled(ctx context.Context, day model.Day, number int, memberIDs []string)
	ReservationAbsent(ctx context.Context, r model.Reservation)
	ReceptionClosed(ctx context.Context, day model.Day, waitingHeadcount int)
}

// Scheduler drives the reservation queue for both event days.  All state
// lives in the record store except the interactive staging sets and the
// armed rollover countdowns, which are per-process operator state.
type Scheduler struct {
	store    Store
	settings SettingsProvider
	events   EventSink
	cfg      Config
	now      func() time.Time

	mu        sync.Mutex
	staged    map[model.Day][]string          // interactive staging, ids in add order
	rollovers map[rolloverKey]*rolloverHandle // armed completion countdowns
}

type rolloverKey struct {
	day    model.Day
	number int
}

// New constructs a Scheduler.  store and settings must be non-nil;
// events may be nil.
func New(store Store, settings SettingsProvider, events EventSink, cfg Config) *Scheduler {
	if store == nil || settings == nil {
		panic("nil dependency passed to scheduler.New")
	}
	if cfg.AbsenceGrace <= 0 {
		cfg.AbsenceGrace = 15 * time.Minute
	}
	if cfg.RolloverDelay <= 0 {
		cfg.RolloverDelay = 30 * time.Second
	}
	return &Scheduler{
		store:     store,
		settings:  settings,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
		staged:    make(map[model.Day][]string),
		rollovers: make(map[rolloverKey]*rolloverHandle),
	}
}

// Settings exposes the provider for handlers that only read or save the
// operator settings.
func (s *Scheduler) Settings() SettingsProvider { return s.settings }
