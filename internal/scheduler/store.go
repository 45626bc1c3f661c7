package scheduler

import (
	"context"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

// Store is the record store the scheduler reads snapshots from and
// commits transitions to.  Implementations must serialize concurrent
// writes to the same record and signal lost races with ErrStaleWrite;
// they do not provide transactions spanning multiple records.
type Store interface {
	ListReservations(ctx context.Context, day model.Day) ([]model.Reservation, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	CreateReservation(ctx context.Context, r *model.Reservation) error
	// UpdateReservation applies the partial update when the record's
	// current version still equals version.  ErrNotFound when the record
	// is gone, ErrStaleWrite when another session got there first.
	UpdateReservation(ctx context.Context, id string, version uint64, upd ReservationUpdate) error
	DeleteReservation(ctx context.Context, id string) error

	ListGroups(ctx context.Context, day model.Day) ([]model.Group, error)
	GetGroup(ctx context.Context, day model.Day, number int) (*model.Group, error)
	CreateGroup(ctx context.Context, g *model.Group) error
	// GetCallingGroup returns the one group in the calling state for the
	// day, or nil when no group is being called.
	GetCallingGroup(ctx context.Context, day model.Day) (*model.Group, error)
	// SetGroupCallState transitions a group's call state, guarded by the
	// expected current state.  The transition to calling must also be
	// atomic with a check that no other same-day group is calling; the
	// store returns ErrStaleWrite when either guard fails.
	SetGroupCallState(ctx context.Context, day model.Day, number int, from, to model.CallState) error
	SetGroupMembers(ctx context.Context, day model.Day, number int, members []string) error

	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, upd SettingsUpdate) error
}

// ReservationUpdate is a partial update of a reservation record.  Nil
// fields are left untouched.  ClearAbsence and ClearGroup null out the
// absence stamp and group assignment respectively.
type ReservationUpdate struct {
	Status       *model.ReservationStatus
	Priority     *bool
	Absent       *bool
	AbsentAt     *time.Time
	CancelReason *string
	GroupNumber  *int
	ClearAbsence bool
	ClearGroup   bool
}

// SettingsUpdate is a partial update of the settings record.  Nil fields
// are left untouched.
type SettingsUpdate struct {
	ReceptionOpen   *bool
	ShowStatus      *bool
	AutoStopEnabled *bool
}

// SettingsProvider hands out the cached operator settings and persists
// explicit changes.  The production implementation is the redis-backed
// cache in internal/cache.
type SettingsProvider interface {
	Get(ctx context.Context) (model.Settings, error)
	Save(ctx context.Context, upd SettingsUpdate) error
}
