package repository

import (
	"context"
	"errors"

	"github.com/kunugida/reservation-queue/internal/model"
	"github.com/kunugida/reservation-queue/internal/scheduler"
)

// Store bundles the three repositories behind the scheduler's Store
// interface, translating repository sentinels into scheduler sentinels
// so the scheduler never imports this package's error values.
type Store struct {
	reservations *ReservationRepo
	groups       *GroupRepo
	settings     *SettingsRepo
}

// NewStore returns a scheduler store backed by the given repositories.
func NewStore(res *ReservationRepo, groups *GroupRepo, settings *SettingsRepo) *Store {
	return &Store{reservations: res, groups: groups, settings: settings}
}

var _ scheduler.Store = (*Store)(nil)

func (s *Store) ListReservations(ctx context.Context, day model.Day) ([]model.Reservation, error) {
	return s.reservations.ListByDay(ctx, day)
}

func (s *Store) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	return r, mapErr(err)
}

func (s *Store) CreateReservation(ctx context.Context, r *model.Reservation) error {
	return s.reservations.Create(ctx, r)
}

func (s *Store) UpdateReservation(ctx context.Context, id string, version uint64, upd scheduler.ReservationUpdate) error {
	patch := ReservationPatch{
		Status:       upd.Status,
		Priority:     upd.Priority,
		Absent:       upd.Absent,
		AbsentAt:     upd.AbsentAt,
		CancelReason: upd.CancelReason,
		GroupNumber:  upd.GroupNumber,
		ClearAbsence: upd.ClearAbsence,
		ClearGroup:   upd.ClearGroup,
	}
	return mapErr(s.reservations.Update(ctx, id, version, patch))
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	return mapErr(s.reservations.Delete(ctx, id))
}

func (s *Store) ListGroups(ctx context.Context, day model.Day) ([]model.Group, error) {
	return s.groups.ListByDay(ctx, day)
}

func (s *Store) GetGroup(ctx context.Context, day model.Day, number int) (*model.Group, error) {
	g, err := s.groups.GetByNumber(ctx, day, number)
	return g, mapErr(err)
}

func (s *Store) CreateGroup(ctx context.Context, g *model.Group) error {
	return s.groups.Create(ctx, g)
}

func (s *Store) GetCallingGroup(ctx context.Context, day model.Day) (*model.Group, error) {
	return s.groups.GetCalling(ctx, day)
}

func (s *Store) SetGroupCallState(ctx context.Context, day model.Day, number int, from, to model.CallState) error {
	return mapErr(s.groups.SetCallState(ctx, day, number, from, to))
}

func (s *Store) SetGroupMembers(ctx context.Context, day model.Day, number int, members []string) error {
	return mapErr(s.groups.SetMembers(ctx, day, number, members))
}

func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	return s.settings.Get(ctx)
}

func (s *Store) UpdateSettings(ctx context.Context, upd scheduler.SettingsUpdate) error {
	cur, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if upd.ReceptionOpen != nil {
		cur.ReceptionOpen = *upd.ReceptionOpen
	}
	if upd.ShowStatus != nil {
		cur.ShowStatus = *upd.ShowStatus
	}
	if upd.AutoStopEnabled != nil {
		cur.AutoStopEnabled = *upd.AutoStopEnabled
	}
	return s.settings.Save(ctx, cur)
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrReservationNotFound), errors.Is(err, ErrGroupNotFound):
		return scheduler.ErrNotFound
	case errors.Is(err, ErrStaleWrite):
		return scheduler.ErrStaleWrite
	default:
		return err
	}
}
