package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/kunugida/reservation-queue/internal/model"
)

// ReservationRepo provides CRUD operations for reservation records.
// Every mutation bumps the row's version column; updates carry the
// version the caller last observed so concurrent sessions racing on the
// same id are serialized by the database and surfaced as ErrStaleWrite.
// All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying pool for callers that need it.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, day, headcount, scheduled_time, status, priority, absent, absent_at, cancel_reason, group_number, created_at, version`

// ReservationPatch is a partial update of a reservation row.  Nil fields
// are left untouched; ClearAbsence and ClearGroup null out the absence
// stamp and group assignment.
type ReservationPatch struct {
	Status       *model.ReservationStatus
	Priority     *bool
	Absent       *bool
	AbsentAt     *time.Time
	CancelReason *string
	GroupNumber  *int
	ClearAbsence bool
	ClearGroup   bool
}

// ListByDay returns every reservation for the given event day ordered by
// creation time.  The scheduler treats this as its per-pass snapshot.
func (r *ReservationRepo) ListByDay(ctx context.Context, day model.Day) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE day = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, string(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetByID returns a single reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Create inserts a new reservation row at version 1.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(id, day, headcount, scheduled_time, status, priority, absent, absent_at, cancel_reason, group_number, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	var schedTime, reason sql.NullString
	if res.ScheduledTime != nil {
		schedTime = sql.NullString{String: *res.ScheduledTime, Valid: true}
	}
	if res.CancelReason != nil {
		reason = sql.NullString{String: *res.CancelReason, Valid: true}
	}
	var absentAt sql.NullTime
	if res.AbsentAt != nil {
		absentAt = sql.NullTime{Time: res.AbsentAt.UTC(), Valid: true}
	}
	var group sql.NullInt64
	if res.GroupNumber != nil {
		group = sql.NullInt64{Int64: int64(*res.GroupNumber), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		res.ID, string(res.Day), res.Headcount, schedTime, res.Status, res.Priority,
		res.Absent, absentAt, reason, group, res.CreatedAt.UTC(),
	)
	if err == nil {
		res.Version = 1
	}
	return err
}

// Update applies a partial update guarded by the version the caller last
// read.  Zero rows affected means either the record is gone
// (ErrReservationNotFound) or another session modified it first
// (ErrStaleWrite).
func (r *ReservationRepo) Update(ctx context.Context, id string, version uint64, patch ReservationPatch) error {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 10)
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.ClearAbsence {
		sets = append(sets, "absent = FALSE", "absent_at = NULL")
	} else {
		if patch.Absent != nil {
			sets = append(sets, "absent = ?")
			args = append(args, *patch.Absent)
		}
		if patch.AbsentAt != nil {
			sets = append(sets, "absent_at = ?")
			args = append(args, patch.AbsentAt.UTC())
		}
	}
	if patch.CancelReason != nil {
		sets = append(sets, "cancel_reason = ?")
		args = append(args, *patch.CancelReason)
	}
	if patch.ClearGroup {
		sets = append(sets, "group_number = NULL")
	} else if patch.GroupNumber != nil {
		sets = append(sets, "group_number = ?")
		args = append(args, *patch.GroupNumber)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "version = version + 1")
	q := `UPDATE reservations SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND version = ?`
	args = append(args, id, version)
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// Distinguish a vanished row from a lost race.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrReservationNotFound
	}
	if err != nil {
		return err
	}
	return ErrStaleWrite
}

// Delete removes a reservation row.  Deleting an absent row returns
// ErrReservationNotFound so callers can treat it as already purged.
func (r *ReservationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var res model.Reservation
	var day string
	var schedTime, reason sql.NullString
	var absentAt sql.NullTime
	var group sql.NullInt64
	err := row.Scan(
		&res.ID, &day, &res.Headcount, &schedTime, &res.Status, &res.Priority,
		&res.Absent, &absentAt, &reason, &group, &res.CreatedAt, &res.Version,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	res.Day = model.Day(day)
	if schedTime.Valid {
		t := schedTime.String
		res.ScheduledTime = &t
	}
	if absentAt.Valid {
		at := absentAt.Time.UTC()
		res.AbsentAt = &at
	}
	if reason.Valid {
		cr := reason.String
		res.CancelReason = &cr
	}
	if group.Valid {
		n := int(group.Int64)
		res.GroupNumber = &n
	}
	return res, nil
}
