package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kunugida/reservation-queue/internal/model"
)

// GroupRepo provides CRUD operations for call groups and their
// membership.  Groups are keyed by (day, number); membership lives in
// the group_members table in insertion order.  Call-state transitions
// are guarded by the expected current state so overlapping operator
// sessions cannot double-call a group.
type GroupRepo struct {
	db *sql.DB
}

// NewGroupRepo returns a new GroupRepo bound to the given database.
func NewGroupRepo(db *sql.DB) *GroupRepo { return &GroupRepo{db: db} }

// ListByDay returns every group for the day with members populated,
// ordered by group number.
func (r *GroupRepo) ListByDay(ctx context.Context, day model.Day) ([]model.Group, error) {
	const q = `SELECT number, call_state, called_at, completed_at, created_at
	           FROM call_groups WHERE day = ? ORDER BY number`
	rows, err := r.db.QueryContext(ctx, q, string(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	groups := make([]model.Group, 0)
	index := make(map[int]int)
	for rows.Next() {
		g, err := scanGroup(rows, day)
		if err != nil {
			return nil, err
		}
		index[g.Number] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return groups, nil
	}
	// Populate membership for all groups in a single query.
	placeholders := make([]string, 0, len(groups))
	args := make([]interface{}, 0, len(groups)+1)
	args = append(args, string(day))
	for _, g := range groups {
		placeholders = append(placeholders, "?")
		args = append(args, g.Number)
	}
	memberQ := `SELECT group_number, reservation_id FROM group_members
	            WHERE day = ? AND group_number IN (` + strings.Join(placeholders, ",") + `)
	            ORDER BY id`
	mrows, err := r.db.QueryContext(ctx, memberQ, args...)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var number int
		var resID string
		if err := mrows.Scan(&number, &resID); err != nil {
			return nil, err
		}
		if idx, ok := index[number]; ok {
			groups[idx].Members = append(groups[idx].Members, resID)
		}
	}
	return groups, mrows.Err()
}

// GetByNumber returns one group with members, or ErrGroupNotFound.
func (r *GroupRepo) GetByNumber(ctx context.Context, day model.Day, number int) (*model.Group, error) {
	const q = `SELECT number, call_state, called_at, completed_at, created_at
	           FROM call_groups WHERE day = ? AND number = ?`
	g, err := scanGroup(r.db.QueryRowContext(ctx, q, string(day), number), day)
	if err == sql.ErrNoRows {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	members, err := r.members(ctx, day, number)
	if err != nil {
		return nil, err
	}
	g.Members = members
	return &g, nil
}

// GetCalling returns the one group in the calling state for the day, or
// nil when no group is being called.
func (r *GroupRepo) GetCalling(ctx context.Context, day model.Day) (*model.Group, error) {
	const q = `SELECT number, call_state, called_at, completed_at, created_at
	           FROM call_groups WHERE day = ? AND call_state = ? LIMIT 1`
	g, err := scanGroup(r.db.QueryRowContext(ctx, q, string(day), model.CallCalling), day)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	members, err := r.members(ctx, day, g.Number)
	if err != nil {
		return nil, err
	}
	g.Members = members
	return &g, nil
}

// Create inserts a new group and its initial membership.
func (r *GroupRepo) Create(ctx context.Context, g *model.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const q = `INSERT INTO call_groups (day, number, call_state, created_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, string(g.Day), g.Number, g.CallState, g.CreatedAt.UTC()); err != nil {
		return err
	}
	if err := insertMembersTx(ctx, tx, g.Day, g.Number, g.Members); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetCallState transitions the group's call state guarded by the
// expected current state.  Calling stamps called_at, completed stamps
// completed_at, waiting clears both.  The transition to calling is also
// conditional on no other group for the day being in the calling state,
// so the database enforces the single-entrance rule even across
// concurrent operator sessions.  Zero rows affected means either the
// group is gone (ErrGroupNotFound) or the transition was blocked
// (ErrStaleWrite).
func (r *GroupRepo) SetCallState(ctx context.Context, day model.Day, number int, from, to model.CallState) error {
	var q string
	args := []interface{}{to, string(day), number, from}
	switch to {
	case model.CallCalling:
		// MySQL rejects a subquery on the table being updated, so the
		// same-day calling count goes through a derived table.
		q = `UPDATE call_groups SET call_state = ?, called_at = UTC_TIMESTAMP()
		     WHERE day = ? AND number = ? AND call_state = ?
		       AND (SELECT cnt FROM (SELECT COUNT(*) AS cnt FROM call_groups WHERE day = ? AND call_state = ?) entrance) = 0`
		args = append(args, string(day), model.CallCalling)
	case model.CallCompleted:
		q = `UPDATE call_groups SET call_state = ?, completed_at = UTC_TIMESTAMP()
		     WHERE day = ? AND number = ? AND call_state = ?`
	default:
		q = `UPDATE call_groups SET call_state = ?, called_at = NULL, completed_at = NULL
		     WHERE day = ? AND number = ? AND call_state = ?`
	}
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
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM call_groups WHERE day = ? AND number = ?`, string(day), number).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrGroupNotFound
	}
	if err != nil {
		return err
	}
	return ErrStaleWrite
}

// SetMembers replaces the group's active membership.  The group row and
// its membership are one logical record, so the swap runs in a
// transaction.
func (r *GroupRepo) SetMembers(ctx context.Context, day model.Day, number int, members []string) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM call_groups WHERE day = ? AND number = ?`, string(day), number).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrGroupNotFound
	}
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE day = ? AND group_number = ?`, string(day), number); err != nil {
		return err
	}
	if err := insertMembersTx(ctx, tx, day, number, members); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// members returns the group's membership in insertion order.
func (r *GroupRepo) members(ctx context.Context, day model.Day, number int) ([]string, error) {
	const q = `SELECT reservation_id FROM group_members WHERE day = ? AND group_number = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, string(day), number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func insertMembersTx(ctx context.Context, tx *sql.Tx, day model.Day, number int, members []string) error {
	if len(members) == 0 {
		return nil
	}
	query := `INSERT INTO group_members (day, group_number, reservation_id) VALUES `
	args := make([]interface{}, 0, len(members)*3)
	for i, id := range members {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, string(day), number, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func scanGroup(row rowScanner, day model.Day) (model.Group, error) {
	var g model.Group
	var calledAt, completedAt sql.NullTime
	err := row.Scan(&g.Number, &g.CallState, &calledAt, &completedAt, &g.CreatedAt)
	if err != nil {
		return model.Group{}, err
	}
	g.Day = day
	if calledAt.Valid {
		t := calledAt.Time.UTC()
		g.CalledAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		g.CompletedAt = &t
	}
	return g, nil
}
