package repository

import (
	"context"
	"database/sql"

	"github.com/kunugida/reservation-queue/internal/model"
)

// SettingsRepo persists the single operational settings record.  The
// table holds exactly one row keyed by name 'base'; an absent row reads
// as the defaults (reception open, status board visible, auto-stop on).
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo returns a new SettingsRepo bound to the given database.
func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Get reads the settings row, returning defaults when none exists yet.
func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	const q = `SELECT reception_open, show_status, auto_stop_enabled FROM settings WHERE name = 'base'`
	var s model.Settings
	err := r.db.QueryRowContext(ctx, q).Scan(&s.ReceptionOpen, &s.ShowStatus, &s.AutoStopEnabled)
	if err == sql.ErrNoRows {
		return model.Settings{ReceptionOpen: true, ShowStatus: true, AutoStopEnabled: true}, nil
	}
	if err != nil {
		return model.Settings{}, err
	}
	return s, nil
}

// Save upserts the settings row with the full snapshot.
func (r *SettingsRepo) Save(ctx context.Context, s model.Settings) error {
	const q = `INSERT INTO settings (name, reception_open, show_status, auto_stop_enabled)
	           VALUES ('base', ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	               reception_open = VALUES(reception_open),
	               show_status = VALUES(show_status),
	               auto_stop_enabled = VALUES(auto_stop_enabled)`
	_, err := r.db.ExecContext(ctx, q, s.ReceptionOpen, s.ShowStatus, s.AutoStopEnabled)
	return err
}
