package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kunugida/reservation-queue/internal/scheduler"
)

// SettingsHandler reads and updates the operator settings through the
// settings cache.
type SettingsHandler struct {
	Settings scheduler.SettingsProvider
}

func NewSettingsHandler(p scheduler.SettingsProvider) *SettingsHandler {
	return &SettingsHandler{Settings: p}
}

type settingsReq struct {
	ReceptionOpen   *bool `json:"reception_open"`
	ShowStatus      *bool `json:"show_status"`
	AutoStopEnabled *bool `json:"auto_stop_enabled"`
}

// Get returns the current settings snapshot.
func (h *SettingsHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	s, err := h.Settings.Get(ctx)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Update applies a partial settings change.  Omitted fields keep their
// current value, so flipping one toggle cannot clobber another
// operator's concurrent change to a different toggle.
func (h *SettingsHandler) Update(c echo.Context) error {
	var req settingsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ReceptionOpen == nil && req.ShowStatus == nil && req.AutoStopEnabled == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no settings provided"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	upd := scheduler.SettingsUpdate{
		ReceptionOpen:   req.ReceptionOpen,
		ShowStatus:      req.ShowStatus,
		AutoStopEnabled: req.AutoStopEnabled,
	}
	if err := h.Settings.Save(ctx, upd); err != nil {
		return jsonError(c, err)
	}
	s, err := h.Settings.Get(ctx)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
