package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kunugida/reservation-queue/internal/scheduler"
)

// ReservationHandler exposes reservation intake and per-reservation
// admission actions.
type ReservationHandler struct {
	Sched *scheduler.Scheduler
	Store scheduler.Store
}

func NewReservationHandler(s *scheduler.Scheduler, store scheduler.Store) *ReservationHandler {
	return &ReservationHandler{Sched: s, Store: store}
}

// Create registers a new reservation.  Intake is refused while
// reception is closed; waiting parties already in the system are not
// affected.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req scheduler.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	settings, err := h.Sched.Settings().Get(ctx)
	if err != nil {
		return jsonError(c, err)
	}
	if !settings.ReceptionOpen {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "reception is closed"})
	}

	r, err := h.Sched.CreateReservation(ctx, req)
	if err != nil && r == nil {
		return jsonError(c, err)
	}
	resp := echo.Map{"reservation": viewOf(*r)}
	if err != nil {
		// Created but not grouped; the operator stages it by hand.
		resp["warning"] = err.Error()
	}
	return c.JSON(http.StatusCreated, resp)
}

// List returns the day's reservations, optionally filtered by status
// ("waiting", "visited", "cancelled").
func (h *ReservationHandler) List(c echo.Context) error {
	day, ok := dayParam(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	rs, err := h.Store.ListReservations(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	views := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		if status != "" && r.Status.String() != status {
			continue
		}
		views = append(views, viewOf(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": views})
}

// Visit records that the reservation showed up during its group's call.
func (h *ReservationHandler) Visit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Sched.MarkVisited(ctx, c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "visited"})
}

// Absent marks the reservation as a no-show and hands it to the absence
// monitor.
func (h *ReservationHandler) Absent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Sched.MarkAbsent(ctx, c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "absent"})
}

// Guide re-admits an absentee who returned before the purge: the absence
// mark is cleared and the reservation jumps ahead of its lane.
func (h *ReservationHandler) Guide(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Sched.GuideBack(ctx, c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "waiting", "priority": true})
}

// Cancel is an explicit operator cancellation.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Sched.CancelReservation(ctx, c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// Stats returns the day's admission statistics.
func (h *ReservationHandler) Stats(c echo.Context) error {
	day, ok := dayParam(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	stats, err := h.Sched.Stats(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
