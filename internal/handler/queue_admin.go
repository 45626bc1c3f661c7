package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kunugida/reservation-queue/internal/model"
	"github.com/kunugida/reservation-queue/internal/scheduler"
)

// QueueHandler exposes the operator's queue controls: lane views, group
// calling, interactive staging and absence management.
type QueueHandler struct {
	Sched *scheduler.Scheduler
}

func NewQueueHandler(s *scheduler.Scheduler) *QueueHandler {
	return &QueueHandler{Sched: s}
}

// ----- DTOs -----

type lanesResp struct {
	Standard         []reservationView `json:"standard"`
	PriorityTime     []reservationView `json:"priority_time"`
	WaitingHeadcount int               `json:"waiting_headcount"`
}

type callReq struct {
	Day          string `json:"day"`
	GroupNumbers []int  `json:"group_numbers"`
}

type callResultPart struct {
	Number int    `json:"number"`
	Called bool   `json:"called"`
	Error  string `json:"error,omitempty"`
}

type dayReq struct {
	Day string `json:"day"`
}

type idReq struct {
	ID string `json:"id"`
}

type commitResultPart struct {
	ID        string `json:"id"`
	Committed bool   `json:"committed"`
	Error     string `json:"error,omitempty"`
}

type absenteePart struct {
	Reservation    reservationView `json:"reservation"`
	ElapsedSeconds int             `json:"elapsed_seconds"`
}

// Lanes returns the classified waiting queue for a day.
func (h *QueueHandler) Lanes(c echo.Context) error {
	day, ok := dayParam(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	lanes, err := h.Sched.ClassifyLanes(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, lanesResp{
		Standard:         viewsOf(lanes.Standard),
		PriorityTime:     viewsOf(lanes.PriorityTime),
		WaitingHeadcount: lanes.WaitingHeadcount(),
	})
}

// NextGroup returns the next candidate group to call, handling time-slot
// fold-in and priority synthesis along the way.  A null group means the
// queue is drained.
func (h *QueueHandler) NextGroup(c echo.Context) error {
	day, ok := dayParam(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cand, err := h.Sched.NextGroup(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	if cand == nil {
		return c.JSON(http.StatusOK, echo.Map{"group": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"group": candidateViewOf(*cand)})
}

// CallingGroup returns the group currently at the entrance, or null.
func (h *QueueHandler) CallingGroup(c echo.Context) error {
	day, ok := dayParam(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	g, err := h.Sched.CallingGroup(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	if g == nil {
		return c.JSON(http.StatusOK, echo.Map{"group": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"group": groupViewOf(*g)})
}

// Call attempts to call the requested groups.  Each group is reported
// independently; with a single entrance at most one call succeeds.
func (h *QueueHandler) Call(c echo.Context) error {
	var req callReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	day := model.Day(req.Day)
	if !day.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing day"})
	}
	if len(req.GroupNumbers) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "group_numbers required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	results := h.Sched.CallMany(ctx, day, req.GroupNumbers)
	parts := make([]callResultPart, 0, len(results))
	for _, r := range results {
		p := callResultPart{Number: r.Number, Called: r.Err == nil}
		if r.Err != nil {
			p.Error = r.Err.Error()
		}
		parts = append(parts, p)
	}
	return c.JSON(http.StatusOK, echo.Map{"results": parts})
}

// Reset returns a called or completed group to the waiting state and
// cancels any armed completion countdown.
func (h *QueueHandler) Reset(c echo.Context) error {
	number, err := intParam(c, "number")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group number"})
	}
	var req dayReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	day := model.Day(req.Day)
	if !day.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing day"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Sched.Reset(ctx, day, number); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "waiting"})
}

// StagingAdd pulls one reservation into the operator's staging group.
func (h *QueueHandler) StagingAdd(c echo.Context) error {
	var req idReq
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Sched.AddToStaging(ctx, req.ID); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"staged": req.ID})
}

// StagingRemove returns a staged reservation to its lane.
func (h *QueueHandler) StagingRemove(c echo.Context) error {
	var req idReq
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id required"})
	}
	h.Sched.RemoveFromStaging(req.ID)
	return c.JSON(http.StatusOK, echo.Map{"removed": req.ID})
}

// Staging returns the current staging group for a day.
func (h *QueueHandler) Staging(c echo.Context) error {
	day, ok := dayParam(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	view, err := h.Sched.StagedGroup(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"members":         viewsOf(view.Members),
		"total_headcount": view.TotalHeadcount,
	})
}

// StagingCommit finalizes the staging group, applying the configured
// accept policy to each member.  Members that fail stay staged.
func (h *QueueHandler) StagingCommit(c echo.Context) error {
	var req dayReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	day := model.Day(req.Day)
	if !day.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing day"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	results, err := h.Sched.CommitStaging(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	parts := make([]commitResultPart, 0, len(results))
	for _, r := range results {
		p := commitResultPart{ID: r.ID, Committed: r.Err == nil}
		if r.Err != nil {
			p.Error = r.Err.Error()
		}
		parts = append(parts, p)
	}
	return c.JSON(http.StatusOK, echo.Map{"results": parts})
}

// Absentees lists tracked absentees ordered by how long they have been
// away.
func (h *QueueHandler) Absentees(c echo.Context) error {
	day, ok := dayParam(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	absentees, err := h.Sched.ListAbsentees(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	parts := make([]absenteePart, 0, len(absentees))
	for _, a := range absentees {
		parts = append(parts, absenteePart{
			Reservation:    viewOf(a.Reservation),
			ElapsedSeconds: int(a.Elapsed.Seconds()),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"absentees": parts})
}

// AutoStop reports the current auto-stop assessment without waiting for
// the periodic monitor.  It applies the same side effects the monitor
// would, closing reception when the threshold is crossed.
func (h *QueueHandler) AutoStop(c echo.Context) error {
	day, ok := dayParam(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	res, err := h.Sched.CheckAutoStop(ctx, day)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
