package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kunugida/reservation-queue/internal/model"
	"github.com/kunugida/reservation-queue/internal/scheduler"
)

const timestampLayout = "2006-01-02 15:04:05"

// ----- shared DTOs -----

type reservationView struct {
	ID            string  `json:"id"`
	Day           string  `json:"day"`
	Category      string  `json:"category"`
	Headcount     int     `json:"headcount"`
	ScheduledTime *string `json:"scheduled_time,omitempty"`
	Status        string  `json:"status"`
	Priority      bool    `json:"priority"`
	Absent        bool    `json:"absent"`
	AbsentAt      *string `json:"absent_at,omitempty"`
	CancelReason  *string `json:"cancel_reason,omitempty"`
	GroupNumber   *int    `json:"group_number,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func viewOf(r model.Reservation) reservationView {
	v := reservationView{
		ID:            r.ID,
		Day:           string(r.Day),
		Category:      string(r.Category()),
		Headcount:     r.Headcount,
		ScheduledTime: r.ScheduledTime,
		Status:        r.Status.String(),
		Priority:      r.Priority,
		Absent:        r.Absent,
		CancelReason:  r.CancelReason,
		GroupNumber:   r.GroupNumber,
		CreatedAt:     r.CreatedAt.UTC().Format(timestampLayout),
	}
	if r.AbsentAt != nil {
		s := r.AbsentAt.UTC().Format(timestampLayout)
		v.AbsentAt = &s
	}
	return v
}

func viewsOf(rs []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, viewOf(r))
	}
	return out
}

type groupView struct {
	Number      int      `json:"number"`
	Day         string   `json:"day"`
	CallState   string   `json:"call_state"`
	Members     []string `json:"members"`
	CalledAt    *string  `json:"called_at,omitempty"`
	CompletedAt *string  `json:"completed_at,omitempty"`
}

func groupViewOf(g model.Group) groupView {
	v := groupView{
		Number:    g.Number,
		Day:       string(g.Day),
		CallState: g.CallState.String(),
		Members:   g.Members,
	}
	if v.Members == nil {
		v.Members = []string{}
	}
	if g.CalledAt != nil {
		s := g.CalledAt.UTC().Format(timestampLayout)
		v.CalledAt = &s
	}
	if g.CompletedAt != nil {
		s := g.CompletedAt.UTC().Format(timestampLayout)
		v.CompletedAt = &s
	}
	return v
}

type candidateView struct {
	Number         int               `json:"number"`
	HasPriority    bool              `json:"has_priority"`
	TotalHeadcount int               `json:"total_headcount"`
	Members        []reservationView `json:"members"`
}

func candidateViewOf(gc scheduler.GroupCandidate) candidateView {
	return candidateView{
		Number:         gc.Number,
		HasPriority:    gc.HasPriority,
		TotalHeadcount: gc.TotalHeadcount,
		Members:        viewsOf(gc.Members),
	}
}

// ----- request helpers -----

// dayParam reads and validates the ?day= query parameter.  The second
// return is false after an error response has already been written.
func dayParam(c echo.Context) (model.Day, bool) {
	day := model.Day(c.QueryParam("day"))
	if !day.Valid() {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing day"})
		return "", false
	}
	return day, true
}

// intParam parses a numeric path parameter.
func intParam(c echo.Context, name string) (int, error) {
	return strconv.Atoi(c.Param(name))
}

// jsonError maps scheduler sentinels onto HTTP statuses.  Validation
// details are safe to surface; anything unexpected hides behind a
// generic message.
func jsonError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, scheduler.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, scheduler.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, scheduler.ErrCapacityExceeded),
		errors.Is(err, scheduler.ErrAlreadyCalling),
		errors.Is(err, scheduler.ErrStaleWrite):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// dbTimeout bounds handler-side store work the same way the repository
// callers do elsewhere.
const dbTimeout = 5 * time.Second
