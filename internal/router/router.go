package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/kunugida/reservation-queue/internal/handler"
	"github.com/kunugida/reservation-queue/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication:
// the health check and the operator login.
func RegisterRoutes(e *echo.Echo, a *handler.AuthHandler) {
	e.GET("/healthz", handler.Health)
	e.POST("/v1/auth/login", a.Login)
}

// RegisterAdmin registers the operator endpoints under /v1/admin.  Every
// route in the group runs behind the JWT middleware.
func RegisterAdmin(e *echo.Echo, jwtSecret string, q *handler.QueueHandler, r *handler.ReservationHandler, s *handler.SettingsHandler) {
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))

	// Lane views and group calling.
	admin.GET("/lanes", q.Lanes)
	admin.GET("/groups/next", q.NextGroup)
	admin.GET("/groups/calling", q.CallingGroup)
	admin.POST("/groups/call", q.Call)
	admin.POST("/groups/:number/reset", q.Reset)

	// Interactive staging.
	admin.POST("/staging/add", q.StagingAdd)
	admin.POST("/staging/remove", q.StagingRemove)
	admin.POST("/staging/commit", q.StagingCommit)
	admin.GET("/staging", q.Staging)

	// Reservation intake and per-reservation actions.
	admin.POST("/reservations", r.Create)
	admin.GET("/reservations", r.List)
	admin.POST("/reservations/:id/visit", r.Visit)
	admin.POST("/reservations/:id/absent", r.Absent)
	admin.POST("/reservations/:id/guide", r.Guide)
	admin.POST("/reservations/:id/cancel", r.Cancel)

	// Absence and admission control.
	admin.GET("/absentees", q.Absentees)
	admin.GET("/auto-stop", q.AutoStop)
	admin.GET("/stats", r.Stats)

	// Operator settings.
	admin.GET("/settings", s.Get)
	admin.PUT("/settings", s.Update)
}
