package router

import (
	"github.com/labstack/echo/v4"

	"github.com/eventloop/enrollment/internal/handler"
	"github.com/eventloop/enrollment/internal/middleware"
	"github.com/eventloop/enrollment/internal/model"
)

// RegisterStaff registers the event-management and roster endpoints
// under /v1.  All routes require a valid JWT and the STAFF or ADMIN
// role.  Capacity and auto-enroll changes have dedicated routes because
// they run through the admission coordinator, not plain CRUD.
func RegisterStaff(e *echo.Echo, ev *handler.AdminEventHandler, enr *handler.AdminEnrollmentHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
	)

	// ---- Events ----
	g.POST("/events", ev.Create)
	g.PATCH("/events/:id", ev.Update)

	// ---- Rosters ----
	g.GET("/events/:id/enrollments", enr.Roster)
	g.POST("/events/:id/participants", enr.AddParticipant)
	g.DELETE("/events/:id/participants/:enrollmentID", enr.RemoveParticipant)

	// ---- Coordinator-backed event settings ----
	g.PATCH("/events/:id/capacity", enr.ChangeCapacity)
	g.PATCH("/events/:id/auto-enroll", enr.ToggleAutoEnroll)
}
