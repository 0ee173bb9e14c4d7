package router

import (
	"github.com/labstack/echo/v4"

	"github.com/eventloop/enrollment/internal/handler"
	"github.com/eventloop/enrollment/internal/middleware"
	"github.com/eventloop/enrollment/internal/model"
)

// RegisterUser registers the self-service enrollment endpoints under
// /v1.  All routes require a valid JWT; any role may enroll.  The
// optional limit middleware (Redis token bucket) guards the two
// mutation routes, which are the contention-prone paths.
func RegisterUser(e *echo.Echo, h *handler.EnrollmentHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleStaff, model.RoleAdmin),
	)

	mut := []echo.MiddlewareFunc{}
	if limit != nil {
		mut = append(mut, limit)
	}
	g.POST("/events/:id/enroll", h.Enroll, mut...)
	g.DELETE("/events/:id/enroll", h.Cancel, mut...)

	g.GET("/my-enrollments", h.ListMine)
	g.GET("/my-notifications", h.ListNotifications)
}
