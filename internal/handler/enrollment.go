package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventloop/enrollment/internal/engine"
	"github.com/eventloop/enrollment/internal/model"
	"github.com/eventloop/enrollment/internal/repository"
)

// EnrollmentHandler serves the self-service enrollment endpoints.  All
// methods assume JWT authentication has already run; they may return 401
// when the user ID cannot be extracted from the context.  Mutations go
// through the admission coordinator so the per-event critical section
// and waitlist invariants hold.
type EnrollmentHandler struct {
	Coordinator   *engine.Coordinator
	Enrollments   *repository.EnrollmentRepo
	Notifications *repository.NotificationRepo
}

func NewEnrollmentHandler(coord *engine.Coordinator, enrollments *repository.EnrollmentRepo, notifications *repository.NotificationRepo) *EnrollmentHandler {
	if coord == nil || enrollments == nil || notifications == nil {
		panic("nil dependency passed to NewEnrollmentHandler")
	}
	return &EnrollmentHandler{Coordinator: coord, Enrollments: enrollments, Notifications: notifications}
}

// Enroll handles POST /v1/events/:id/enroll.  Confirms the caller into
// the event when a slot is free, otherwise appends them to the waitlist
// tail.  Returns 201 with the resulting status and, for waitlisted
// users, their 1-based queue position.
func (h *EnrollmentHandler) Enroll(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	res, err := h.Coordinator.Enroll(c.Request().Context(), eventID, userID)
	if err != nil {
		return engineError(c, err)
	}
	body := echo.Map{
		"enrollment_id": res.EnrollmentID,
		"status":        res.Status,
	}
	if res.Status == model.StatusWaitlist {
		body["waitlist_position"] = res.WaitlistPosition
	}
	return c.JSON(http.StatusCreated, body)
}

// Cancel handles DELETE /v1/events/:id/enroll.  Cancelling a confirmed
// enrollment frees a slot and promotes the head of the waitlist before
// the response is written; cancelling a waitlisted one closes the gap
// in queue positions.
func (h *EnrollmentHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	res, err := h.Coordinator.Cancel(c.Request().Context(), eventID, userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cancelled":      true,
		"was_confirmed":  res.WasConfirmed,
		"promoted_count": len(res.PromotedUsers),
	})
}

// ListMine handles GET /v1/my-enrollments.  Returns the caller's active
// enrollments (confirmed and waitlisted) with event details; cancelled
// history is not included.
func (h *EnrollmentHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Enrollments.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load enrollments"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListNotifications handles GET /v1/my-notifications.  Returns the
// caller's notification history, most recent first.
func (h *EnrollmentHandler) ListNotifications(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Notifications.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
