package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventloop/enrollment/internal/engine"
	"github.com/eventloop/enrollment/internal/model"
	"github.com/eventloop/enrollment/internal/repository"
)

// AdminEnrollmentHandler serves the staff/admin roster-management
// endpoints.  Role checks run in middleware; every mutation still goes
// through the admission coordinator so manual additions and removals
// obey the same capacity and FIFO rules as self-service enrollment.
type AdminEnrollmentHandler struct {
	Coordinator *engine.Coordinator
	Enrollments *repository.EnrollmentRepo
}

func NewAdminEnrollmentHandler(coord *engine.Coordinator, enrollments *repository.EnrollmentRepo) *AdminEnrollmentHandler {
	if coord == nil || enrollments == nil {
		panic("nil dependency passed to NewAdminEnrollmentHandler")
	}
	return &AdminEnrollmentHandler{Coordinator: coord, Enrollments: enrollments}
}

// AddParticipant handles POST /v1/events/:id/participants.  Enrolls the
// given user on their behalf; same guards and waitlist placement as
// self-enrollment.
func (h *AdminEnrollmentHandler) AddParticipant(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		UserID uint64 `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil || body.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	res, err := h.Coordinator.AdminAdd(c.Request().Context(), eventID, body.UserID)
	if err != nil {
		return engineError(c, err)
	}
	resp := echo.Map{
		"enrollment_id": res.EnrollmentID,
		"status":        res.Status,
	}
	if res.Status == model.StatusWaitlist {
		resp["waitlist_position"] = res.WaitlistPosition
	}
	return c.JSON(http.StatusCreated, resp)
}

// RemoveParticipant handles DELETE /v1/events/:id/participants/:enrollmentID.
// Removing a confirmed participant frees a slot and triggers promotion
// exactly like a self-service cancel.
func (h *AdminEnrollmentHandler) RemoveParticipant(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	enrollmentID, ok := pathID(c, "enrollmentID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid enrollment id"})
	}
	res, err := h.Coordinator.AdminRemove(c.Request().Context(), eventID, enrollmentID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"deleted":        true,
		"was_confirmed":  res.WasConfirmed,
		"promoted_count": len(res.PromotedUsers),
	})
}

// ChangeCapacity handles PATCH /v1/events/:id/capacity.  Raising
// capacity promotes waitlisted users in FIFO order up to the new limit;
// lowering it never demotes anyone already confirmed.
func (h *AdminEnrollmentHandler) ChangeCapacity(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		MaxCapacity uint32 `json:"max_capacity"`
	}
	if err := c.Bind(&body); err != nil || body.MaxCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_capacity must be a positive integer"})
	}
	promoted, err := h.Coordinator.ChangeCapacity(c.Request().Context(), eventID, body.MaxCapacity)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"max_capacity":   body.MaxCapacity,
		"promoted_count": promoted,
	})
}

// ToggleAutoEnroll handles PATCH /v1/events/:id/auto-enroll.  Enabling
// the override force-confirms every active profile that has no active
// enrollment, ignoring capacity; users already confirmed or waitlisted
// keep their record as is.  Disabling only stops future auto-admission.
func (h *AdminEnrollmentHandler) ToggleAutoEnroll(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.Bind(&body); err != nil || body.Enabled == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "enabled is required"})
	}
	enrolled, err := h.Coordinator.ToggleAutoEnrollAll(c.Request().Context(), eventID, *body.Enabled)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"auto_enroll_all": *body.Enabled,
		"enrolled_count":  enrolled,
	})
}

// Roster handles GET /v1/events/:id/enrollments.  Returns confirmed
// participants first, then the waitlist in queue order.
func (h *AdminEnrollmentHandler) Roster(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	items, err := h.Enrollments.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load roster"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
