package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventloop/enrollment/internal/model"
	"github.com/eventloop/enrollment/internal/repository"
)

// AdminEventHandler serves event CRUD for staff and admins.  Capacity
// and the auto-enroll flag are intentionally absent from the update
// path: those change through the coordinator endpoints so waitlist
// promotion happens under the event lock.
type AdminEventHandler struct {
	Events *repository.EventRepo
}

func NewAdminEventHandler(events *repository.EventRepo) *AdminEventHandler {
	if events == nil {
		panic("nil repository passed to NewAdminEventHandler")
	}
	return &AdminEventHandler{Events: events}
}

type eventReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MaxCapacity uint32 `json:"max_capacity"`
	IsPublished bool   `json:"is_published"`
	StartsAt    string `json:"starts_at"` // RFC3339
}

// Create handles POST /v1/events.  max_capacity must be positive;
// events are created as drafts unless is_published is set.
func (h *AdminEventHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.MaxCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_capacity must be a positive integer"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	ev := &model.Event{
		Title:       req.Title,
		Description: req.Description,
		MaxCapacity: req.MaxCapacity,
		IsPublished: req.IsPublished,
		StartsAt:    startsAt.UTC(),
		CreatedBy:   userID,
	}
	if err := h.Events.Create(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, ev)
}

// Update handles PATCH /v1/events/:id.  Rewrites title, description,
// start time and the publish flag.  Capacity changes are rejected here
// with a pointer to the dedicated endpoint.
func (h *AdminEventHandler) Update(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.MaxCapacity != 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "use PATCH /v1/events/:id/capacity to change capacity"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	ctx := c.Request().Context()
	if err := h.Events.Update(ctx, eventID, req.Title, req.Description, startsAt, req.IsPublished); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusOK, ev)
}
