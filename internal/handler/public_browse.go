package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventloop/enrollment/internal/repository"
)

// PublicHandler serves the unauthenticated browse endpoints.  Responses
// carry live confirmed/waitlist counts so clients can show availability
// before asking users to sign in.
type PublicHandler struct {
	Events *repository.EventRepo
}

func NewPublicHandler(events *repository.EventRepo) *PublicHandler {
	if events == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Events: events}
}

// ListEvents handles GET /v1/events.  Only published events are shown.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	items, err := h.Events.ListSummaries(c.Request().Context(), true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetEvent handles GET /v1/events/:id.  Unpublished events are hidden
// from the public view and reported as not found.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	summary, err := h.Events.Summary(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	if !summary.IsPublished {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": summary})
}
