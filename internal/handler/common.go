package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventloop/enrollment/internal/engine"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter; zero is rejected.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// engineError translates admission-engine sentinels into JSON error
// responses with stable machine-readable codes. Unknown errors become
// opaque 500s so internal detail never leaks to clients.
func engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"code": "EVENT_NOT_FOUND", "error": "event not found"})
	case errors.Is(err, engine.ErrEventNotPublished):
		return c.JSON(http.StatusConflict, echo.Map{"code": "EVENT_NOT_PUBLISHED", "error": "event is not open for enrollment"})
	case errors.Is(err, engine.ErrEventStarted):
		return c.JSON(http.StatusConflict, echo.Map{"code": "EVENT_STARTED", "error": "event has already started"})
	case errors.Is(err, engine.ErrProfileNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"code": "PROFILE_NOT_FOUND", "error": "user profile not found"})
	case errors.Is(err, engine.ErrAlreadyEnrolled):
		return c.JSON(http.StatusConflict, echo.Map{"code": "ALREADY_ENROLLED", "error": "user already has an active enrollment for this event"})
	case errors.Is(err, engine.ErrEnrollmentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"code": "ENROLLMENT_NOT_FOUND", "error": "no active enrollment found"})
	case errors.Is(err, engine.ErrEventBusy):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"code": "EVENT_BUSY", "error": "event is busy, retry shortly"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "INTERNAL", "error": "internal error"})
	}
}
