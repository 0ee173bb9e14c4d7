package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/eventloop/enrollment/internal/model"
)

func TestRenderMessage(t *testing.T) {
	ev := &model.Event{
		Title:    "Autumn Hack Night",
		StartsAt: time.Date(2026, 10, 2, 19, 0, 0, 0, time.UTC),
	}

	msg := renderMessage(model.NotificationReasonPromoted, ev)
	if !strings.Contains(msg, "Autumn Hack Night") {
		t.Errorf("message %q missing event title", msg)
	}
	if !strings.Contains(msg, "2026-10-02T19:00:00Z") {
		t.Errorf("message %q missing start time", msg)
	}

	fallback := renderMessage("some_future_reason", ev)
	if !strings.Contains(fallback, "Autumn Hack Night") {
		t.Errorf("fallback message %q missing event title", fallback)
	}
}
