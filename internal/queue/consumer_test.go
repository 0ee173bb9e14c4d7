package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendLogLine(t *testing.T) {
	dir := t.TempDir()
	ev := WaitlistPromotedEvent{
		UserID:     7,
		EventID:    3,
		EventTitle: "Go Meetup",
		StartsAt:   "2026-10-01T18:00:00Z",
		Reason:     "waitlist_promoted",
		PromotedAt: "2026-09-01T12:00:00Z",
	}
	if err := appendLogLine(dir, ev); err != nil {
		t.Fatalf("appendLogLine: %v", err)
	}
	if err := appendLogLine(dir, ev); err != nil {
		t.Fatalf("appendLogLine (second): %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "notifications.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for _, want := range []string{"user_id=7", "event_id=3", `event="Go Meetup"`, "reason=waitlist_promoted"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("log line %q missing %q", lines[0], want)
		}
	}
}

func TestHandleMessageRejectsBadJSON(t *testing.T) {
	if err := handleMessage([]byte("{not json")); err == nil {
		t.Error("malformed payload accepted")
	}
}
