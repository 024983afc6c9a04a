package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/taskforge/api/internal/ws"
)

type captureSubscriber struct {
	payloads chan []byte
}

func (c *captureSubscriber) Send(payload []byte) error {
	c.payloads <- payload
	return nil
}

func (c *captureSubscriber) Close() {}

func TestPublishDeliversEventPayload(t *testing.T) {
	hub := ws.NewHub()
	subscriber := &captureSubscriber{payloads: make(chan []byte, 1)}
	hub.Register("proj-1", subscriber)

	svc := New(hub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.Publish(TypeIssueCreated, "proj-1", "issue-9", "user-1")

	select {
	case payload := <-subscriber.payloads:
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.Type != TypeIssueCreated {
			t.Fatalf("unexpected type %q", event.Type)
		}
		if event.ProjectID != "proj-1" || event.ResourceID != "issue-9" || event.ActorID != "user-1" {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.OccurredAt.IsZero() {
			t.Fatal("expected occurred_at to be set")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishOnNilServiceIsNoop(t *testing.T) {
	var svc *Service
	svc.Publish(TypeCommentDeleted, "proj-1", "c-1", "user-1")
	if svc.Hub() != nil {
		t.Fatal("nil service must report nil hub")
	}
}
