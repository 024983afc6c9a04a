package events

import (
	"encoding/json"
	"time"

	"log/slog"

	"github.com/taskforge/api/internal/ws"
)

// Event types published on project activity streams.
const (
	TypeIssueCreated   = "issue.created"
	TypeIssueUpdated   = "issue.updated"
	TypeIssueDeleted   = "issue.deleted"
	TypeCommentCreated = "comment.created"
	TypeCommentUpdated = "comment.updated"
	TypeCommentDeleted = "comment.deleted"
)

// Event is the wire payload for one activity entry.
type Event struct {
	Type       string    `json:"type"`
	ProjectID  string    `json:"project_id"`
	ResourceID string    `json:"resource_id"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Service broadcasts project activity to stream subscribers. A nil Service
// drops events, which keeps resource services testable without a hub.
type Service struct {
	hub    *ws.Hub
	logger *slog.Logger
}

// New constructs a Service around a hub.
func New(hub *ws.Hub, logger *slog.Logger) *Service {
	return &Service{hub: hub, logger: logger}
}

// Hub exposes the underlying hub for subscription management.
func (s *Service) Hub() *ws.Hub {
	if s == nil {
		return nil
	}
	return s.hub
}

// Publish fans an event out to every subscriber of the project stream.
func (s *Service) Publish(eventType, projectID, resourceID, actorID string) {
	if s == nil || s.hub == nil {
		return
	}
	payload, err := json.Marshal(Event{
		Type:       eventType,
		ProjectID:  projectID,
		ResourceID: resourceID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("event marshal failed", "type", eventType, "error", err)
		return
	}
	s.hub.Broadcast(projectID, payload)
}
