package mq

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a voting lifecycle or ballot event
type EventType string

const (
	EventSessionCreated   EventType = "session.created"
	EventSessionOpened    EventType = "session.opened"
	EventSessionClosed    EventType = "session.closed"
	EventSessionFinalized EventType = "session.finalized"
	EventSessionDeleted   EventType = "session.deleted"
	EventBallotSubmitted  EventType = "ballot.submitted"
)

// Event is published after the change it describes has been committed.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	Status     string    `json:"status,omitempty"`
	VoterID    string    `json:"voter_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Attempts   int       `json:"attempts,omitempty"`
}

// NewEvent stamps a fresh id on an event
func NewEvent(eventType EventType, sessionID string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		SessionID:  sessionID,
		OccurredAt: at.UTC(),
	}
}

// Publisher delivers events to whatever is listening
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler consumes an event taken off a queue
type Handler func(ctx context.Context, event Event) error

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }
