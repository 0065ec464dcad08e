package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventExternalIdentityLinked EventType = "external_identity_linked"
	EventTicketListed           EventType = "ticket_listed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, subjectID, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email  string `json:"email"`
	Method string `json:"method"`
}

// ExternalIdentityLinkedPayload payload.
type ExternalIdentityLinkedPayload struct {
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// TicketListedPayload payload.
type TicketListedPayload struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	City     string  `json:"city"`
	Price    float64 `json:"price"`
}
