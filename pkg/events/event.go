package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent embeds the common implementation.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Session lifecycle event codes.
const (
	TypeSessionCreated = "SESSION_CREATED"
	TypeDocumentReady  = "DOCUMENT_READY"
	TypeDocumentFailed = "DOCUMENT_FAILED"
	TypeSessionCleaned = "SESSION_CLEANED"
)

func NewSessionCreated(sessionId string, documents int) Event {
	return BaseEvent{
		Type: TypeSessionCreated,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"documents":  documents,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentReady(sessionId, documentId string) Event {
	return BaseEvent{
		Type: TypeDocumentReady,
		Data: map[string]interface{}{
			"session_id":  sessionId,
			"document_id": documentId,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentFailed(sessionId, documentId, reason string) Event {
	return BaseEvent{
		Type: TypeDocumentFailed,
		Data: map[string]interface{}{
			"session_id":  sessionId,
			"document_id": documentId,
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionCleaned(sessionId string) Event {
	return BaseEvent{
		Type: TypeSessionCleaned,
		Data: map[string]interface{}{
			"session_id": sessionId,
		},
		OccurredAt: time.Now(),
	}
}
