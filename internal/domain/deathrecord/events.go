// Package deathrecord implements the death record aggregate and domain events.
package deathrecord

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AggregateType names death record streams in the event store and outbox.
const AggregateType = "DeathRecord"

// EventType represents the type of domain event
type EventType string

const (
	EventDeathRecordDrafted   EventType = "DeathRecordDrafted"
	EventDeathRecordSubmitted EventType = "DeathRecordSubmitted"
	EventDeathRecordAccepted  EventType = "DeathRecordAccepted"
	EventDeathRecordRejected  EventType = "DeathRecordRejected"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     EventType       `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	DocumentID    string          `json:"document_id,omitempty"`
	Jurisdiction  string          `json:"jurisdiction,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// NewEvent creates a new event
func NewEvent(aggregateID string, eventType EventType, data interface{}) (*Event, error) {
	eventData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: AggregateType,
		EventType:     eventType,
		EventData:     eventData,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// WithCorrelation tags the event with the request that caused it.
func (e *Event) WithCorrelation(id string) *Event {
	e.CorrelationID = id
	return e
}

// DeathRecordDraftedData carries a freshly built death certificate document.
type DeathRecordDraftedData struct {
	RecordID     string          `json:"record_id"`
	DocumentID   string          `json:"document_id"`
	Jurisdiction string          `json:"jurisdiction,omitempty"`
	Fingerprint  string          `json:"fingerprint"`
	Bundle       json.RawMessage `json:"bundle"`
	DraftedAt    time.Time       `json:"drafted_at"`
}

// DeathRecordSubmittedData records a submission request for the current document.
type DeathRecordSubmittedData struct {
	RecordID     string    `json:"record_id"`
	DocumentID   string    `json:"document_id"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// DeathRecordAcceptedData records the registry's acceptance.
type DeathRecordAcceptedData struct {
	RecordID   string    `json:"record_id"`
	DocumentID string    `json:"document_id"`
	StatusCode int       `json:"status_code"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// DeathRecordRejectedData records the registry's rejection.
type DeathRecordRejectedData struct {
	RecordID   string    `json:"record_id"`
	DocumentID string    `json:"document_id"`
	StatusCode int       `json:"status_code,omitempty"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
}

// SubmissionRequest is the message published for the submission service.
type SubmissionRequest struct {
	RecordID      string          `json:"record_id"`
	DocumentID    string          `json:"document_id"`
	Jurisdiction  string          `json:"jurisdiction,omitempty"`
	Bundle        json.RawMessage `json:"bundle"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}
