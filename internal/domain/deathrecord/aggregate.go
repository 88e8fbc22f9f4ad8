package deathrecord

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status represents death record status
type Status string

const (
	StatusNew       Status = "new"
	StatusDrafted   Status = "drafted"
	StatusSubmitted Status = "submitted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

var (
	// ErrInvalidTransition is returned when a command does not apply to the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDocumentMismatch is returned for an outcome that refers to a superseded document.
	ErrDocumentMismatch = errors.New("outcome does not match the submitted document")
)

// DeathRecord is the aggregate root tracking one certificate from draft to registration.
type DeathRecord struct {
	id           string
	version      int
	status       Status
	documentID   string
	jurisdiction string
	fingerprint  string
	bundle       json.RawMessage
	reason       string
	createdAt    time.Time
	updatedAt    time.Time
	history      []*Event
	changes      []*Event
}

// New creates an empty death record aggregate
func New(id string) *DeathRecord {
	now := time.Now().UTC()
	return &DeathRecord{
		id:        id,
		status:    StatusNew,
		createdAt: now,
		updatedAt: now,
		changes:   make([]*Event, 0),
	}
}

// ID returns the aggregate ID
func (a *DeathRecord) ID() string { return a.id }

// Version returns the current version
func (a *DeathRecord) Version() int { return a.version }

// Status returns the current status
func (a *DeathRecord) Status() Status { return a.status }

// DocumentID returns the identifier of the current document bundle.
func (a *DeathRecord) DocumentID() string { return a.documentID }

func (a *DeathRecord) Jurisdiction() string { return a.jurisdiction }

func (a *DeathRecord) Fingerprint() string { return a.fingerprint }

// Bundle returns the current document as serialized JSON.
func (a *DeathRecord) Bundle() json.RawMessage { return a.bundle }

// RejectionReason returns the reason given by the last rejection, if any.
func (a *DeathRecord) RejectionReason() string { return a.reason }

func (a *DeathRecord) CreatedAt() time.Time { return a.createdAt }

func (a *DeathRecord) UpdatedAt() time.Time { return a.updatedAt }

// History returns every applied event, committed or not.
func (a *DeathRecord) History() []*Event { return a.history }

// Changes returns uncommitted events
func (a *DeathRecord) Changes() []*Event { return a.changes }

// ClearChanges clears uncommitted events
func (a *DeathRecord) ClearChanges() { a.changes = make([]*Event, 0) }

// committedVersion is the version the event store holds for this aggregate.
func (a *DeathRecord) committedVersion() int { return a.version - len(a.changes) }

func (a *DeathRecord) pending(event *Event) {
	a.changes = append(a.changes, event)
}

// Draft stores a newly built document. A rejected record goes back to drafted
// so the rebuilt document can be submitted again.
func (a *DeathRecord) Draft(data *DeathRecordDraftedData) error {
	switch a.status {
	case StatusNew, StatusDrafted, StatusRejected:
	default:
		return fmt.Errorf("%w: cannot draft a %s record", ErrInvalidTransition, a.status)
	}
	if data.DocumentID == "" || len(data.Bundle) == 0 {
		return errors.New("drafted record requires a document")
	}
	data.RecordID = a.id
	if data.DraftedAt.IsZero() {
		data.DraftedAt = time.Now().UTC()
	}

	event, err := NewEvent(a.id, EventDeathRecordDrafted, data)
	if err != nil {
		return err
	}
	event.DocumentID = data.DocumentID
	event.Jurisdiction = data.Jurisdiction

	a.apply(event)
	a.pending(event)
	return nil
}

// Submit requests registration of the current document.
func (a *DeathRecord) Submit() error {
	if a.status != StatusDrafted {
		return fmt.Errorf("%w: cannot submit a %s record", ErrInvalidTransition, a.status)
	}

	data := &DeathRecordSubmittedData{
		RecordID:     a.id,
		DocumentID:   a.documentID,
		Jurisdiction: a.jurisdiction,
		SubmittedAt:  time.Now().UTC(),
	}
	event, err := NewEvent(a.id, EventDeathRecordSubmitted, data)
	if err != nil {
		return err
	}
	event.DocumentID = a.documentID
	event.Jurisdiction = a.jurisdiction

	a.apply(event)
	a.pending(event)
	return nil
}

// Accept records the registry's acceptance of documentID.
func (a *DeathRecord) Accept(documentID string, statusCode int) error {
	if err := a.checkOutcome(documentID); err != nil {
		return err
	}

	data := &DeathRecordAcceptedData{
		RecordID:   a.id,
		DocumentID: documentID,
		StatusCode: statusCode,
		AcceptedAt: time.Now().UTC(),
	}
	event, err := NewEvent(a.id, EventDeathRecordAccepted, data)
	if err != nil {
		return err
	}
	event.DocumentID = documentID

	a.apply(event)
	a.pending(event)
	return nil
}

// Reject records the registry's rejection of documentID.
func (a *DeathRecord) Reject(documentID string, statusCode int, reason string) error {
	if err := a.checkOutcome(documentID); err != nil {
		return err
	}

	data := &DeathRecordRejectedData{
		RecordID:   a.id,
		DocumentID: documentID,
		StatusCode: statusCode,
		Reason:     reason,
		RejectedAt: time.Now().UTC(),
	}
	event, err := NewEvent(a.id, EventDeathRecordRejected, data)
	if err != nil {
		return err
	}
	event.DocumentID = documentID

	a.apply(event)
	a.pending(event)
	return nil
}

func (a *DeathRecord) checkOutcome(documentID string) error {
	if a.status != StatusSubmitted {
		return fmt.Errorf("%w: no submission pending for a %s record", ErrInvalidTransition, a.status)
	}
	if documentID != a.documentID {
		return ErrDocumentMismatch
	}
	return nil
}

// apply applies an event to update state
func (a *DeathRecord) apply(event *Event) {
	a.version++
	a.updatedAt = event.Timestamp
	a.history = append(a.history, event)

	switch event.EventType {
	case EventDeathRecordDrafted:
		var data DeathRecordDraftedData
		if err := json.Unmarshal(event.EventData, &data); err != nil {
			return
		}
		if a.version == 1 {
			a.createdAt = event.Timestamp
		}
		a.status = StatusDrafted
		a.documentID = data.DocumentID
		a.jurisdiction = data.Jurisdiction
		a.fingerprint = data.Fingerprint
		a.bundle = data.Bundle
		a.reason = ""
	case EventDeathRecordSubmitted:
		a.status = StatusSubmitted
	case EventDeathRecordAccepted:
		a.status = StatusAccepted
	case EventDeathRecordRejected:
		var data DeathRecordRejectedData
		if err := json.Unmarshal(event.EventData, &data); err != nil {
			return
		}
		a.status = StatusRejected
		a.reason = data.Reason
	}
}

// LoadFromHistory rebuilds state from events
func (a *DeathRecord) LoadFromHistory(events []*Event) {
	for _, event := range events {
		a.apply(event)
	}
}
