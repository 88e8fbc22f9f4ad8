package deathrecord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/postgres"
)

var (
	// ErrNotFound is returned when no events exist for a record.
	ErrNotFound = errors.New("death record not found")
	// ErrConcurrencyConflict is returned when another writer appended to the stream first.
	ErrConcurrencyConflict = errors.New("death record modified concurrently")
)

// uniqueViolation is the PostgreSQL error code raised by the (aggregate_id, version) key.
const uniqueViolation = "23505"

// Topics names the streams the repository writes outbox rows for.
type Topics struct {
	Events      string
	Submissions string
}

// Repository provides event sourcing persistence
type Repository struct {
	pool   *pgxpool.Pool
	topics Topics
	logger *zap.Logger
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool, topics Topics, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, topics: topics, logger: logger}
}

// Save appends the aggregate's uncommitted events and their outbox rows in one
// transaction. It fails with ErrConcurrencyConflict when the stream has moved
// past the version the aggregate was loaded at.
func (r *Repository) Save(ctx context.Context, agg *DeathRecord) error {
	if len(agg.Changes()) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM death_record_events WHERE aggregate_id = $1`,
		agg.ID()).Scan(&current)
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if current != agg.committedVersion() {
		return fmt.Errorf("%w: expected version %d, found %d", ErrConcurrencyConflict, agg.committedVersion(), current)
	}

	for i, event := range agg.Changes() {
		event.Version = agg.committedVersion() + i + 1
		if err := r.insertEvent(ctx, tx, event); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: version %d already written", ErrConcurrencyConflict, event.Version)
			}
			return fmt.Errorf("insert event: %w", err)
		}
		for _, entry := range r.outboxEntries(agg, event) {
			if err := postgres.WriteEntry(ctx, tx, entry); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.Debug("death record saved",
		zap.String("id", agg.ID()),
		zap.Int("version", agg.Version()),
		zap.Int("events", len(agg.Changes())))

	agg.ClearChanges()
	return nil
}

// outboxEntries returns the messages published for an event. Every event goes
// to the events topic; a submission also produces a request carrying the bundle.
func (r *Repository) outboxEntries(agg *DeathRecord, event *Event) []*postgres.OutboxEntry {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to encode event", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}

	entries := []*postgres.OutboxEntry{{
		RecordID:   event.AggregateID,
		DocumentID: event.DocumentID,
		EventType:  string(event.EventType),
		Topic:      r.topics.Events,
		Payload:    payload,
	}}

	if event.EventType == EventDeathRecordSubmitted && r.topics.Submissions != "" {
		req, err := json.Marshal(&SubmissionRequest{
			RecordID:      agg.ID(),
			DocumentID:    agg.DocumentID(),
			Jurisdiction:  agg.Jurisdiction(),
			Bundle:        agg.Bundle(),
			CorrelationID: event.CorrelationID,
		})
		if err != nil {
			r.logger.Error("failed to encode submission request", zap.String("id", agg.ID()), zap.Error(err))
			return entries
		}
		entries = append(entries, &postgres.OutboxEntry{
			RecordID:   event.AggregateID,
			DocumentID: agg.DocumentID(),
			EventType:  string(event.EventType),
			Topic:      r.topics.Submissions,
			Payload:    req,
		})
	}
	return entries
}

func (r *Repository) insertEvent(ctx context.Context, tx pgx.Tx, event *Event) error {
	query := `
		INSERT INTO death_record_events
		(id, aggregate_id, event_type, event_data, version, timestamp, document_id, jurisdiction, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.Exec(ctx, query,
		event.ID,
		event.AggregateID,
		event.EventType,
		event.EventData,
		event.Version,
		event.Timestamp,
		event.DocumentID,
		event.Jurisdiction,
		event.CorrelationID,
	)
	return err
}

// Load retrieves an aggregate by ID
func (r *Repository) Load(ctx context.Context, id string) (*DeathRecord, error) {
	events, err := r.GetEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	agg := New(id)
	agg.LoadFromHistory(events)
	return agg, nil
}

// GetEvents retrieves all events for an aggregate
func (r *Repository) GetEvents(ctx context.Context, aggregateID string) ([]*Event, error) {
	query := `
		SELECT id, aggregate_id, event_type, event_data, version, timestamp,
		       document_id, jurisdiction, correlation_id
		FROM death_record_events
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`

	rows, err := r.pool.Query(ctx, query, aggregateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{AggregateType: AggregateType}
		err := rows.Scan(
			&e.ID, &e.AggregateID, &e.EventType, &e.EventData, &e.Version,
			&e.Timestamp, &e.DocumentID, &e.Jurisdiction, &e.CorrelationID,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEventsByType retrieves the most recent events of one type across records.
func (r *Repository) GetEventsByType(ctx context.Context, eventType EventType, limit int) ([]*Event, error) {
	query := `
		SELECT id, aggregate_id, event_type, event_data, version, timestamp
		FROM death_record_events
		WHERE event_type = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, eventType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{AggregateType: AggregateType}
		err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.EventData, &e.Version, &e.Timestamp)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
