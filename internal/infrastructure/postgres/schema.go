package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the event store, outbox and submission inbox tables.
const Schema = `
CREATE TABLE IF NOT EXISTS death_record_events (
	id             UUID PRIMARY KEY,
	aggregate_id   TEXT        NOT NULL,
	event_type     TEXT        NOT NULL,
	event_data     JSONB       NOT NULL,
	version        INTEGER     NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	document_id    TEXT        NOT NULL DEFAULT '',
	jurisdiction   TEXT        NOT NULL DEFAULT '',
	correlation_id TEXT        NOT NULL DEFAULT '',
	UNIQUE (aggregate_id, version)
);
CREATE INDEX IF NOT EXISTS death_record_events_type_idx ON death_record_events (event_type, timestamp DESC);

CREATE TABLE IF NOT EXISTS outbox (
	id            BIGSERIAL PRIMARY KEY,
	record_id     TEXT        NOT NULL,
	document_id   TEXT        NOT NULL DEFAULT '',
	event_type    TEXT        NOT NULL,
	topic         TEXT        NOT NULL,
	payload       JSONB       NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at  TIMESTAMPTZ,
	dead_lettered BOOLEAN     NOT NULL DEFAULT FALSE,
	retry_count   INTEGER     NOT NULL DEFAULT 0,
	last_error    TEXT
);
CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (id) WHERE processed_at IS NULL;

CREATE TABLE IF NOT EXISTS submission_inbox (
	key        TEXT PRIMARY KEY,
	handler    TEXT        NOT NULL,
	status     TEXT        NOT NULL,
	payload    JSONB,
	result     JSONB,
	attempts   INTEGER     NOT NULL DEFAULT 0,
	last_error TEXT,
	claimed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS submission_inbox_claimed_idx ON submission_inbox (claimed_at) WHERE status = 'claimed';
`

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
