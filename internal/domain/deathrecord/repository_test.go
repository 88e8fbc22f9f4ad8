package deathrecord

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func TestOutboxEntries(t *testing.T) {
	repo := NewRepository(nil, Topics{Events: "events", Submissions: "submissions"}, zap.NewNop())

	agg := New("rec-1")
	if err := agg.Draft(draftData("doc-1")); err != nil {
		t.Fatal(err)
	}
	if err := agg.Submit(); err != nil {
		t.Fatal(err)
	}
	agg.Changes()[1].WithCorrelation("req-9")

	drafted := repo.outboxEntries(agg, agg.Changes()[0])
	if len(drafted) != 1 || drafted[0].Topic != "events" || drafted[0].RecordID != "rec-1" || drafted[0].DocumentID != "doc-1" {
		t.Fatalf("drafted entries = %+v", drafted)
	}

	submitted := repo.outboxEntries(agg, agg.Changes()[1])
	if len(submitted) != 2 {
		t.Fatalf("expected event and request entries, got %d", len(submitted))
	}
	if submitted[1].Topic != "submissions" || submitted[1].DocumentID != "doc-1" {
		t.Errorf("request entry = %+v", submitted[1])
	}

	var req SubmissionRequest
	if err := json.Unmarshal(submitted[1].Payload, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.RecordID != "rec-1" || req.DocumentID != "doc-1" || req.Jurisdiction != "MA" || req.CorrelationID != "req-9" {
		t.Errorf("request = %+v", req)
	}
	if string(req.Bundle) != string(agg.Bundle()) {
		t.Errorf("request bundle = %s", req.Bundle)
	}

	var event Event
	if err := json.Unmarshal(submitted[0].Payload, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.EventType != EventDeathRecordSubmitted {
		t.Errorf("event type = %s", event.EventType)
	}
}

func TestOutboxEntriesWithoutSubmissionTopic(t *testing.T) {
	repo := NewRepository(nil, Topics{Events: "events"}, nil)
	agg := New("rec-1")
	if err := agg.Draft(draftData("doc-1")); err != nil {
		t.Fatal(err)
	}
	if err := agg.Submit(); err != nil {
		t.Fatal(err)
	}
	if got := repo.outboxEntries(agg, agg.Changes()[1]); len(got) != 1 {
		t.Errorf("expected only the event entry, got %d", len(got))
	}
}
