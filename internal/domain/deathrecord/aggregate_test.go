package deathrecord

import (
	"encoding/json"
	"errors"
	"testing"
)

func draftData(documentID string) *DeathRecordDraftedData {
	return &DeathRecordDraftedData{
		DocumentID:   documentID,
		Jurisdiction: "MA",
		Fingerprint:  "fp-" + documentID,
		Bundle:       json.RawMessage(`{"resourceType":"Bundle","id":"` + documentID + `"}`),
	}
}

func TestDeathRecordLifecycle(t *testing.T) {
	agg := New("rec-1")
	if agg.Status() != StatusNew {
		t.Fatalf("initial status = %s", agg.Status())
	}

	if err := agg.Draft(draftData("doc-1")); err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if agg.Status() != StatusDrafted || agg.DocumentID() != "doc-1" || agg.Jurisdiction() != "MA" {
		t.Errorf("after draft: status=%s document=%s jurisdiction=%s", agg.Status(), agg.DocumentID(), agg.Jurisdiction())
	}
	if agg.Fingerprint() != "fp-doc-1" {
		t.Errorf("fingerprint = %q", agg.Fingerprint())
	}

	if err := agg.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := agg.Accept("doc-1", 201); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if agg.Status() != StatusAccepted {
		t.Errorf("status = %s", agg.Status())
	}
	if agg.Version() != 3 || len(agg.Changes()) != 3 {
		t.Errorf("version=%d changes=%d", agg.Version(), len(agg.Changes()))
	}

	want := []EventType{EventDeathRecordDrafted, EventDeathRecordSubmitted, EventDeathRecordAccepted}
	for i, e := range agg.Changes() {
		if e.EventType != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.EventType, want[i])
		}
		if e.AggregateType != AggregateType || e.AggregateID != "rec-1" {
			t.Errorf("event %d aggregate = %s/%s", i, e.AggregateType, e.AggregateID)
		}
		if e.DocumentID != "doc-1" {
			t.Errorf("event %d document = %q", i, e.DocumentID)
		}
	}
}

func TestDeathRecordResubmitAfterRejection(t *testing.T) {
	agg := New("rec-1")
	if err := agg.Draft(draftData("doc-1")); err != nil {
		t.Fatal(err)
	}
	if err := agg.Submit(); err != nil {
		t.Fatal(err)
	}
	if err := agg.Reject("doc-1", 422, "missing cause of death"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if agg.Status() != StatusRejected || agg.RejectionReason() != "missing cause of death" {
		t.Fatalf("status=%s reason=%q", agg.Status(), agg.RejectionReason())
	}

	if err := agg.Submit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("submit without rebuild: got %v", err)
	}

	if err := agg.Draft(draftData("doc-2")); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if agg.RejectionReason() != "" {
		t.Errorf("reason survived rebuild: %q", agg.RejectionReason())
	}
	if err := agg.Submit(); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if err := agg.Accept("doc-1", 200); !errors.Is(err, ErrDocumentMismatch) {
		t.Errorf("stale outcome: got %v", err)
	}
	if err := agg.Accept("doc-2", 200); err != nil {
		t.Errorf("Accept: %v", err)
	}
}

func TestDeathRecordInvalidTransitions(t *testing.T) {
	agg := New("rec-1")
	if err := agg.Submit(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("submit new record: %v", err)
	}
	if err := agg.Accept("doc-1", 200); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("accept new record: %v", err)
	}
	if err := agg.Draft(&DeathRecordDraftedData{DocumentID: "doc-1"}); err == nil {
		t.Error("expected error for a draft without a bundle")
	}

	if err := agg.Draft(draftData("doc-1")); err != nil {
		t.Fatal(err)
	}
	if err := agg.Submit(); err != nil {
		t.Fatal(err)
	}
	if err := agg.Draft(draftData("doc-2")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("draft while submitted: %v", err)
	}
	if err := agg.Accept("doc-1", 200); err != nil {
		t.Fatal(err)
	}
	if err := agg.Reject("doc-1", 400, "late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reject accepted record: %v", err)
	}
	if err := agg.Draft(draftData("doc-3")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("draft accepted record: %v", err)
	}
}

func TestDeathRecordLoadFromHistory(t *testing.T) {
	src := New("rec-1")
	if err := src.Draft(draftData("doc-1")); err != nil {
		t.Fatal(err)
	}
	if err := src.Submit(); err != nil {
		t.Fatal(err)
	}
	if err := src.Reject("doc-1", 400, "bad address"); err != nil {
		t.Fatal(err)
	}

	agg := New("rec-1")
	agg.LoadFromHistory(src.Changes())

	if agg.Version() != 3 || len(agg.Changes()) != 0 {
		t.Errorf("version=%d changes=%d", agg.Version(), len(agg.Changes()))
	}
	if agg.committedVersion() != 3 {
		t.Errorf("committed version = %d", agg.committedVersion())
	}
	if agg.Status() != StatusRejected || agg.RejectionReason() != "bad address" {
		t.Errorf("status=%s reason=%q", agg.Status(), agg.RejectionReason())
	}
	if string(agg.Bundle()) != string(draftData("doc-1").Bundle) {
		t.Errorf("bundle = %s", agg.Bundle())
	}
	if len(agg.History()) != 3 {
		t.Errorf("history = %d events", len(agg.History()))
	}
}
