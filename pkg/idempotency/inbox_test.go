package idempotency

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("rec-1", "doc-1")
	if len(a) != 64 {
		t.Fatalf("key length = %d", len(a))
	}
	if b := GenerateKey(" rec-1", "doc-1 "); b != a {
		t.Errorf("surrounding space changed the key")
	}
	if c := GenerateKey("rec-1", "doc-2"); c == a {
		t.Errorf("different documents produced the same key")
	}
	if d := GenerateKey("rec-1doc-1"); d == a {
		t.Errorf("part boundaries ignored")
	}
}

func TestTerminal(t *testing.T) {
	base := errors.New("registry rejected the document")
	err := fmt.Errorf("submit: %w", Terminal(base))

	if !IsTerminal(err) {
		t.Error("wrapped terminal error not detected")
	}
	if !errors.Is(err, base) {
		t.Error("terminal error does not unwrap to its cause")
	}
	if IsTerminal(base) {
		t.Error("plain error reported as terminal")
	}
	if Terminal(nil) != nil {
		t.Error("Terminal(nil) should be nil")
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Processed: "processed", Recovered: "recovered", Replayed: "replayed", Outcome(9): "unknown"} {
		if got := o.String(); got != want {
			t.Errorf("%d: got %q, want %q", o, got, want)
		}
	}
}

func TestNewInboxFillsDefaults(t *testing.T) {
	in := NewInbox(nil, InboxConfig{ClaimTimeout: time.Minute}, nil)
	if in.config.Table != "submission_inbox" || in.config.TTL != DefaultInboxConfig().TTL {
		t.Errorf("config = %+v", in.config)
	}
	if in.config.ClaimTimeout != time.Minute {
		t.Errorf("claim timeout overridden: %v", in.config.ClaimTimeout)
	}
}
