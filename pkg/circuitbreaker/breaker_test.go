package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUnavailable = errors.New("registry unavailable")

func testConfig(name string) Config {
	cfg := DefaultConfig(name)
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	return cfg
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb, err := New(testConfig("MA"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	fail := func(context.Context) error { return errUnavailable }

	for i := 0; i < 2; i++ {
		if err := cb.Do(ctx, fail); !errors.Is(err, errUnavailable) {
			t.Fatalf("call %d: got %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %s", cb.State())
	}

	called := false
	err = cb.Do(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("open breaker returned %v", err)
	}
	if called {
		t.Error("open breaker ran the call")
	}
}

func TestBreakerIgnoresSuccessfulErrors(t *testing.T) {
	errRejected := errors.New("document rejected")
	cfg := testConfig("NY")
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errRejected) }
	cb, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := cb.Do(context.Background(), func(context.Context) error { return errRejected }); !errors.Is(err, errRejected) {
			t.Fatalf("call %d: got %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %s", cb.State())
	}
}

func TestManagerReusesBreakers(t *testing.T) {
	m := NewManager(testConfig(""), nil)
	a, err := m.Get("MA")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.Get("MA")
	c, _ := m.Get("NY")
	if a != b {
		t.Error("same name returned different breakers")
	}
	if a == c {
		t.Error("different names share a breaker")
	}
	health := m.Health()
	if len(health) != 2 || health[0].Name > health[1].Name {
		t.Errorf("health = %+v", health)
	}
}

func TestManagerOpen(t *testing.T) {
	m := NewManager(testConfig(""), nil)
	ma, _ := m.Get("MA")
	m.Get("NY")

	for i := 0; i < 2; i++ {
		ma.Do(context.Background(), func(context.Context) error { return errUnavailable })
	}
	open := m.Open()
	if len(open) != 1 || open[0] != "MA" {
		t.Errorf("open = %v", open)
	}
	for _, h := range m.Health() {
		if h.Name == "MA" && h.ConsecutiveFailures != 0 {
			// counts reset when the breaker opens
			t.Errorf("MA consecutive failures = %d", h.ConsecutiveFailures)
		}
	}
}
