package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func collect[T any](p *Pool[T]) map[string]*Result[T] {
	out := make(map[string]*Result[T])
	for r := range p.Results() {
		out[r.Task.ID] = r
	}
	return out
}

func TestPoolRetriesUntilSuccess(t *testing.T) {
	var calls int32
	p, err := New(Config{Workers: 2, QueueSize: 4, MaxRetries: 3, RetryDelay: time.Millisecond},
		func(ctx context.Context, task *Task[string]) error {
			if atomic.AddInt32(&calls, 1) < 3 {
				return errors.New("registry busy")
			}
			return nil
		}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start()

	if err := p.Submit(context.Background(), &Task[string]{ID: "rec-1", Payload: "doc-1"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	go p.Stop()

	results := collect(p)
	r := results["rec-1"]
	if r == nil || !r.Success() {
		t.Fatalf("result = %+v", r)
	}
	if r.Attempts != 3 {
		t.Errorf("attempts = %d", r.Attempts)
	}
	if s := p.Stats(); s.TasksRetried != 2 || s.TasksCompleted != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestPoolStopsRetryingNonRetryable(t *testing.T) {
	errRejected := errors.New("rejected")
	p, err := New(Config{
		Workers:    1,
		MaxRetries: 5,
		RetryDelay: time.Millisecond,
		Retryable:  func(err error) bool { return !errors.Is(err, errRejected) },
	}, func(ctx context.Context, task *Task[int]) error { return errRejected }, nil)
	if err != nil {
		t.Fatal(err)
	}
	p.Start()
	if err := p.Submit(context.Background(), &Task[int]{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	go p.Stop()

	r := collect(p)["a"]
	if r == nil || !errors.Is(r.Err, errRejected) || r.Attempts != 1 {
		t.Errorf("result = %+v", r)
	}
}

func TestPoolExhaustsRetries(t *testing.T) {
	errDown := errors.New("down")
	p, _ := New(Config{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond},
		func(ctx context.Context, task *Task[int]) error { return errDown }, nil)
	p.Start()
	if err := p.Submit(context.Background(), &Task[int]{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	go p.Stop()

	r := collect(p)["a"]
	if r == nil || !errors.Is(r.Err, errDown) || r.Attempts != 3 {
		t.Errorf("result = %+v", r)
	}
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p, _ := New(Config{Workers: 1}, func(ctx context.Context, task *Task[int]) error { return nil }, nil)
	p.Start()
	p.Stop()
	if err := p.Submit(context.Background(), &Task[int]{ID: "late"}); !errors.Is(err, ErrStopped) {
		t.Errorf("got %v", err)
	}
}

func TestNewRequiresWorkerFunc(t *testing.T) {
	if _, err := New[int](Config{}, nil, nil); err == nil {
		t.Error("expected error")
	}
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	p, err := New(Config{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second},
		func(context.Context, *Task[int]) error { return nil }, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for attempt, w := range want {
		if got := p.backoff(attempt); got != w {
			t.Errorf("backoff(%d) = %s, want %s", attempt, got, w)
		}
	}
}
