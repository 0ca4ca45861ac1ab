package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alwanly/social-hub/pkg/logger"
)

func TestPollerRunsJobUntilStopped(t *testing.T) {
	p := NewPoller(logger.NewNop())

	var runs atomic.Int32
	err := p.Register("session-refresh", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, Config{Interval: 5 * time.Millisecond, RunImmediately: true})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	_ = p.Stop()

	after := runs.Load()
	if after < 2 {
		t.Fatalf("expected several runs, got %d", after)
	}
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != after {
		t.Fatal("job kept running after Stop")
	}
}

func TestPollerRegisterValidation(t *testing.T) {
	p := NewPoller(logger.NewNop())
	noop := func(context.Context) error { return nil }

	if err := p.Register("", noop, DefaultConfig()); !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob, got %v", err)
	}
	if err := p.Register("a", noop, Config{}); !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob for zero interval, got %v", err)
	}
	if err := p.Register("a", noop, DefaultConfig()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := p.Register("a", noop, DefaultConfig()); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	_ = p.Start(context.Background())
	defer p.Stop()
	if err := p.Register("b", noop, DefaultConfig()); !errors.Is(err, ErrStarted) {
		t.Fatalf("expected ErrStarted, got %v", err)
	}
}
