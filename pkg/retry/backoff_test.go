package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWithExponentialBackoff_SuccessFirstAttempt(t *testing.T) {
	cfg := Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		Multiplier:     2.0,
	}

	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		return nil
	}

	if err := WithExponentialBackoff(context.Background(), cfg, op); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	cfg := Config{
		MaxRetries:     5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Multiplier:     2.0,
	}

	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil
	}

	start := time.Now()
	err := WithExponentialBackoff(context.Background(), cfg, op)
	elapsed := time.Since(start)

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	// 10ms + 20ms of waiting at minimum
	if elapsed < 30*time.Millisecond {
		t.Errorf("expected at least 30ms elapsed, got %v", elapsed)
	}
}

func TestWithExponentialBackoff_ExhaustsRetries(t *testing.T) {
	cfg := Config{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}

	attempts := 0
	expectedErr := errors.New("permanent failure")
	op := func(ctx context.Context) error {
		attempts++
		return expectedErr
	}

	err := WithExponentialBackoff(context.Background(), cfg, op)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 4 {
		t.Errorf("expected 4 attempts (1 initial + 3 retries), got %d", attempts)
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected wrapped error to be %v, got %v", expectedErr, err)
	}
}

func TestWithExponentialBackoff_PermanentStopsImmediately(t *testing.T) {
	cfg := Config{MaxRetries: -1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	attempts := 0
	sentinel := errors.New("bad credentials")
	err := WithExponentialBackoff(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return Permanent(sentinel)
	})

	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel in chain, got %v", err)
	}
	if !IsPermanent(err) {
		t.Fatalf("expected permanent marker to survive wrapping")
	}
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	cfg := Config{
		MaxRetries:     10,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		Multiplier:     2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		return errors.New("always fails")
	}

	err := WithExponentialBackoff(ctx, cfg, op)
	if err == nil {
		t.Fatal("expected error due to context cancellation, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if attempts == 0 || attempts > 5 {
		t.Errorf("unexpected attempt count %d", attempts)
	}
}

func TestWithNotify_ReportsEveryFailure(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}

	var notified []int
	_ = WithNotify(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("down")
	}, func(attempt int, err error, wait time.Duration) {
		notified = append(notified, attempt)
	})

	// the final failure is returned, not notified
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Fatalf("unexpected notifications %v", notified)
	}
}

func TestDelay_ExponentialGrowth(t *testing.T) {
	cfg := Config{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}

	tests := []struct {
		retryNumber int
		want        time.Duration
	}{
		{0, 0},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // 32s capped
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("retry_%d", tt.retryNumber), func(t *testing.T) {
			if got := Delay(tt.retryNumber, cfg); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.retryNumber, got, tt.want)
			}
		})
	}
}

func TestDelay_DefaultMultiplier(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: time.Minute}
	if got := Delay(3, cfg); got != 4*time.Second {
		t.Fatalf("expected zero multiplier to default to 2.0, got %v", got)
	}
}

func TestDelay_WithJitter(t *testing.T) {
	cfg := Config{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}

	expectedBase := 4 * time.Second
	minExpected := time.Duration(float64(expectedBase) * 0.75)
	maxExpected := time.Duration(float64(expectedBase) * 1.25)

	results := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		backoff := Delay(3, cfg)
		if backoff < minExpected || backoff > maxExpected {
			t.Errorf("backoff %v outside expected range [%v, %v]", backoff, minExpected, maxExpected)
		}
		results[backoff] = true
	}

	if len(results) < 5 {
		t.Error("jitter not producing enough variation in backoff durations")
	}
}
