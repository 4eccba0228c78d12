package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if rl.Allow() {
		t.Fatal("request beyond burst should be denied")
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 100, Burst: 1})

	if !rl.Allow() {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.Allow() {
		t.Fatal("bucket should have refilled")
	}
}

func TestRateLimiter_AllowN(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 1, Burst: 5})

	if !rl.AllowN(5) {
		t.Fatal("burst-sized batch should be allowed")
	}
	if rl.AllowN(1) {
		t.Fatal("bucket should be empty after batch")
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 100, Burst: 1})
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first wait should pass immediately: %v", err)
	}

	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("second wait failed: %v", err)
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Fatalf("wait took too long: %v", time.Since(start))
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 0.001, Burst: 1})
	rl.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRateLimiter_Execute(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 1, Burst: 1})

	executed := false
	if err := rl.Execute(func() error { executed = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !executed {
		t.Fatal("function was not executed")
	}

	if err := rl.Execute(func() error { return nil }); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_OnLimitCallback(t *testing.T) {
	var limited []string
	rl := NewRateLimiter(RateLimiterConfig{
		Name:    "watched",
		Rate:    1,
		Burst:   1,
		OnLimit: func(name string) { limited = append(limited, name) },
	})

	rl.Allow()
	rl.Allow()
	if len(limited) != 1 || limited[0] != "watched" {
		t.Fatalf("unexpected OnLimit calls: %v", limited)
	}
}
