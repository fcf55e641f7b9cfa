package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibeylab/trendkit/core"
)

func transientErr() error {
	return core.NewError("test", core.CodeTransient, "rate limited")
}

func fatalErr() error {
	return core.NewError("test", core.CodeFatalService, "auth failed")
}

func TestCaller_RetriesThenSucceeds(t *testing.T) {
	var slept []time.Duration
	failures := 2

	c := NewCaller(
		WithMaxRetries(3),
		WithInitialDelay(100*time.Millisecond),
		WithBackoffMultiplier(2),
		WithSleep(func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	)

	calls := 0
	err := c.Execute(context.Background(), "test", func(context.Context) error {
		calls++
		if calls <= failures {
			return transientErr()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != failures+1 {
		t.Errorf("calls = %d, want %d", calls, failures+1)
	}

	// 第 i 次重试前等待 initial * multiplier^i
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %d times, want %d", len(slept), len(want))
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestCaller_ExhaustsRetries(t *testing.T) {
	sleeps := 0
	c := NewCaller(
		WithMaxRetries(2),
		WithInitialDelay(time.Millisecond),
		WithSleep(func(context.Context, time.Duration) error {
			sleeps++
			return nil
		}),
	)

	calls := 0
	err := c.Execute(context.Background(), "test", func(context.Context) error {
		calls++
		return transientErr()
	})
	if !core.IsTransient(err) {
		t.Fatalf("want last transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
	if sleeps != 2 {
		t.Errorf("sleeps = %d, want 2", sleeps)
	}
}

func TestCaller_FatalNotRetried(t *testing.T) {
	c := NewCaller(
		WithMaxRetries(3),
		WithSleep(func(context.Context, time.Duration) error {
			t.Fatal("fatal error must not trigger backoff")
			return nil
		}),
	)

	calls := 0
	err := c.Execute(context.Background(), "test", func(context.Context) error {
		calls++
		return fatalErr()
	})
	if !core.IsFatalService(err) {
		t.Fatalf("want fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCaller_CancelledBeforeBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	c := NewCaller(
		WithMaxRetries(3),
		WithInitialDelay(time.Millisecond),
	)

	calls := 0
	err := c.Execute(ctx, "test", func(context.Context) error {
		calls++
		cancel() // 操作失败的同时触发取消
		return transientErr()
	})
	if !core.IsCancelled(err) {
		t.Fatalf("want cancelled error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry after cancel)", calls)
	}
}

func TestCaller_CustomRetryable(t *testing.T) {
	sentinel := errors.New("flaky")
	sleeps := 0

	c := NewCaller(
		WithMaxRetries(1),
		WithInitialDelay(time.Millisecond),
		WithRetryable(func(err error) bool { return errors.Is(err, sentinel) }),
		WithSleep(func(context.Context, time.Duration) error {
			sleeps++
			return nil
		}),
	)

	calls := 0
	err := c.Execute(context.Background(), "test", func(context.Context) error {
		calls++
		if calls == 1 {
			return sentinel
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if sleeps != 1 {
		t.Errorf("sleeps = %d, want 1", sleeps)
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	c := NewCaller(WithMaxRetries(1), WithSleep(func(context.Context, time.Duration) error { return nil }))

	calls := 0
	got, err := Do(context.Background(), c, "test", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", transientErr()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Do() = %q, want %q", got, "ok")
	}
}
