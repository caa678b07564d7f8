package querysync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", cfg.BackoffMultiplier)
	}
	if cfg.InitialBackoff <= 0 || cfg.MaxBackoff < cfg.InitialBackoff {
		t.Errorf("backoff bounds = %v..%v", cfg.InitialBackoff, cfg.MaxBackoff)
	}
}

func TestWithRetry(t *testing.T) {
	transient := errors.New("503")
	fatal := errors.New("404")

	tests := []struct {
		name      string
		cfg       RetryConfig
		errs      []error // returned by successive attempts; nil => success
		wantCalls int32
		check     func(t *testing.T, v any, err error)
	}{
		{
			name:      "succeeds after transient failures",
			cfg:       fastRetry(3),
			errs:      []error{transient, transient, nil},
			wantCalls: 3,
			check: func(t *testing.T, v any, err error) {
				if err != nil || v != "ok" {
					t.Fatalf("got %v, %v", v, err)
				}
			},
		},
		{
			name:      "gives up after max attempts",
			cfg:       fastRetry(2),
			errs:      []error{transient, transient, nil},
			wantCalls: 2,
			check: func(t *testing.T, _ any, err error) {
				var fe *FetchError
				if !errors.As(err, &fe) || fe.Attempts != 2 || fe.Key != "k,1" {
					t.Fatalf("err=%v", err)
				}
				if !errors.Is(err, ErrRetryExhausted) || !errors.Is(err, transient) {
					t.Fatalf("err=%v should wrap ErrRetryExhausted and the cause", err)
				}
			},
		},
		{
			name:      "cancellation is not retried",
			cfg:       fastRetry(5),
			errs:      []error{ErrCanceled},
			wantCalls: 1,
			check: func(t *testing.T, _ any, err error) {
				if !IsCanceled(err) {
					t.Fatalf("err=%v", err)
				}
			},
		},
		{
			name: "non-retryable stops immediately",
			cfg: func() RetryConfig {
				c := fastRetry(5)
				c.Retryable = func(err error) bool { return !errors.Is(err, fatal) }
				return c
			}(),
			errs:      []error{fatal},
			wantCalls: 1,
			check: func(t *testing.T, _ any, err error) {
				if !errors.Is(err, fatal) || errors.Is(err, ErrRetryExhausted) {
					t.Fatalf("err=%v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			fetch := WithRetry(func(context.Context, QueryContext) (any, error) {
				i := calls.Add(1) - 1
				if int(i) < len(tt.errs) && tt.errs[i] != nil {
					return nil, tt.errs[i]
				}
				return "ok", nil
			}, tt.cfg)

			v, err := fetch(context.Background(), QueryContext{Key: K("k", 1)})
			tt.check(t, v, err)
			if got := calls.Load(); got != tt.wantCalls {
				t.Fatalf("calls=%d want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiplier: 2}
	fetch := WithRetry(func(context.Context, QueryContext) (any, error) {
		cancel()
		return nil, errors.New("503")
	}, cfg)

	_, err := fetch(ctx, QueryContext{Key: K("k")})
	if !IsCanceled(err) {
		t.Fatalf("err=%v want cancellation", err)
	}
}

func TestRetryExhaustionPublishesFetchError(t *testing.T) {
	e := newTestEngine(t, Options{})
	k := K("flaky")
	rec := &recorder{}
	_ = e.Subscribe(k, Subscriber{ID: "a", OnData: rec.onData})

	cause := errors.New("503")
	fetch := WithRetry(func(context.Context, QueryContext) (any, error) { return nil, cause }, fastRetry(3))
	if _, err := e.Fetch(k, nil, fetch, nil); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	eventually(t, func() bool { return rec.len() == 1 }, "fail published")

	var fe *FetchError
	if ev := rec.snapshot()[0]; ev.kind != Fail || !errors.As(ev.reason, &fe) || fe.Attempts != 3 {
		t.Fatalf("event=%+v", ev)
	}
}
