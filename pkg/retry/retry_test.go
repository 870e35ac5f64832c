package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialInterval != 200*time.Millisecond {
		t.Errorf("InitialInterval = %v, want 200ms", config.InitialInterval)
	}
	if config.MaxInterval != 5*time.Second {
		t.Errorf("MaxInterval = %v, want 5s", config.MaxInterval)
	}
}

func TestNew_WithZeroValues(t *testing.T) {
	config := &Config{JitterFactor: 3}
	retrier := New(config)

	if retrier.config.InitialInterval != 200*time.Millisecond {
		t.Errorf("InitialInterval = %v, want default", retrier.config.InitialInterval)
	}
	if retrier.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", retrier.config.Multiplier)
	}
	if retrier.config.JitterFactor != 1 {
		t.Errorf("JitterFactor = %f, want clamped to 1", retrier.config.JitterFactor)
	}
	if config.InitialInterval != 0 {
		t.Error("New must not mutate the caller's config")
	}
}

func TestRetrier_Do_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	result := New(fastConfig(3)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("broker unavailable")
		}
		return nil
	})

	if result.Err != nil {
		t.Fatalf("Err = %v, want nil", result.Err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
}

func TestRetrier_Do_MaxRetriesExceeded(t *testing.T) {
	opErr := errors.New("broker unavailable")
	result := New(fastConfig(2)).Do(context.Background(), func(ctx context.Context) error {
		return opErr
	})

	if !errors.Is(result.Err, ErrMaxRetriesExceeded) {
		t.Errorf("Err = %v, want ErrMaxRetriesExceeded", result.Err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if !errors.Is(result.LastError, opErr) {
		t.Errorf("LastError = %v, want %v", result.LastError, opErr)
	}
}

func TestRetrier_Do_PermanentError(t *testing.T) {
	opErr := errors.New("invalid payload")
	attempts := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(opErr)
	})

	if !errors.Is(result.Err, opErr) {
		t.Errorf("Err = %v, want %v", result.Err, opErr)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetrier_Do_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(10)
	cfg.InitialInterval = time.Second
	cfg.MaxInterval = time.Second

	result := New(cfg).DoWithCallback(ctx, func(ctx context.Context) error {
		return errors.New("fail")
	}, func(attempt int, err error, next time.Duration) {
		cancel()
	})

	if !errors.Is(result.Err, ErrContextCanceled) {
		t.Errorf("Err = %v, want ErrContextCanceled", result.Err)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestRetrier_DoWithCallback(t *testing.T) {
	var intervals []time.Duration
	New(fastConfig(3)).DoWithCallback(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	}, func(attempt int, err error, next time.Duration) {
		intervals = append(intervals, next)
	})

	want := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}
	if len(intervals) != len(want) {
		t.Fatalf("callbacks = %d, want %d", len(intervals), len(want))
	}
	for i := range want {
		if intervals[i] != want[i] {
			t.Errorf("interval[%d] = %v, want %v", i, intervals[i], want[i])
		}
	}
}

func TestCalculateInterval_Capped(t *testing.T) {
	r := New(fastConfig(10))
	if got := r.calculateInterval(8); got != 20*time.Millisecond {
		t.Errorf("calculateInterval(8) = %v, want 20ms", got)
	}
}

func TestDo_ConvenienceFunction(t *testing.T) {
	result := Do(context.Background(), fastConfig(0), func(ctx context.Context) error { return nil })
	if result.Err != nil || result.Attempts != 1 {
		t.Errorf("Do = %+v, want success on first attempt", result)
	}
}
