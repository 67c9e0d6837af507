package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		BaseDelay:         0.001,
		MaxDelay:          0.01,
		BackoffMultiplier: 2.0,
	}
}

func retryableErr() error {
	return &ServerError{ProviderError: ProviderError{
		SDKError: SDKError{Message: "upstream down"}, Retryable: true, StatusCode: 503,
	}}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if result != "ok" || calls != 1 {
		t.Errorf("result = %q after %d calls, want ok after 1", result, calls)
	}
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", retryableErr()
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if result != "recovered" || calls != 3 {
		t.Errorf("result = %q after %d calls, want recovered after 3", result, calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (string, error) {
		calls++
		return "", retryableErr()
	})
	if err == nil {
		t.Fatal("expected the final error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestRetryDoesNotRetryConnectionError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context) (string, error) {
		calls++
		return "", &ConnectionError{SDKError: SDKError{Message: "connection refused"}}
	})
	if err == nil {
		t.Fatal("expected the connection error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1: unreachable backends are fatal, not transient", calls)
	}
	if !IsConnectionError(err) {
		t.Errorf("err = %T, want *ConnectionError", err)
	}
}

func TestRetryDoesNotRetryAuthenticationError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context) (string, error) {
		calls++
		return "", ErrorFromStatusCode(401, "bad key", "openai", nil)
	})
	if err == nil {
		t.Fatal("expected the auth error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	after := 0.005
	calls := 0
	var observedDelay time.Duration
	policy := fastPolicy(1)
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		observedDelay = delay
	}
	_, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			e := ErrorFromStatusCode(429, "slow down", "ollama", &after)
			return "", e
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	want := time.Duration(after * float64(time.Second))
	if observedDelay != want {
		t.Errorf("delay = %v, want the server-specified %v", observedDelay, want)
	}
}

func TestRetryBailsWhenRetryAfterExceedsCap(t *testing.T) {
	after := 120.0
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		return "", ErrorFromStatusCode(429, "slow down", "ollama", &after)
	})
	if err == nil {
		t.Fatal("expected the rate limit error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 when the wait would exceed MaxDelay", calls)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := fastPolicy(3)
	policy.BaseDelay = 10 // force a long wait so cancellation wins the select
	calls := 0
	_, err := Retry(ctx, policy, func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", retryableErr()
	})
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want it to wrap context.Canceled", err)
	}
}

func TestDelayBackoff(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1, MaxDelay: 4, BackoffMultiplier: 2}
	wants := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for attempt, want := range wants {
		if got := policy.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestDelayJitterStaysInBounds(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1, MaxDelay: 30, BackoffMultiplier: 2, Jitter: true}
	for i := 0; i < 100; i++ {
		d := policy.Delay(0)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay %v outside [0.5s, 1.5s]", d)
		}
	}
}
