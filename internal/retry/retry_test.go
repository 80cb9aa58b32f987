package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ytbatch/internal/services"
)

func apiErr(status int, reason string) error {
	return &services.APIError{StatusCode: status, Reason: reason, Message: "test"}
}

func TestClassify(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want Class
	}{
		{"too many requests", apiErr(429, ""), ClassRateLimited},
		{"forbidden rate limit", apiErr(403, services.ReasonRateLimit), ClassRateLimited},
		{"forbidden user rate limit", apiErr(403, services.ReasonUserRateLimit), ClassRateLimited},
		{"forbidden quota", apiErr(403, services.ReasonQuotaExceeded), ClassBudgetExhausted},
		{"forbidden daily limit", apiErr(403, services.ReasonDailyLimit), ClassBudgetExhausted},
		{"plain forbidden", apiErr(403, services.ReasonForbidden), ClassPermissionDenied},
		{"unauthorized", apiErr(401, ""), ClassPermissionDenied},
		{"not found", apiErr(404, services.ReasonNotFound), ClassNotFound},
		{"server error", apiErr(500, ""), ClassTransient},
		{"bad gateway", apiErr(502, ""), ClassTransient},
		{"network failure", apiErr(0, ""), ClassTransient},
		{"bad request", apiErr(400, ""), ClassTerminal},
		{"unstructured error", errors.New("boom"), ClassTerminal},
		{"wrapped api error", fmt.Errorf("insert failed: %w", apiErr(429, "")), ClassRateLimited},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }
func noJitter(base time.Duration) time.Duration          { return 0 }

func TestPolicy_TerminalClassesNeverRetry(t *testing.T) {
	for _, tt := range []struct {
		name string
		err  error
	}{
		{"budget exhausted", apiErr(403, services.ReasonQuotaExceeded)},
		{"not found", apiErr(404, "")},
		{"permission denied", apiErr(401, "")},
		{"unknown", errors.New("boom")},
	} {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			policy := NewPolicy(PolicyOpts{Sleep: noSleep, Jitter: noJitter})
			retries, err := policy.Execute(context.Background(), func() error {
				calls++
				return tt.err
			})
			if calls != 1 {
				t.Errorf("call count = %d, want 1", calls)
			}
			if retries != 0 {
				t.Errorf("retries = %d, want 0", retries)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Execute() error = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestPolicy_RateLimitedRetriesToCap(t *testing.T) {
	calls := 0
	var delays []time.Duration

	policy := NewPolicy(PolicyOpts{
		RateLimited: Schedule{Initial: time.Second, Max: 8 * time.Second, Factor: 2, MaxAttempts: 6},
		Sleep:       noSleep,
		Jitter:      noJitter,
		OnAttempt: func(a Attempt) {
			if a.Class != ClassRateLimited {
				t.Errorf("attempt class = %s, want rate_limited", a.Class)
			}
			delays = append(delays, a.Delay)
		},
	})

	retries, err := policy.Execute(context.Background(), func() error {
		calls++
		return apiErr(429, "")
	})

	if calls != 6 {
		t.Errorf("call count = %d, want 6", calls)
	}
	if retries != 5 {
		t.Errorf("retries = %d, want 5", retries)
	}
	if err == nil {
		t.Fatal("Execute() should propagate the last error")
	}

	// 1s, 2s, 4s, 8s, 8s: doubling until the cap, then flat.
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("recorded %d delays, want %d", len(delays), len(want))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
		if i > 0 && delays[i] < delays[i-1] {
			t.Errorf("delay[%d] = %v decreased from %v", i, delays[i], delays[i-1])
		}
	}
}

func TestPolicy_JitteredDelaysStillIncrease(t *testing.T) {
	var delays []time.Duration
	policy := NewPolicy(PolicyOpts{
		RateLimited: Schedule{Initial: time.Second, Max: time.Hour, Factor: 2, MaxAttempts: 8},
		Sleep:       noSleep,
		OnAttempt:   func(a Attempt) { delays = append(delays, a.Delay) },
	})

	_, err := policy.Execute(context.Background(), func() error {
		return apiErr(429, "")
	})
	if err == nil {
		t.Fatal("Execute() should propagate the last error")
	}

	// Jitter stays below half the base while the base doubles, so delays
	// are strictly increasing below the cap.
	for i := 1; i < len(delays); i++ {
		if delays[i] <= delays[i-1] {
			t.Errorf("delay[%d] = %v did not increase past %v", i, delays[i], delays[i-1])
		}
	}
}

func TestPolicy_TransientRecovers(t *testing.T) {
	calls := 0
	policy := NewPolicy(PolicyOpts{Sleep: noSleep, Jitter: noJitter})

	retries, err := policy.Execute(context.Background(), func() error {
		calls++
		if calls <= 2 {
			return apiErr(503, "")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if retries != 2 {
		t.Errorf("retries = %d, want 2", retries)
	}
}

func TestPolicy_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := NewPolicy(PolicyOpts{Jitter: noJitter})
	_, err := policy.Execute(ctx, func() error {
		return apiErr(429, "")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}
