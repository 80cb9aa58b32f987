// package retry wraps a single logical remote write in classification-aware
// exponential backoff.
//
// The policy only classifies and delays. It never logs or prints; every
// attempt emits an event the caller can surface however it likes.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Schedule bounds the backoff behavior for one retryable error class.
type Schedule struct {
	Initial     time.Duration
	Max         time.Duration
	Factor      float64
	MaxAttempts int
}

// Rate-limit responses signal sustained pressure, so their schedule starts
// well above a naive sub-second default and tolerates many attempts.
var defaultRateLimited = Schedule{
	Initial:     5 * time.Second,
	Max:         5 * time.Minute,
	Factor:      2,
	MaxAttempts: 10,
}

var defaultTransient = Schedule{
	Initial:     500 * time.Millisecond,
	Max:         30 * time.Second,
	Factor:      2,
	MaxAttempts: 4,
}

// Attempt describes one failed call and the delay chosen before the next.
type Attempt struct {
	Number int
	Class  Class
	Delay  time.Duration
	Err    error
}

// Policy retries retryable failures per class-specific schedules.
type Policy struct {
	rateLimited Schedule
	transient   Schedule
	onAttempt   func(Attempt)
	sleep       func(ctx context.Context, d time.Duration) error
	jitter      func(base time.Duration) time.Duration
}

// PolicyOpts contains configuration options for creating a Policy. Zero
// values fall back to the default schedules and real sleeping.
type PolicyOpts struct {
	RateLimited Schedule
	Transient   Schedule
	OnAttempt   func(Attempt)
	Sleep       func(ctx context.Context, d time.Duration) error
	Jitter      func(base time.Duration) time.Duration
}

// NewPolicy creates a retry policy.
func NewPolicy(opts PolicyOpts) *Policy {
	p := &Policy{
		rateLimited: opts.RateLimited,
		transient:   opts.Transient,
		onAttempt:   opts.OnAttempt,
		sleep:       opts.Sleep,
		jitter:      opts.Jitter,
	}
	if p.rateLimited.MaxAttempts == 0 {
		p.rateLimited = defaultRateLimited
	}
	if p.transient.MaxAttempts == 0 {
		p.transient = defaultTransient
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if p.jitter == nil {
		p.jitter = defaultJitter
	}
	return p
}

// Execute runs call, retrying retryable failures until success, a terminal
// classification, context cancellation, or the class's attempt budget runs
// out. It returns the number of retries performed alongside the final error,
// so callers can record attempt counts in the journal.
func (p *Policy) Execute(ctx context.Context, call func() error) (int, error) {
	retries := 0
	for {
		err := call()
		if err == nil {
			return retries, nil
		}

		class := Classify(err)
		if !class.Retryable() {
			return retries, err
		}

		schedule := p.transient
		if class == ClassRateLimited {
			schedule = p.rateLimited
		}
		if retries+1 >= schedule.MaxAttempts {
			return retries, err
		}

		delay := p.delayFor(schedule, retries)
		if p.onAttempt != nil {
			p.onAttempt(Attempt{Number: retries + 1, Class: class, Delay: delay, Err: err})
		}
		if err := p.sleep(ctx, delay); err != nil {
			return retries, err
		}
		retries++
	}
}

// delayFor computes the backoff before retry number retries+1. The base
// doubles each attempt and jitter stays below half the base, so successive
// delays are strictly increasing until the base reaches the cap.
func (p *Policy) delayFor(schedule Schedule, retries int) time.Duration {
	base := schedule.Initial
	for i := 0; i < retries; i++ {
		base = time.Duration(float64(base) * schedule.Factor)
		if base >= schedule.Max {
			base = schedule.Max
			break
		}
	}
	return base + p.jitter(base)
}

func defaultJitter(base time.Duration) time.Duration {
	if base <= 1 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(base / 2)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
