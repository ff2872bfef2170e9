package enrich

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Policy bounds the retries of transient failures.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Pauser      Pauser
}

// DefaultPolicy allows three attempts with jittered exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    20 * time.Second,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) pauser() Pauser {
	if p.Pauser == nil {
		return TimerPauser{}
	}
	return p.Pauser
}

// Backoff returns the wait before the attempt following attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// Outcome describes how a Call ended.
type Outcome struct {
	Attempts int
	Class    Class
	Err      error
	Fallback bool
	Tripped  bool
}

// Call runs call under policy. Transient failures are retried; errors whose
// class latches trip breaker and return the fallback at once; structural and
// canceled errors return the fallback without retry. An open breaker returns
// the fallback without invoking call. A nil classify uses Classify.
func Call[T any](
	ctx context.Context,
	policy Policy,
	breaker *Breaker,
	classify func(error) Class,
	call func(context.Context) (T, error),
	fallback func(Class, error) T,
) (T, Outcome) {
	if classify == nil {
		classify = Classify
	}
	if breaker.Open() {
		reason := breaker.Reason()
		return fallback(reason, ErrBreakerOpen), Outcome{Class: reason, Err: ErrBreakerOpen, Fallback: true}
	}

	var (
		lastErr error
		out     Outcome
	)
	maxAttempts := policy.attempts()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out.Attempts = attempt
		value, err := call(ctx)
		if err == nil {
			out.Class, out.Err = ClassTransient, nil
			return value, out
		}
		lastErr = err
		class := classify(err)
		out.Class, out.Err = class, err
		switch {
		case class.Latches():
			out.Tripped = breaker.Trip(class, err)
			out.Fallback = true
			return fallback(class, err), out
		case class == ClassStructural, class == ClassCanceled:
			out.Fallback = true
			return fallback(class, err), out
		}
		if attempt == maxAttempts {
			break
		}
		if pauseErr := policy.pauser().Pause(ctx, policy.Backoff(attempt)); pauseErr != nil {
			out.Class, out.Err = ClassCanceled, pauseErr
			out.Fallback = true
			return fallback(ClassCanceled, pauseErr), out
		}
	}
	out.Fallback = true
	return fallback(ClassTransient, lastErr), out
}
