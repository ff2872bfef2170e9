package enrich

import (
	"context"
	"time"
)

// Pauser blocks between calls to third-party services.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

// TimerPauser sleeps on a timer and returns early with the context error when
// ctx is done.
type TimerPauser struct{}

// Pause waits for delay or until ctx is done.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PauseFunc adapts a function to Pauser.
type PauseFunc func(ctx context.Context, delay time.Duration) error

// Pause calls f.
func (f PauseFunc) Pause(ctx context.Context, delay time.Duration) error {
	return f(ctx, delay)
}

// NoPause returns immediately unless ctx is already done.
var NoPause = PauseFunc(func(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
})
