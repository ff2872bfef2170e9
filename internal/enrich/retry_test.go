package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Pauser: NoPause}
}

func fallbackValue(c Class, _ error) string { return "fallback:" + c.String() }

func TestCallRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	got, out := Call(context.Background(), testPolicy(), NewBreaker(), nil,
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("connection reset")
			}
			return "ok", nil
		}, fallbackValue)

	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, out.Attempts)
	assert.False(t, out.Fallback)
}

func TestCallGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	got, out := Call(context.Background(), testPolicy(), NewBreaker(), nil,
		func(context.Context) (string, error) {
			calls++
			return "", errors.New("boom")
		}, fallbackValue)

	assert.Equal(t, "fallback:transient", got)
	assert.Equal(t, 3, calls)
	assert.True(t, out.Fallback)
	assert.EqualError(t, out.Err, "boom")
}

func TestCallLatchesBreakerOnQuota(t *testing.T) {
	t.Parallel()

	breaker := NewBreaker()
	calls := 0
	call := func(context.Context) (string, error) {
		calls++
		return "", errors.New("429 Too Many Requests")
	}

	got, out := Call(context.Background(), testPolicy(), breaker, nil, call, fallbackValue)
	assert.Equal(t, "fallback:quota", got)
	assert.True(t, out.Tripped)
	assert.Equal(t, 1, calls, "quota errors are not retried")
	require.True(t, breaker.Open())

	for i := 0; i < 3; i++ {
		got, out = Call(context.Background(), testPolicy(), breaker, nil, call, fallbackValue)
		assert.Equal(t, "fallback:quota", got)
		assert.False(t, out.Tripped)
		assert.ErrorIs(t, out.Err, ErrBreakerOpen)
	}
	assert.Equal(t, 1, calls, "open breaker skips the call")
}

func TestCallStructuralIsNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	got, out := Call(context.Background(), testPolicy(), NewBreaker(), nil,
		func(context.Context) (string, error) {
			calls++
			return "", ErrMalformedJSON
		}, fallbackValue)

	assert.Equal(t, "fallback:structural", got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ClassStructural, out.Class)
}

func TestCallStopsWhenBackoffInterrupted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	policy := testPolicy()
	policy.Pauser = PauseFunc(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	})

	calls := 0
	got, out := Call(ctx, policy, NewBreaker(), nil,
		func(context.Context) (string, error) {
			calls++
			return "", errors.New("flaky")
		}, fallbackValue)

	assert.Equal(t, "fallback:canceled", got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ClassCanceled, out.Class)
}

func TestPolicyBackoffBounds(t *testing.T) {
	t.Parallel()

	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	for attempt := 1; attempt <= 5; attempt++ {
		d := p.Backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
	assert.Zero(t, Policy{}.Backoff(1))
}

func TestTimerPauserHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := TimerPauser{}.Pause(ctx, 5*time.Second)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}
