package enrich

import (
	"errors"
	"sync"
)

// ErrBreakerOpen is reported when a call is skipped because the breaker has
// latched.
var ErrBreakerOpen = errors.New("enrich: circuit breaker open")

// Breaker is a latching circuit breaker. Once tripped it stays open for the
// rest of the run.
type Breaker struct {
	mu     sync.Mutex
	open   bool
	reason Class
	cause  error
}

// NewBreaker returns a closed breaker.
func NewBreaker() *Breaker {
	return &Breaker{}
}

// Open reports whether the breaker has latched.
func (b *Breaker) Open() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Trip latches the breaker. It returns true only for the call that opened it.
func (b *Breaker) Trip(reason Class, cause error) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return false
	}
	b.open = true
	b.reason = reason
	b.cause = cause
	return true
}

// Reason returns the class of the error that tripped the breaker.
func (b *Breaker) Reason() Class {
	if b == nil {
		return ClassTransient
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reason
}

// Cause returns the error that tripped the breaker, if any.
func (b *Breaker) Cause() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cause
}
