// Package scheduler walks a work list once per run, spending a bounded number
// of enrichment attempts while still running the cheap backfills on every
// record.
package scheduler

import "sync"

// Budget counts enrichment attempts against a per-run limit. One Budget may
// span several Run calls.
type Budget struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewBudget returns a budget of limit attempts. A non-positive limit allows
// none.
func NewBudget(limit int) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

// Take consumes one attempt and reports whether one was left.
func (b *Budget) Take() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// Used returns the attempts consumed so far.
func (b *Budget) Used() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Remaining returns the attempts left.
func (b *Budget) Remaining() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit - b.used
}
