// Package pipeline runs the merge, enrich and persist pass shared by the
// JSON-backed sources.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/identity"
	"github.com/JakeFAU/devfeed-crawler/internal/merge"
	"github.com/JakeFAU/devfeed-crawler/internal/metrics"
	"github.com/JakeFAU/devfeed-crawler/internal/publisher"
	"github.com/JakeFAU/devfeed-crawler/internal/scheduler"
	"github.com/JakeFAU/devfeed-crawler/internal/storage/jsonfile"
)

// ErrNothingParsed is returned when a run starts without any fresh records.
// The store is left untouched.
var ErrNothingParsed = errors.New("no records parsed")

// Identified is a record whose opaque id can be read and replaced.
type Identified interface {
	IdentityKey() string
	OpaqueID() string
	SetOpaqueID(id string)
}

// Item is the pointer form of a stored record T.
type Item[T any] interface {
	*T
	scheduler.Candidate
	OpaqueID() string
	SetOpaqueID(id string)
}

// Summary describes one completed run.
type Summary struct {
	Source    string
	Merge     merge.Stats
	Report    scheduler.Report
	Saved     int
	Published int
	Duration  time.Duration
}

// JSON drives one source whose records live in a JSON document.
type JSON[T merge.Mergeable[T], PT Item[T]] struct {
	source    string
	store     *jsonfile.Store[T]
	scheduler *scheduler.Scheduler[PT]
	notifier  *publisher.Notifier
	logger    *zap.Logger
}

// NewJSON builds a JSON pipeline. notifier may be nil.
func NewJSON[T merge.Mergeable[T], PT Item[T]](
	source string,
	store *jsonfile.Store[T],
	sched *scheduler.Scheduler[PT],
	notifier *publisher.Notifier,
	logger *zap.Logger,
) *JSON[T, PT] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSON[T, PT]{
		source:    source,
		store:     store,
		scheduler: sched,
		notifier:  notifier,
		logger:    logger.With(zap.String("source", source)),
	}
}

// Run merges fresh onto the stored collection, enriches it under budget,
// assigns ids and replaces the stored document with the result. Records not
// reached before ctx is canceled are still saved with their carried-forward
// fields, and the cancellation error is returned after the save.
func (p *JSON[T, PT]) Run(ctx context.Context, fresh []T, budget *scheduler.Budget) (summary Summary, err error) {
	start := time.Now()
	summary.Source = p.source
	defer func() {
		summary.Duration = time.Since(start)
		metrics.ObserveRun(p.source, summary.Duration)
	}()

	if len(fresh) == 0 {
		return summary, ErrNothingParsed
	}

	existing := p.store.LoadList(ctx)
	known := merge.Index(existing)
	merged, stats := merge.Collection(fresh, existing)
	summary.Merge = stats
	p.logger.Info("merged with stored collection",
		zap.Int("fresh", stats.Fresh),
		zap.Int("stored", len(existing)),
		zap.Int("known", stats.Known),
		zap.Int("new", stats.New),
		zap.Int("duplicates", stats.Duplicates))

	items := make([]PT, len(merged))
	for i := range merged {
		items[i] = PT(&merged[i])
	}
	if p.scheduler != nil {
		_, summary.Report = p.scheduler.Run(ctx, items, budget)
	}
	AssignIDs(items)

	saveCtx := ctx
	if ctx.Err() != nil {
		saveCtx = context.WithoutCancel(ctx)
	}
	if err = p.store.SaveList(saveCtx, merged); err != nil {
		return summary, fmt.Errorf("save %s: %w", p.source, err)
	}
	summary.Saved = len(merged)
	metrics.ObserveRecordsSaved(p.source, len(merged))

	var notices []publisher.RecordCreated
	for _, item := range items {
		if _, ok := known[item.IdentityKey()]; ok {
			continue
		}
		title, _, _ := item.TagInput()
		notices = append(notices, publisher.RecordCreated{
			Source:      p.source,
			ID:          item.OpaqueID(),
			IdentityKey: item.IdentityKey(),
			Title:       title,
		})
	}
	summary.Published = p.notifier.Created(saveCtx, notices)

	p.logger.Info("run complete",
		zap.Int("saved", summary.Saved),
		zap.Int("published", summary.Published),
		zap.String("path", p.store.Path()))
	return summary, ctx.Err()
}

// AssignIDs gives every item a unique opaque id, keeping ids carried forward
// from the store.
func AssignIDs[PT Identified](items []PT) {
	assigner := identity.NewAssigner()
	for _, item := range items {
		item.SetOpaqueID(assigner.Assign(item.OpaqueID(), item.IdentityKey()))
	}
}
