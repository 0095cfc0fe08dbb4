package archive

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"github.com/aevon-lab/activity-archive/internal/filter"
	"golang.org/x/sync/errgroup"
)

const coarseLoaderName = "coarse"

// CoarseLoader sweeps the whole history back to the epoch in large windows.
// It never stops on the threshold: the full history is published once the
// window sequence is exhausted.
type CoarseLoader struct {
	fetcher     storage.RangeFetcher
	step        window.Step
	epoch       time.Time
	horizon     time.Duration
	concurrency int
	provider    filter.Provider
	state       *State
}

type pendingFetch struct {
	window window.TimeWindow
	done   chan struct{}
	record *v1.ArchiveRecord
}

// Run sweeps until the generator is exhausted or ctx is cancelled. Up to
// concurrency fetches overlap, results are folded in window order.
func (l *CoarseLoader) Run(ctx context.Context, sw sweep, tracker *sweepTracker) {
	granularity := l.step.Label()
	tracker.transition(Sweeping)

	slog.Info("[Coarse] Sweep started",
		"generation", sw.generation,
		"granularity", granularity,
		"epoch", l.epoch,
		"concurrency", l.concurrency,
	)

	queue := make(chan *pendingFetch, l.concurrency)
	var abandoned atomic.Bool

	// The producer issues fetches in window order. errgroup bounds how many
	// run at once; the queue bounds how far it may run ahead of the fold.
	go func() {
		var g errgroup.Group
		g.SetLimit(l.concurrency)

		for w := range window.Generate(sw.now, l.step, l.epoch) {
			if ctx.Err() != nil {
				abandoned.Store(true)
				break
			}
			p := &pendingFetch{window: w, done: make(chan struct{})}
			queue <- p
			g.Go(func() error {
				defer close(p.done)
				// g.Go may have waited for a free slot past a cancellation.
				if ctx.Err() != nil {
					abandoned.Store(true)
					return nil
				}
				p.record = fetchWindow(ctx, l.fetcher, p.window, sw.subjectIDs, granularity, tracker)
				return nil
			})
		}
		_ = g.Wait()
		close(queue)
	}()

	recentFrom := sw.now.Add(-l.horizon)
	var all, recent []*v1.ArchiveRecord
	for p := range queue {
		<-p.done
		if p.record == nil {
			continue
		}
		all = append(all, p.record)

		if !p.window.Overlaps(recentFrom, sw.now) {
			continue
		}
		recent = append(recent, p.record)
		items := sw.transformer.Transform(recent)
		if l.state.OfferRecent(sw.generation, items, l.provider.Filter(items)) {
			slog.Info("[Coarse] Threshold subset published from recent range",
				"generation", sw.generation,
				"items", len(items),
			)
		}
	}

	if abandoned.Load() {
		tracker.transition(Abandoned)
		slog.Info("[Coarse] Sweep abandoned", "generation", sw.generation, "records", len(all))
		return
	}

	full := sw.transformer.Transform(all)
	if !l.state.CompleteFull(sw.generation, full) {
		tracker.transition(Abandoned)
		slog.Info("[Coarse] Sweep finished for a superseded invocation, result dropped",
			"generation", sw.generation,
		)
		return
	}

	tracker.transition(Completed)
	slog.Info("[Coarse] Full history published",
		"generation", sw.generation,
		"records", len(all),
		"items", len(full),
	)
}
