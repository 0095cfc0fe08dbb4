package archive

import (
	"context"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"github.com/aevon-lab/activity-archive/internal/filter"
)

// FastLoader sweeps in small windows and only exists to reach the threshold
// early. It stops issuing fetches as soon as any sweep has published.
type FastLoader struct {
	fetcher  storage.RangeFetcher
	step     window.Step
	epoch    time.Time
	provider filter.Provider
	state    *State
}

func (l *FastLoader) name() string {
	return "fast_" + l.step.Label()
}

// Run fetches one window at a time. The threshold latch is checked before
// each fetch; a fetch already issued always runs to completion.
func (l *FastLoader) Run(ctx context.Context, sw sweep, tracker *sweepTracker) {
	granularity := l.step.Label()
	tracker.transition(Sweeping)

	var records []*v1.ArchiveRecord
	for w := range window.Generate(sw.now, l.step, l.epoch) {
		if ctx.Err() != nil || !l.state.IsCurrent(sw.generation) {
			tracker.transition(Abandoned)
			slog.Debug("[Fast] Sweep abandoned", "generation", sw.generation, "granularity", granularity)
			return
		}
		if l.state.ThresholdReached() {
			tracker.transition(StoppedByThreshold)
			slog.Debug("[Fast] Threshold reached, sweep stopped",
				"generation", sw.generation,
				"granularity", granularity,
				"window_start", w.Start,
			)
			return
		}

		record := fetchWindow(ctx, l.fetcher, w, sw.subjectIDs, granularity, tracker)
		if record == nil {
			continue
		}
		records = append(records, record)

		candidate := l.provider.Filter(sw.transformer.Transform(records))
		if l.state.OfferFast(sw.generation, candidate) {
			tracker.transition(StoppedByThreshold)
			slog.Info("[Fast] Threshold subset published",
				"generation", sw.generation,
				"granularity", granularity,
				"items", len(candidate),
			)
			return
		}
	}

	tracker.transition(Completed)
	slog.Debug("[Fast] Sweep exhausted", "generation", sw.generation, "granularity", granularity)
}
