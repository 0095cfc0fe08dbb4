package archive

import (
	"context"
	"errors"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/window"
)

// fetchWindow performs one remote call and folds every failure into "no data".
// The call runs on a context detached from cancellation: stopping a sweep
// means not issuing the next fetch, never aborting the current one.
func fetchWindow(
	ctx context.Context,
	fetcher storage.RangeFetcher,
	w window.TimeWindow,
	subjectIDs []int64,
	granularity string,
	tracker *sweepTracker,
) *v1.ArchiveRecord {
	started := time.Now()
	record, err := fetcher.FetchRange(context.WithoutCancel(ctx), w, subjectIDs)
	fetchDuration.WithLabelValues(granularity).Observe(time.Since(started).Seconds())

	switch {
	case errors.Is(err, storage.ErrNoData) || (err == nil && record == nil):
		fetchTotal.WithLabelValues(granularity, resultEmpty).Inc()
		tracker.observe(w, 0, true)
		return nil
	case err != nil:
		slog.Warn("[Fetch] Window fetch failed, treating as no data",
			"granularity", granularity,
			"window_start", w.Start,
			"window_end", w.End,
			"error", err,
		)
		fetchTotal.WithLabelValues(granularity, resultFailed).Inc()
		tracker.observe(w, 0, true)
		return nil
	}

	fetchTotal.WithLabelValues(granularity, resultOK).Inc()
	tracker.observe(w, record.Len(), false)
	return record
}
