package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/core/window"
)

// ErrDuplicate is returned when an activity with the same (subject_id, id) already exists.
var ErrDuplicate = errors.New("activity already exists")

// ErrNoData is returned by a RangeFetcher when the source has nothing for the window.
// Fetchers may equally return (nil, nil); callers treat both the same way.
var ErrNoData = errors.New("no archive data for window")

// RangeFetcher loads the aggregate archive record for one time window.
//
// Implementations must complete exactly once per call: a record, "no data"
// (nil record or ErrNoData), or a failure. Retries, if any, belong to the
// implementation; the archive engine never retries.
type RangeFetcher interface {
	// FetchRange returns the items with OrderDate in [w.End, w.Start).
	// An empty subjectIDs slice means no subject filter.
	FetchRange(ctx context.Context, w window.TimeWindow, subjectIDs []int64) (*v1.ArchiveRecord, error)
}

// ActivityStore persists individual activities so they can later be served by window.
type ActivityStore interface {
	SaveActivity(ctx context.Context, item *v1.ArchiveItem) error

	// ListActivities returns the newest activities of one subject recorded before `before`.
	ListActivities(ctx context.Context, subjectID int64, before time.Time, limit int) ([]v1.ArchiveItem, error)
}

// FetcherFunc adapts a plain function to RangeFetcher.
type FetcherFunc func(ctx context.Context, w window.TimeWindow, subjectIDs []int64) (*v1.ArchiveRecord, error)

func (f FetcherFunc) FetchRange(ctx context.Context, w window.TimeWindow, subjectIDs []int64) (*v1.ArchiveRecord, error) {
	return f(ctx, w, subjectIDs)
}
