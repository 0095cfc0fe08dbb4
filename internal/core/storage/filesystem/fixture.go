package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"gopkg.in/yaml.v3"
)

// fixtureFile is the on-disk YAML layout.
type fixtureFile struct {
	Items []v1.ArchiveItem `yaml:"items"`
}

// Fetcher serves archive windows from a YAML fixture loaded at startup.
// Useful for local runs and demos without a database or remote archive.
type Fetcher struct {
	items []v1.ArchiveItem
	delay time.Duration
}

var _ storage.RangeFetcher = (*Fetcher)(nil)

// NewFetcher loads path. A positive delay is applied to every fetch to
// mimic a remote source.
func NewFetcher(path string, delay time.Duration) (*Fetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive fixture %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive fixture %s: %w", path, err)
	}
	f.delay = delay

	slog.Info("[Fixture] Archive fixture loaded", "path", path, "items", len(f.items))
	return f, nil
}

// Parse builds a Fetcher from YAML bytes. Every item must validate.
func Parse(data []byte) (*Fetcher, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	for i := range file.Items {
		if err := file.Items[i].Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		file.Items[i].OrderDate = file.Items[i].OrderDate.UTC()
	}
	return &Fetcher{items: file.Items}, nil
}

func (f *Fetcher) FetchRange(ctx context.Context, w window.TimeWindow, subjectIDs []int64) (*v1.ArchiveRecord, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var items []v1.ArchiveItem
	for _, it := range f.items {
		if !w.Contains(it.OrderDate) {
			continue
		}
		if len(subjectIDs) > 0 && !slices.Contains(subjectIDs, it.SubjectID) {
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, storage.ErrNoData
	}

	return &v1.ArchiveRecord{RangeStart: w.Start, RangeEnd: w.End, Items: items}, nil
}
