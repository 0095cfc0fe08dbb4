package filter

import (
	"slices"
	"sync"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
)

// Provider supplies the subject allow-list and the display filter applied
// whenever the archive checks a candidate batch against its threshold.
type Provider interface {
	// SubjectIDs returns the current allow-list. Empty means every subject.
	SubjectIDs() []int64

	// Filter returns the items that should be shown. It must be pure:
	// the input slice is never modified and the same input gives the same output.
	Filter(items []v1.ArchiveItem) []v1.ArchiveItem
}

// SessionFilter narrows archives by activity kind.
// The subject list only grows: AddSubjects appends, it never replaces.
type SessionFilter struct {
	mu       sync.RWMutex
	kinds    map[string]struct{}
	subjects []int64
}

var _ Provider = (*SessionFilter)(nil)

// NewSessionFilter allows the given kinds; no kinds means every kind.
func NewSessionFilter(kinds []string) *SessionFilter {
	f := &SessionFilter{}
	if len(kinds) > 0 {
		f.kinds = make(map[string]struct{}, len(kinds))
		for _, k := range kinds {
			f.kinds[k] = struct{}{}
		}
	}
	return f
}

// AddSubjects extends the allow-list, skipping ids already present.
func (f *SessionFilter) AddSubjects(ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		if !slices.Contains(f.subjects, id) {
			f.subjects = append(f.subjects, id)
		}
	}
}

func (f *SessionFilter) SubjectIDs() []int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.subjects)
}

func (f *SessionFilter) Filter(items []v1.ArchiveItem) []v1.ArchiveItem {
	if len(f.kinds) == 0 {
		return items
	}

	out := make([]v1.ArchiveItem, 0, len(items))
	for _, it := range items {
		if _, ok := f.kinds[it.Kind]; ok {
			out = append(out, it)
		}
	}
	return out
}
