package transform

import (
	"slices"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
)

// Transformer flattens archive records into a display list.
// It holds only the immutable allow-list and is safe for concurrent use.
type Transformer struct {
	allow map[int64]struct{}
}

// New builds a Transformer restricted to subjectIDs. An empty list allows every subject.
func New(subjectIDs []int64) *Transformer {
	t := &Transformer{}
	if len(subjectIDs) > 0 {
		t.allow = make(map[int64]struct{}, len(subjectIDs))
		for _, id := range subjectIDs {
			t.allow[id] = struct{}{}
		}
	}
	return t
}

// Allows reports whether items of subjectID survive the allow-list.
func (t *Transformer) Allows(subjectID int64) bool {
	if len(t.allow) == 0 {
		return true
	}
	_, ok := t.allow[subjectID]
	return ok
}

// Transform returns the allowed items of all records, newest first.
// Items with equal OrderDate keep their input order. Inputs are not modified.
func (t *Transformer) Transform(records []*v1.ArchiveRecord) []v1.ArchiveItem {
	total := 0
	for _, r := range records {
		total += r.Len()
	}

	out := make([]v1.ArchiveItem, 0, total)
	for _, r := range records {
		if r == nil {
			continue
		}
		for _, item := range r.Items {
			if t.Allows(item.SubjectID) {
				out = append(out, item)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b v1.ArchiveItem) int {
		return b.OrderDate.Compare(a.OrderDate)
	})
	return out
}
