package archive

import v1 "github.com/aevon-lab/activity-archive/internal/api/v1"

// DefaultThreshold is the item count considered enough for early display.
const DefaultThreshold = 25

// ThresholdTracker decides when a candidate list is worth publishing.
//
// The first list reaching the threshold is published and latches the tracker.
// After that exactly one upgrade publish is allowed, for a list whose size
// divided by the threshold is 2 (50..74 items with the default).
//
// ThresholdTracker is not safe for concurrent use; State serializes access so
// the check and the write it guards happen in one critical section.
type ThresholdTracker struct {
	min       int
	reached   bool
	upgraded  bool
	published int
}

// NewThresholdTracker returns an open tracker. A non-positive min falls back
// to DefaultThreshold.
func NewThresholdTracker(min int) *ThresholdTracker {
	if min <= 0 {
		min = DefaultThreshold
	}
	return &ThresholdTracker{min: min}
}

// Min is the item count a candidate needs to be published.
func (t *ThresholdTracker) Min() int { return t.min }

// Reached reports whether a list has been published since the last Reset.
func (t *ThresholdTracker) Reached() bool { return t.reached }

// Published is the size of the last published list, 0 before any.
func (t *ThresholdTracker) Published() int { return t.published }

// Consider reports whether candidate should be published, allowing the
// single upgrade. A positive answer updates the tracker.
func (t *ThresholdTracker) Consider(candidate []v1.ArchiveItem) bool {
	n := len(candidate)
	if n < t.min {
		return false
	}

	switch {
	case !t.reached:
		t.reached = true
	case !t.upgraded && n/t.min == 2:
		t.upgraded = true
	default:
		return false
	}
	t.published = n
	return true
}

// ConsiderFirst is Consider without the upgrade: it only ever accepts the
// list that latches the tracker.
func (t *ThresholdTracker) ConsiderFirst(candidate []v1.ArchiveItem) bool {
	if t.reached {
		return false
	}
	return t.Consider(candidate)
}

// Reset returns the tracker to its initial state. Required whenever the
// allow-list changes or pagination restarts.
func (t *ThresholdTracker) Reset() {
	t.reached = false
	t.upgraded = false
	t.published = 0
}
