package archive

import (
	"sync"

	"github.com/aevon-lab/activity-archive/internal/core/window"
)

// LoaderState is the lifecycle position of one sweep.
type LoaderState int

const (
	Idle LoaderState = iota
	Sweeping
	Completed
	StoppedByThreshold
	// Abandoned: the invocation was superseded or shut down before the
	// window sequence was exhausted. Nothing is published on the way out.
	Abandoned
)

func (s LoaderState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sweeping:
		return "sweeping"
	case Completed:
		return "completed"
	case StoppedByThreshold:
		return "stopped_by_threshold"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

func (s LoaderState) Terminal() bool {
	return s == Completed || s == StoppedByThreshold || s == Abandoned
}

// LoaderStatus is a point-in-time view of one sweep.
type LoaderStatus struct {
	Loader       string `json:"loader"`
	Granularity  string `json:"granularity"`
	State        string `json:"state"`
	Fetched      int    `json:"windows_fetched"`
	Empty        int    `json:"windows_empty"`
	Items        int    `json:"items"`
	LastWindowAt string `json:"last_window_start,omitempty"`
}

// sweepTracker records progress of one sweep. Written by the sweep's own
// goroutine, read by status requests.
type sweepTracker struct {
	mu          sync.Mutex
	loader      string
	granularity window.Step
	state       LoaderState
	fetched     int
	empty       int
	items       int
	last        window.TimeWindow
}

func newSweepTracker(loader string, step window.Step) *sweepTracker {
	return &sweepTracker{loader: loader, granularity: step}
}

func (t *sweepTracker) transition(s LoaderState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()

	if s.Terminal() {
		sweepTotal.WithLabelValues(t.loader, s.String()).Inc()
	}
}

func (t *sweepTracker) State() LoaderState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *sweepTracker) observe(w window.TimeWindow, items int, empty bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetched++
	if empty {
		t.empty++
	}
	t.items += items
	t.last = w
}

func (t *sweepTracker) status() LoaderStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := LoaderStatus{
		Loader:      t.loader,
		Granularity: t.granularity.Label(),
		State:       t.state.String(),
		Fetched:     t.fetched,
		Empty:       t.empty,
		Items:       t.items,
	}
	if !t.last.Start.IsZero() {
		st.LastWindowAt = t.last.Start.Format("2006-01-02T15:04:05Z07:00")
	}
	return st
}
