package archive

import (
	"slices"
	"sync"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
)

const (
	OutputFullHistory     = "full_history"
	OutputThresholdSubset = "threshold_subset"
	OutputRecent          = "recent_within_range"
)

// State is the shared aggregation state of the current LoadArchive invocation.
//
// Every loader write names the generation it was started for. A write for any
// other generation is stale and dropped. The mutex covers the generation
// check, the tracker decision and the slot write, so a publish can never land
// after the latch or generation it was based on has moved.
type State struct {
	mu           sync.Mutex
	generation   uint64
	invocationID string
	startedAt    time.Time
	subjectIDs   []int64
	tracker      *ThresholdTracker
	page         int
	coarseDone   bool

	full   *Slot[[]v1.ArchiveItem]
	subset *Slot[[]v1.ArchiveItem]
	recent *Slot[[]v1.ArchiveItem]
}

// NewState returns an empty state at generation 0 with the given threshold.
func NewState(threshold int) *State {
	return &State{
		tracker: NewThresholdTracker(threshold),
		full:    NewSlot[[]v1.ArchiveItem](),
		subset:  NewSlot[[]v1.ArchiveItem](),
		recent:  NewSlot[[]v1.ArchiveItem](),
	}
}

// Begin starts a new generation: the latch, page cursor and every output are
// reset and all writes tagged with older generations become stale.
func (s *State) Begin(invocationID string, now time.Time, subjectIDs []int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.invocationID = invocationID
	s.startedAt = now
	s.subjectIDs = slices.Clone(subjectIDs)
	s.tracker.Reset()
	s.page = 0
	s.coarseDone = false
	s.full.Clear(s.generation)
	s.subset.Clear(s.generation)
	s.recent.Clear(s.generation)
	return s.generation
}

// Generation returns the current generation number.
func (s *State) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// IsCurrent reports whether gen is still the live generation.
func (s *State) IsCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

// ThresholdReached reports the latch of the live generation.
func (s *State) ThresholdReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Reached()
}

// OfferFast publishes candidate as the threshold subset if gen is current, the
// latch is still open and the candidate is large enough.
func (s *State) OfferFast(gen uint64, candidate []v1.ArchiveItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		recordPublish(OutputThresholdSubset, resultStale)
		return false
	}
	if !s.tracker.ConsiderFirst(candidate) {
		return false
	}
	s.publishSubset(candidate)
	return true
}

// OfferRecent replaces the recent-within-range output with items and offers
// candidate (items after the display filter) to the tracker, upgrade allowed.
// It reports whether the threshold subset was published.
func (s *State) OfferRecent(gen uint64, items, candidate []v1.ArchiveItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		recordPublish(OutputRecent, resultStale)
		return false
	}
	s.recent.Set(gen, items)
	recordPublish(OutputRecent, resultAccepted)

	if !s.tracker.Consider(candidate) {
		return false
	}
	s.publishSubset(candidate)
	return true
}

// CompleteFull publishes the authoritative full history for gen.
func (s *State) CompleteFull(gen uint64, items []v1.ArchiveItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		recordPublish(OutputFullHistory, resultStale)
		return false
	}
	s.coarseDone = true
	s.full.Set(gen, items)
	recordPublish(OutputFullHistory, resultAccepted)
	return true
}

// publishSubset must be called with s.mu held.
func (s *State) publishSubset(items []v1.ArchiveItem) {
	s.subset.Set(s.generation, items)
	s.page = 0
	recordPublish(OutputThresholdSubset, resultAccepted)
}

// FullHistoryReady reports whether the coarse sweep of the live generation
// completed with a non-empty history.
func (s *State) FullHistoryReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.coarseDone {
		return false
	}
	items, ok := s.full.Get()
	return ok && len(items) > 0
}

// Page is one page of the best view currently available.
type Page struct {
	Generation uint64           `json:"generation"`
	Number     int              `json:"page"`
	Size       int              `json:"page_size"`
	Source     string           `json:"source,omitempty"`
	Total      int              `json:"total"`
	Items      []v1.ArchiveItem `json:"items"`
}

// PageAt returns page n. The view is the full history once ready, else the
// threshold subset, else the recent-within-range list.
func (s *State) PageAt(n, size int) Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked(n, size)
}

// NextPage returns the page under the cursor and advances it. Publishing a
// new threshold subset rewinds the cursor to 0.
func (s *State) NextPage(size int) Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pageLocked(s.page, size)
	if len(p.Items) > 0 {
		s.page++
	}
	return p
}

func (s *State) pageLocked(n, size int) Page {
	if n < 0 {
		n = 0
	}
	p := Page{Generation: s.generation, Number: n, Size: size, Items: []v1.ArchiveItem{}}

	var view []v1.ArchiveItem
	if items, ok := s.full.Get(); ok && s.coarseDone {
		view, p.Source = items, OutputFullHistory
	} else if items, ok := s.subset.Get(); ok {
		view, p.Source = items, OutputThresholdSubset
	} else if items, ok := s.recent.Get(); ok {
		view, p.Source = items, OutputRecent
	}
	p.Total = len(view)

	// n past the last page would overflow n*size
	if size <= 0 || len(view) == 0 || n > (len(view)-1)/size {
		return p
	}
	from := n * size
	to := min(from+size, len(view))
	p.Items = view[from:to]
	return p
}

// StateSnapshot is a consistent read of the counters behind State.
type StateSnapshot struct {
	Generation       uint64
	InvocationID     string
	StartedAt        time.Time
	SubjectIDs       []int64
	ThresholdReached bool
	CoarseDone       bool
	Page             int
	FullItems        int
	SubsetItems      int
	RecentItems      int
}

func (s *State) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	full, _ := s.full.Get()
	subset, _ := s.subset.Get()
	recent, _ := s.recent.Get()
	return StateSnapshot{
		Generation:       s.generation,
		InvocationID:     s.invocationID,
		StartedAt:        s.startedAt,
		SubjectIDs:       slices.Clone(s.subjectIDs),
		ThresholdReached: s.tracker.Reached(),
		CoarseDone:       s.coarseDone,
		Page:             s.page,
		FullItems:        len(full),
		SubsetItems:      len(subset),
		RecentItems:      len(recent),
	}
}
