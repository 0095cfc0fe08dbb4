package archive

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/transform"
	"github.com/aevon-lab/activity-archive/internal/core/window"
	"github.com/aevon-lab/activity-archive/internal/filter"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultPageSize = 20

// DefaultEpoch is the oldest instant any sweep reaches back to.
var DefaultEpoch = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// Options configures the sweeps started by LoadArchive.
type Options struct {
	Epoch             time.Time
	CoarseStep        window.Step
	FastSteps         []window.Step
	Threshold         int
	RecentHorizon     time.Duration
	CoarseConcurrency int
	PageSize          int
}

func DefaultOptions() Options {
	return Options{
		Epoch:      DefaultEpoch,
		CoarseStep: window.Step{Unit: window.Year, Count: 1},
		FastSteps: []window.Step{
			{Unit: window.Month, Count: 1},
			{Unit: window.Week, Count: 1},
		},
		Threshold:         DefaultThreshold,
		CoarseConcurrency: 1,
		PageSize:          DefaultPageSize,
	}
}

// normalized fills zero fields with defaults. FastSteps is left alone: an
// explicitly empty list disables fast sweeps.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Epoch.IsZero() {
		o.Epoch = def.Epoch
	}
	if o.CoarseStep.Count <= 0 {
		o.CoarseStep = def.CoarseStep
	}
	if o.FastSteps == nil {
		o.FastSteps = def.FastSteps
	}
	if o.Threshold <= 0 {
		o.Threshold = def.Threshold
	}
	if o.RecentHorizon < 0 {
		o.RecentHorizon = 0
	}
	if o.CoarseConcurrency <= 0 {
		o.CoarseConcurrency = def.CoarseConcurrency
	}
	if o.PageSize <= 0 {
		o.PageSize = def.PageSize
	}
	o.FastSteps = slices.Clone(o.FastSteps)
	return o
}

// Controller runs archive loads and owns the outputs they publish.
// Only the most recent LoadArchive invocation may write; earlier ones keep
// their in-flight fetches but every result they deliver is rejected.
type Controller struct {
	fetcher  storage.RangeFetcher
	provider filter.Provider
	opts     Options
	state    *State
	nowFn    func() time.Time

	baseCtx  context.Context
	shutdown context.CancelFunc

	mu      sync.Mutex
	current *Invocation
}

func NewController(fetcher storage.RangeFetcher, provider filter.Provider, opts Options) *Controller {
	if provider == nil {
		provider = filter.NewSessionFilter(nil)
	}
	opts = opts.normalized()
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		fetcher:  fetcher,
		provider: provider,
		opts:     opts,
		state:    NewState(opts.Threshold),
		nowFn:    time.Now,
		baseCtx:  ctx,
		shutdown: cancel,
	}
}

// Invocation is one LoadArchive call.
type Invocation struct {
	sweep
	cancel   context.CancelFunc
	done     chan struct{}
	trackers []*sweepTracker
}

func (i *Invocation) ID() string          { return i.id }
func (i *Invocation) Generation() uint64  { return i.generation }
func (i *Invocation) Now() time.Time      { return i.now }
func (i *Invocation) SubjectIDs() []int64 { return slices.Clone(i.subjectIDs) }

// Done is closed once every loader of the invocation has returned.
func (i *Invocation) Done() <-chan struct{} { return i.done }

// Wait blocks until Done or ctx is cancelled.
func (i *Invocation) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Invocation) statuses() []LoaderStatus {
	out := make([]LoaderStatus, 0, len(i.trackers))
	for _, t := range i.trackers {
		out = append(out, t.status())
	}
	return out
}

// LoadArchive starts a fresh load for subjectIDs, or for the filter
// provider's allow-list when none are given. The current time is captured
// once and every window of the load is anchored to it.
//
// ctx supplies values only. The load outlives the caller and stops issuing
// fetches when superseded by the next LoadArchive or when the controller is
// closed.
func (c *Controller) LoadArchive(ctx context.Context, subjectIDs []int64) *Invocation {
	if len(subjectIDs) == 0 {
		subjectIDs = c.provider.SubjectIDs()
	}
	subjectIDs = slices.Clone(subjectIDs)

	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.baseCtx, cancel)
	if c.baseCtx.Err() != nil {
		cancel()
	}

	coarse := &CoarseLoader{
		fetcher:     c.fetcher,
		step:        c.opts.CoarseStep,
		epoch:       c.opts.Epoch,
		horizon:     c.opts.RecentHorizon,
		concurrency: c.opts.CoarseConcurrency,
		provider:    c.provider,
		state:       c.state,
	}
	coarseTracker := newSweepTracker(coarseLoaderName, coarse.step)
	trackers := []*sweepTracker{coarseTracker}

	fast := make([]*FastLoader, 0, len(c.opts.FastSteps))
	for _, step := range c.opts.FastSteps {
		l := &FastLoader{
			fetcher:  c.fetcher,
			step:     step,
			epoch:    c.opts.Epoch,
			provider: c.provider,
			state:    c.state,
		}
		fast = append(fast, l)
		trackers = append(trackers, newSweepTracker(l.name(), step))
	}

	c.mu.Lock()
	if c.baseCtx.Err() != nil {
		c.mu.Unlock()
		stop()
		cancel()
		return c.rejectedInvocation(subjectIDs, trackers)
	}
	if c.current != nil {
		c.current.cancel()
	}
	now := c.nowFn()
	id := uuid.NewString()
	gen := c.state.Begin(id, now, subjectIDs)

	inv := &Invocation{
		sweep: sweep{
			generation:  gen,
			id:          id,
			now:         now,
			subjectIDs:  subjectIDs,
			transformer: transform.New(subjectIDs),
		},
		cancel:   cancel,
		done:     make(chan struct{}),
		trackers: trackers,
	}
	c.current = inv
	c.mu.Unlock()

	slog.Info("[Controller] Archive load started",
		"invocation_id", id,
		"generation", gen,
		"now", now,
		"subject_ids", subjectIDs,
		"fast_sweeps", len(fast),
	)

	go func() {
		defer close(inv.done)
		defer stop()
		defer cancel()

		var g errgroup.Group
		g.Go(func() error {
			coarse.Run(loadCtx, inv.sweep, coarseTracker)
			return nil
		})
		for i, l := range fast {
			tracker := inv.trackers[i+1]
			g.Go(func() error {
				l.Run(loadCtx, inv.sweep, tracker)
				return nil
			})
		}
		_ = g.Wait()

		slog.Info("[Controller] Archive load finished",
			"invocation_id", id,
			"generation", gen,
			"current", c.state.IsCurrent(gen),
		)
	}()

	return inv
}

// rejectedInvocation is returned by LoadArchive after Close. The published
// outputs of the last generation are left untouched.
func (c *Controller) rejectedInvocation(subjectIDs []int64, trackers []*sweepTracker) *Invocation {
	for _, t := range trackers {
		t.transition(Abandoned)
	}
	inv := &Invocation{
		sweep: sweep{
			generation: c.state.Generation(),
			now:        c.nowFn(),
			subjectIDs: subjectIDs,
		},
		cancel:   func() {},
		done:     make(chan struct{}),
		trackers: trackers,
	}
	close(inv.done)

	slog.Warn("[Controller] Archive load rejected, controller closed",
		"generation", inv.generation,
		"subject_ids", subjectIDs,
	)
	return inv
}

// Current returns the live invocation, nil before the first LoadArchive.
func (c *Controller) Current() *Invocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) IsFullHistoryReady() bool {
	return c.state.FullHistoryReady()
}

// FullHistory is published once per load, when the coarse sweep completes.
func (c *Controller) FullHistory() *Slot[[]v1.ArchiveItem] { return c.state.full }

// ThresholdSubset is the early display list, published when it first
// reaches the threshold and at most once more on upgrade.
func (c *Controller) ThresholdSubset() *Slot[[]v1.ArchiveItem] { return c.state.subset }

func (c *Controller) RecentWithinRange() *Slot[[]v1.ArchiveItem] { return c.state.recent }

// Page returns page n of the best view available right now.
func (c *Controller) Page(n int) Page {
	return c.state.PageAt(n, c.opts.PageSize)
}

// NextPage returns the page under the cursor and advances it.
func (c *Controller) NextPage() Page {
	return c.state.NextPage(c.opts.PageSize)
}

// Status describes the live invocation.
type Status struct {
	InvocationID     string         `json:"invocation_id,omitempty"`
	Generation       uint64         `json:"generation"`
	Now              time.Time      `json:"now"`
	SubjectIDs       []int64        `json:"subject_ids"`
	ThresholdReached bool           `json:"threshold_reached"`
	FullHistoryReady bool           `json:"full_history_ready"`
	Page             int            `json:"page"`
	FullItems        int            `json:"full_items"`
	SubsetItems      int            `json:"subset_items"`
	RecentItems      int            `json:"recent_items"`
	Running          bool           `json:"running"`
	Loaders          []LoaderStatus `json:"loaders"`
}

func (c *Controller) Status() Status {
	snap := c.state.Snapshot()
	st := Status{
		InvocationID:     snap.InvocationID,
		Generation:       snap.Generation,
		Now:              snap.StartedAt,
		SubjectIDs:       snap.SubjectIDs,
		ThresholdReached: snap.ThresholdReached,
		FullHistoryReady: snap.CoarseDone && snap.FullItems > 0,
		Page:             snap.Page,
		FullItems:        snap.FullItems,
		SubsetItems:      snap.SubsetItems,
		RecentItems:      snap.RecentItems,
		Loaders:          []LoaderStatus{},
	}
	if st.SubjectIDs == nil {
		st.SubjectIDs = []int64{}
	}

	if inv := c.Current(); inv != nil && inv.generation == snap.Generation {
		st.Loaders = inv.statuses()
		select {
		case <-inv.done:
		default:
			st.Running = true
		}
	}
	return st
}

// Close stops every load from issuing new fetches and waits for the live
// invocation to return, or for ctx.
func (c *Controller) Close(ctx context.Context) error {
	c.shutdown()

	inv := c.Current()
	if inv == nil {
		return nil
	}
	return inv.Wait(ctx)
}
