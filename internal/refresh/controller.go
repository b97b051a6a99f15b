package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/limitlens/limitlens/internal/limits"
	"github.com/limitlens/limitlens/internal/metrics"
)

// ErrorPrefix starts every failure message shown in the view.
const ErrorPrefix = "Failed to load limits. "

// Fetcher retrieves the current snapshot. Implementations must not serve
// cached responses.
type Fetcher interface {
	Fetch(ctx context.Context) (limits.Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (limits.Snapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context) (limits.Snapshot, error) {
	return f(ctx)
}

// Renderer displays a view.
type Renderer interface {
	Render(View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

func (f RendererFunc) Render(v View) {
	f(v)
}

// View is what the display currently shows. Values persist across failed
// cycles; Error is cleared by the next success.
type View struct {
	Limit     string
	Remaining string
	Reset     string
	Error     string
	UpdatedAt time.Time
}

// Phase is the controller's timer state.
type Phase int

const (
	Idle Phase = iota
	Active
)

func (p Phase) String() string {
	if p == Active {
		return "active"
	}
	return "idle"
}

// State describes the controller's timer. Interval is zero when Idle.
type State struct {
	Phase    Phase
	Interval time.Duration
}

// Options configure a Controller.
type Options struct {
	// Clock schedules ticks. Defaults to SystemClock.
	Clock Clock

	// DiscardStale drops results of cycles that started before the most
	// recently applied one. Off by default: cycles apply in completion order.
	DiscardStale bool

	// Context is passed to fetches started by ticks. Defaults to Background.
	// Stopping the controller does not cancel cycles already in flight.
	Context context.Context

	// Dispatch starts a tick's cycle. Defaults to a new goroutine per tick.
	Dispatch func(func())

	// Now stamps successful renders. Defaults to time.Now.
	Now func() time.Time
}

// Controller keeps a display in sync with the limits endpoint using at most
// one recurring timer.
type Controller struct {
	fetcher  Fetcher
	renderer Renderer
	opts     Options

	// mu guards the timer handle and interval; Start and Stop are its only
	// writers.
	mu       sync.Mutex
	timer    Timer
	interval time.Duration

	seq uint64

	// viewMu serializes applying a result and rendering it.
	viewMu  sync.Mutex
	view    View
	applied uint64
}

// New returns an idle controller.
func New(fetcher Fetcher, renderer Renderer, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { go fn() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if renderer == nil {
		renderer = RendererFunc(func(View) {})
	}

	return &Controller{
		fetcher:  fetcher,
		renderer: renderer,
		opts:     opts,
		view: View{
			Limit:     Placeholder,
			Remaining: Placeholder,
			Reset:     Placeholder,
		},
	}
}

// Start schedules the recurring refresh at interval, cancelling any existing
// timer first. Non-positive intervals use DefaultInterval. It returns the
// interval actually scheduled.
func (c *Controller) Start(interval time.Duration) time.Duration {
	interval = Sanitize(interval)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timer = c.opts.Clock.Every(interval, c.tick)
	c.interval = interval

	metrics.RecordTimerStart(interval)
	return interval
}

// OnIntervalChanged restarts the timer so the new period applies
// immediately rather than after the old period elapses.
func (c *Controller) OnIntervalChanged(interval time.Duration) time.Duration {
	return c.Start(interval)
}

// Stop cancels the timer. It is a no-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer == nil {
		return
	}
	c.timer.Stop()
	c.timer = nil
	c.interval = 0
}

// State reports whether a timer is scheduled and at what interval.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer == nil {
		return State{Phase: Idle}
	}
	return State{Phase: Active, Interval: c.interval}
}

// View returns the current display state.
func (c *Controller) View() View {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	return c.view
}

func (c *Controller) tick() {
	c.opts.Dispatch(func() {
		_ = c.Refresh(c.opts.Context)
	})
}

// Refresh runs one fetch-and-render cycle and returns the fetch error, if
// any. Failures are rendered, never propagated to the timer.
func (c *Controller) Refresh(ctx context.Context) error {
	seq := atomic.AddUint64(&c.seq, 1)

	var snap limits.Snapshot
	var err error
	if c.fetcher == nil {
		err = errNoFetcher
	} else {
		snap, err = c.fetcher.Fetch(ctx)
	}

	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	if c.opts.DiscardStale && seq < c.applied {
		metrics.RecordRefreshCycle(err == nil, true)
		return err
	}
	c.applied = seq

	if err != nil {
		c.view.Error = ErrorPrefix + err.Error()
	} else {
		c.view.Limit = FormatNumber(snap.Limit)
		c.view.Remaining = FormatNumber(snap.Remaining)
		c.view.Reset = FormatDuration(snap.Reset)
		c.view.Error = ""
		c.view.UpdatedAt = c.opts.Now()
	}
	metrics.RecordRefreshCycle(err == nil, false)

	c.renderer.Render(c.view)
	return err
}
