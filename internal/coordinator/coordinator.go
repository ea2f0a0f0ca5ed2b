package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// Coordinator defaults.
const (
	// DefaultInterval is used when Options.Interval is zero.
	DefaultInterval = 30 * time.Second

	// DefaultSettleDelay is used when Options.SettleDelay is zero.
	DefaultSettleDelay = time.Second
)

// FetchFunc retrieves a fresh snapshot.
type FetchFunc[T any] func(ctx context.Context) (*T, error)

// Logger is the logging interface used by coordinators.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RefreshResult describes one finished refresh cycle.
type RefreshResult struct {
	Device   string
	Kind     string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Recorder receives every refresh result. history.Repository implements it.
type Recorder interface {
	RecordRefresh(ctx context.Context, r RefreshResult) error
}

// Options configures a Coordinator.
type Options struct {
	// Name identifies the resource, e.g. "state" or "config".
	Name string

	// Device is the device name used in logs and refresh records.
	Device string

	// Interval between scheduled refreshes in Run.
	Interval time.Duration

	// SettleDelay is waited by DelayedRequestRefresh before requesting.
	SettleDelay time.Duration

	// Logger is optional.
	Logger Logger

	// Recorder is optional.
	Recorder Recorder
}

// Status is a diagnostic summary of past cycles.
type Status struct {
	LastAttempt         time.Time
	LastSuccess         time.Time
	LastError           error
	ConsecutiveFailures int
	Refreshes           int
}

// cycle is one fetch and everyone waiting for it.
type cycle struct {
	ctx    context.Context
	done   chan struct{}
	err    error
	joined int
}

func newCycle(ctx context.Context) *cycle {
	return &cycle{ctx: context.WithoutCancel(ctx), done: make(chan struct{})}
}

// Coordinator polls one resource and holds its latest snapshot.
//
// Thread Safety: All methods are safe for concurrent use. Listeners are
// called from the goroutine that runs the fetch, in completion order.
type Coordinator[T any] struct {
	fetch       FetchFunc[T]
	name        string
	device      string
	interval    time.Duration
	settleDelay time.Duration
	recorder    Recorder

	data      atomic.Pointer[T]
	listeners notify.Listeners[*T]

	// mu guards the in-flight and queued cycles.
	mu       sync.Mutex
	inflight *cycle
	next     *cycle

	statusMu sync.RWMutex
	status   Status

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a coordinator around fetch. No fetch happens until a refresh
// is requested.
func New[T any](fetch FetchFunc[T], opts Options) *Coordinator[T] {
	c := &Coordinator[T]{
		fetch:       fetch,
		name:        opts.Name,
		device:      opts.Device,
		interval:    opts.Interval,
		settleDelay: opts.SettleDelay,
		recorder:    opts.Recorder,
		logger:      noopLogger{},
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.settleDelay <= 0 {
		c.settleDelay = DefaultSettleDelay
	}
	if opts.Logger != nil {
		c.logger = opts.Logger
	}
	return c
}

// SetLogger replaces the coordinator logger.
func (c *Coordinator[T]) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.loggerMu.Lock()
	c.logger = l
	c.loggerMu.Unlock()
}

// Name returns the resource name.
func (c *Coordinator[T]) Name() string { return c.name }

// Data returns the latest successful snapshot, or nil before the first one.
// The returned value is shared and must not be modified.
func (c *Coordinator[T]) Data() *T {
	return c.data.Load()
}

// Status returns a copy of the cycle statistics.
func (c *Coordinator[T]) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// AddListener registers fn for every new snapshot.
//
// Listeners run on the cycle goroutine before the cycle's waiters are
// released. A listener must not block on RequestRefresh or
// DelayedRequestRefresh of the same coordinator, since the cycle it would
// wait for runs only after the listener returns; use TriggerRefresh.
func (c *Coordinator[T]) AddListener(fn func(*T)) notify.Unsubscribe {
	return c.listeners.Add(fn)
}

// RequestRefresh joins the next refresh cycle and waits for it.
//
// If no fetch is running one starts now. Otherwise the request joins the
// queued cycle that runs after the current fetch, shared by all requests
// made in the meantime.
//
// Returns:
//   - the error of the joined cycle's fetch
//   - ctx.Err() if ctx ends first; the cycle still runs
func (c *Coordinator[T]) RequestRefresh(ctx context.Context) error {
	cy := c.join(ctx)

	select {
	case <-cy.done:
		return cy.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerRefresh joins the next refresh cycle like RequestRefresh but does
// not wait for it. It is safe to call from a listener.
func (c *Coordinator[T]) TriggerRefresh(ctx context.Context) {
	c.join(ctx)
}

// DelayedRequestRefresh waits the settle delay, then calls RequestRefresh.
// Actions use it so the device has applied a command before it is re-read.
func (c *Coordinator[T]) DelayedRequestRefresh(ctx context.Context) error {
	t := time.NewTimer(c.settleDelay)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.RequestRefresh(ctx)
}

// FirstRefresh performs the initial blocking refresh.
func (c *Coordinator[T]) FirstRefresh(ctx context.Context) error {
	if err := c.RequestRefresh(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFirstRefreshFailed, c.name, err)
	}
	return nil
}

// Run triggers a refresh every interval until ctx is done. A tick during a
// slow fetch queues at most one follow-up cycle. Failed cycles are logged
// by the cycle itself and do not stop the loop.
func (c *Coordinator[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.TriggerRefresh(ctx)
		}
	}
}

// join returns the cycle a new request waits on, starting one if idle.
func (c *Coordinator[T]) join(ctx context.Context) *cycle {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.inflight == nil:
		c.inflight = newCycle(ctx)
		c.inflight.joined++
		go c.execute(c.inflight)
		return c.inflight
	case c.next == nil:
		c.next = newCycle(ctx)
	}
	c.next.joined++
	return c.next
}

// execute runs cy and then any cycle queued behind it.
func (c *Coordinator[T]) execute(cy *cycle) {
	for cy != nil {
		cy.err = c.refresh(cy.ctx)
		close(cy.done)

		c.mu.Lock()
		cy = c.next
		c.next = nil
		c.inflight = cy
		c.mu.Unlock()
	}
}

// refresh performs one fetch and applies its outcome.
func (c *Coordinator[T]) refresh(ctx context.Context) error {
	started := time.Now()
	data, err := c.fetch(ctx)
	if err == nil && data == nil {
		err = ErrNilSnapshot
	}
	elapsed := time.Since(started)

	c.statusMu.Lock()
	c.status.LastAttempt = started
	c.status.Refreshes++
	if err != nil {
		c.status.LastError = err
		c.status.ConsecutiveFailures++
	} else {
		c.status.LastSuccess = started
		c.status.LastError = nil
		c.status.ConsecutiveFailures = 0
	}
	failures := c.status.ConsecutiveFailures
	c.statusMu.Unlock()

	if err != nil {
		c.getLogger().Warn("refresh failed, keeping previous snapshot",
			"device", c.device,
			"resource", c.name,
			"consecutive_failures", failures,
			"error", err,
		)
	} else {
		c.data.Store(data)
		c.getLogger().Debug("refresh succeeded",
			"device", c.device,
			"resource", c.name,
			"duration", elapsed,
		)
		c.notifyListeners(data)
	}

	if c.recorder != nil {
		result := RefreshResult{
			Device:   c.device,
			Kind:     c.name,
			Started:  started,
			Duration: elapsed,
			Err:      err,
		}
		if rerr := c.recorder.RecordRefresh(ctx, result); rerr != nil {
			c.getLogger().Error("recording refresh failed", "device", c.device, "resource", c.name, "error", rerr)
		}
	}

	return err
}

// notifyListeners delivers data to every listener. A panicking listener is
// logged; it must not take the cycle goroutine down with it.
func (c *Coordinator[T]) notifyListeners(data *T) {
	for _, fn := range c.listeners.Snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.getLogger().Error("snapshot listener panicked",
						"device", c.device,
						"resource", c.name,
						"panic", r,
					)
				}
			}()
			fn(data)
		}()
	}
}

func (c *Coordinator[T]) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
