package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrPoolClosed is returned when operating on a closed pool.
	ErrPoolClosed = errors.New("pool: pool is closed")
	// ErrNilFactory is returned when a pool is created without a factory.
	ErrNilFactory = errors.New("pool: factory is nil")
)

// Resource is a poolable value. The pool calls Close when a resource is
// destroyed during scale-in or teardown.
type Resource interface {
	// Close releases the resource's underlying handles.
	Close() error
}

// Factory constructs new resources. It must return a distinct, independently
// closable instance on each call and must be safe to call from multiple
// goroutines. Construction may be slow (network handshake) and may fail.
type Factory[T Resource] func(ctx context.Context) (T, error)

// Config configures the pool.
type Config struct {
	// InitialCapacity is the number of resources constructed eagerly at
	// creation time. Scale-in never reduces the pool below this floor.
	// Default: 4
	InitialCapacity int
	// MaxCapacity is the ceiling the pool never grows beyond.
	// Default: 4 * InitialCapacity
	MaxCapacity int
	// Step is the number of resources added or removed per scaling action.
	// Default: max(1, InitialCapacity/2)
	Step int
	// ScaleInterval is how often the scaling policy is consulted.
	// Set to 0 to disable background scaling; demand-triggered growth in
	// Acquire still applies.
	// Default: 30 seconds
	ScaleInterval time.Duration
	// MinIdle is the idle floor. When the idle set dipped below MinIdle
	// during an observation window, the policy scales out. Set to 0 to
	// never scale out from the background ticker.
	// Default: 1
	MinIdle int
	// Policy decides scale-in/scale-out from the observed low-water-mark.
	// If nil, LowWaterPolicy is used.
	Policy Policy
	// TrackLoans enables bookkeeping of handed-out resources so that
	// double releases and releases of foreign resources are rejected
	// instead of corrupting capacity accounting. Requires the resource
	// type to be comparable.
	TrackLoans bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapacity: 4,
		ScaleInterval:   30 * time.Second,
		MinIdle:         1,
	}
}

// withDefaults normalizes zero and out-of-range values.
func (c Config) withDefaults() Config {
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = 4
	}
	if c.MaxCapacity <= 0 {
		c.MaxCapacity = 4 * c.InitialCapacity
	}
	if c.MaxCapacity < c.InitialCapacity {
		c.MaxCapacity = c.InitialCapacity
	}
	if c.Step <= 0 {
		c.Step = c.InitialCapacity / 2
		if c.Step < 1 {
			c.Step = 1
		}
	}
	if c.MinIdle < 0 {
		c.MinIdle = 0
	}
	if c.Policy == nil {
		c.Policy = LowWaterPolicy{}
	}
	return c
}

// Pool is an elastic resource pool. Idle resources live in a buffered
// channel so acquisition and release never contend with the capacity lock;
// the lock only serializes capacity changes (synchronous growth from
// Acquire and the periodic scaling tick).
type Pool[T Resource] struct {
	factory Factory[T]
	cfg     Config

	idle     chan T
	capacity atomic.Int64
	lowWater atomic.Int64

	// scaleMu serializes everything that mutates capacity so concurrent
	// growth attempts cannot overshoot MaxCapacity.
	scaleMu   sync.Mutex
	closed    atomic.Bool
	done      chan struct{}
	scaleDone chan struct{}

	loanMu sync.Mutex
	loans  map[Resource]struct{}

	acquires        atomic.Uint64
	waits           atomic.Uint64
	releases        atomic.Uint64
	scaleOuts       atomic.Uint64
	scaleIns        atomic.Uint64
	scaleSkips      atomic.Uint64
	factoryFailures atomic.Uint64
}

// New creates a pool and eagerly constructs Config.InitialCapacity
// resources. If any construction fails, the resources built so far are
// closed and the factory error is returned.
func New[T Resource](factory Factory[T], cfg Config) (*Pool[T], error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	cfg = cfg.withDefaults()

	p := &Pool[T]{
		factory: factory,
		cfg:     cfg,
		idle:    make(chan T, cfg.MaxCapacity),
		done:    make(chan struct{}),
	}
	if cfg.TrackLoans {
		p.loans = make(map[Resource]struct{})
	}

	for i := 0; i < cfg.InitialCapacity; i++ {
		r, err := factory(context.Background())
		if err != nil {
			p.factoryFailures.Add(1)
			FactoryFailuresTotal.Inc()
			p.drainIdle()
			return nil, fmt.Errorf("pool: initial fill: %w", err)
		}
		p.capacity.Add(1)
		p.idle <- r
	}
	p.lowWater.Store(int64(len(p.idle)))

	if cfg.ScaleInterval > 0 {
		p.scaleDone = make(chan struct{})
		go p.scaleLoop()
	}

	log.WithField("initial", cfg.InitialCapacity).
		WithField("max", cfg.MaxCapacity).
		WithField("step", cfg.Step).
		Debug("pool created")
	return p, nil
}

// Acquire removes an idle resource from the pool and hands it to the
// caller. If the pool is empty it first grows the pool synchronously by up
// to Step resources (bounded by MaxCapacity), then blocks until a resource
// becomes available or ctx is canceled. A factory error during growth is
// returned to the caller; the pool stays consistent.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T
	if p.closed.Load() {
		return zero, ErrPoolClosed
	}
	p.acquires.Add(1)
	AcquireTotal.Inc()

	// Fast path: a resource is immediately available.
	select {
	case r := <-p.idle:
		p.observeIdle(len(p.idle))
		p.lend(r)
		return r, nil
	default:
	}

	// Pool is empty: that is the strongest demand signal we can record.
	p.observeIdle(0)
	p.waits.Add(1)
	AcquireWaitTotal.Inc()
	start := time.Now()

	if err := p.grow(ctx); err != nil {
		return zero, err
	}

	select {
	case r := <-p.idle:
		p.observeIdle(len(p.idle))
		p.lend(r)
		AcquireWaitSeconds.Observe(time.Since(start).Seconds())
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-p.done:
		return zero, ErrPoolClosed
	}
}

// grow adds up to Step resources, bounded by MaxCapacity. New resources are
// inserted into the idle set before grow returns, so capacity is visible
// before any blocked Acquire is served.
func (p *Pool[T]) grow(ctx context.Context) error {
	p.scaleMu.Lock()
	defer p.scaleMu.Unlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	n := p.cfg.Step
	if room := p.cfg.MaxCapacity - int(p.capacity.Load()); n > room {
		n = room
	}
	for i := 0; i < n; i++ {
		r, err := p.factory(ctx)
		if err != nil {
			p.factoryFailures.Add(1)
			FactoryFailuresTotal.Inc()
			log.WithError(err).Debug("synchronous growth failed")
			return err
		}
		p.capacity.Add(1)
		p.scaleOuts.Add(1)
		ScaleOutTotal.Inc()
		p.idle <- r
	}

	// Close may have drained the idle set while the factory was running;
	// anything inserted above would be stranded on a closed pool.
	if p.closed.Load() {
		p.drainIdle()
		return ErrPoolClosed
	}

	if n > 0 {
		log.WithField("added", n).
			WithField("capacity", p.capacity.Load()).
			Debug("pool grew on demand")
	}
	return nil
}

// Release returns a resource to the idle pool. The caller must have
// obtained it from Acquire and must not release the same resource twice;
// without TrackLoans the pool cannot detect either violation.
func (p *Pool[T]) Release(r T) {
	p.releases.Add(1)
	ReleaseTotal.Inc()

	if p.cfg.TrackLoans && !p.unlend(r) {
		log.Warn("rejected release of resource not on loan")
		return
	}

	if p.closed.Load() {
		p.destroy(r)
		return
	}

	select {
	case p.idle <- r:
	default:
		// Only reachable when the caller releases more resources than
		// the pool ever issued.
		log.Warn("idle set full, closing released resource")
		if err := r.Close(); err != nil {
			log.WithError(err).Warn("closing surplus resource")
		}
		return
	}

	// Close may have drained the idle set between the load above and the
	// send; reclaim what we can so the resource is not stranded.
	if p.closed.Load() {
		select {
		case r := <-p.idle:
			p.destroy(r)
		default:
		}
	}
}

// TotalCapacity returns the number of resources tracked by the pool, idle
// or on loan. It is a racy snapshot intended for monitoring.
func (p *Pool[T]) TotalCapacity() int {
	return int(p.capacity.Load())
}

// AvailableCapacity returns the number of idle resources. It is a racy
// snapshot intended for monitoring.
func (p *Pool[T]) AvailableCapacity() int {
	return len(p.idle)
}

// Close tears the pool down: the scaling ticker is stopped and every idle
// resource is closed. Resources on loan are not reachable and must be
// closed by their holders. Close is idempotent; a second call is a no-op.
func (p *Pool[T]) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.done)
	if p.scaleDone != nil {
		<-p.scaleDone
	}

	err := p.drainIdle()
	log.Debug("pool closed")
	return err
}

// drainIdle closes every resource currently in the idle set.
func (p *Pool[T]) drainIdle() error {
	var errs []error
	for {
		select {
		case r := <-p.idle:
			if err := r.Close(); err != nil {
				errs = append(errs, err)
			}
			p.capacity.Add(-1)
		default:
			return errors.Join(errs...)
		}
	}
}

// destroy closes a resource that is leaving the pool's bookkeeping.
func (p *Pool[T]) destroy(r T) {
	p.capacity.Add(-1)
	if err := r.Close(); err != nil {
		log.WithError(err).Warn("closing pooled resource")
	}
}

// observeIdle folds an observed idle count into the low-water-mark for the
// current window.
func (p *Pool[T]) observeIdle(n int) {
	for {
		cur := p.lowWater.Load()
		if int64(n) >= cur {
			return
		}
		if p.lowWater.CompareAndSwap(cur, int64(n)) {
			return
		}
	}
}

// lend records a resource as on loan when strict tracking is enabled.
func (p *Pool[T]) lend(r T) {
	if !p.cfg.TrackLoans {
		return
	}
	p.loanMu.Lock()
	p.loans[r] = struct{}{}
	p.loanMu.Unlock()
}

// unlend removes a loan record, reporting whether the resource was on loan.
func (p *Pool[T]) unlend(r T) bool {
	p.loanMu.Lock()
	defer p.loanMu.Unlock()
	if _, ok := p.loans[r]; !ok {
		return false
	}
	delete(p.loans, r)
	return true
}

// scaleLoop drives the periodic scaling decision.
func (p *Pool[T]) scaleLoop() {
	defer close(p.scaleDone)

	ticker := time.NewTicker(p.cfg.ScaleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.runScale()
		}
	}
}

// runScale executes one scaling tick. If the capacity lock is held by a
// concurrent synchronous growth, the tick is skipped rather than queued;
// scaling is best-effort.
func (p *Pool[T]) runScale() {
	if !p.scaleMu.TryLock() {
		p.scaleSkips.Add(1)
		ScaleSkippedTotal.Inc()
		log.Debug("scaling tick skipped, capacity lock contended")
		return
	}
	defer p.scaleMu.Unlock()

	if p.closed.Load() {
		return
	}

	snap := Snapshot{
		LowWater:        int(p.lowWater.Load()),
		Idle:            len(p.idle),
		Capacity:        int(p.capacity.Load()),
		InitialCapacity: p.cfg.InitialCapacity,
		MaxCapacity:     p.cfg.MaxCapacity,
		Step:            p.cfg.Step,
		MinIdle:         p.cfg.MinIdle,
	}

	switch p.cfg.Policy.Decide(snap) {
	case ActionScaleIn:
		p.scaleIn()
	case ActionScaleOut:
		p.scaleOut()
	}

	// Start a fresh observation window from the current idle count.
	p.lowWater.Store(int64(len(p.idle)))
}

// scaleIn removes up to Step idle resources. The attempt is non-blocking
// and stops early when the idle set runs out.
func (p *Pool[T]) scaleIn() {
	removed := 0
	for removed < p.cfg.Step {
		select {
		case r := <-p.idle:
			p.destroy(r)
			p.scaleIns.Add(1)
			ScaleInTotal.Inc()
			removed++
		default:
			log.WithField("removed", removed).Debug("scale-in stopped early, idle set empty")
			return
		}
	}
	log.WithField("removed", removed).
		WithField("capacity", p.capacity.Load()).
		Debug("pool scaled in")
}

// scaleOut constructs up to Step resources, bounded by MaxCapacity. A
// factory failure ends the tick's growth but never the scaling loop.
func (p *Pool[T]) scaleOut() {
	added := 0
	for added < p.cfg.Step && int(p.capacity.Load()) < p.cfg.MaxCapacity {
		r, err := p.factory(context.Background())
		if err != nil {
			p.factoryFailures.Add(1)
			FactoryFailuresTotal.Inc()
			log.WithError(err).Warn("scheduled scale-out failed")
			break
		}
		p.capacity.Add(1)
		p.scaleOuts.Add(1)
		ScaleOutTotal.Inc()
		p.idle <- r
		added++
	}
	if added > 0 {
		log.WithField("added", added).
			WithField("capacity", p.capacity.Load()).
			Debug("pool scaled out")
	}
}
