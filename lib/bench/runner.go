package bench

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-i2p/respool/lib/pool"
	"github.com/go-i2p/respool/lib/ratelimit"
)

// workUnit is the synthetic resource handed out by the bench pool. Its
// construction cost stands in for a dial or handshake.
type workUnit struct {
	id     int64
	closed atomic.Bool
}

// Close marks the unit destroyed. Double closes are reported because they
// mean the pool destroyed a resource twice.
func (w *workUnit) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		log.WithField("id", w.id).Error("work unit closed twice")
	}
	return nil
}

// Result summarizes a bench run.
type Result struct {
	// Duration is the measured wall time of the run
	Duration time.Duration
	// Ops is the number of completed acquire/hold/release cycles
	Ops uint64
	// Final is the pool state at the end of the run
	Final pool.Stats
	// PeakCapacity is the highest capacity seen by the sampler
	PeakCapacity int
	// Samples is the number of statistics snapshots taken
	Samples int
}

// Runner executes a synthetic workload against a pool of work units.
type Runner struct {
	cfg      *Config
	ops      atomic.Uint64
	peak     atomic.Int64
	samples  atomic.Int64
	unitSeq  atomic.Int64
	dialCost time.Duration
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, dialCost: time.Millisecond}, nil
}

// Run executes the workload until the configured duration elapses or the
// context is cancelled, whichever comes first.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	factory := func(ctx context.Context) (*workUnit, error) {
		select {
		case <-time.After(r.dialCost):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &workUnit{id: r.unitSeq.Add(1)}, nil
	}

	p, err := pool.New(factory, r.cfg.PoolSettings())
	if err != nil {
		return nil, err
	}
	defer p.Close()

	var limiter *ratelimit.Limiter
	if r.cfg.Load.Rate > 0 {
		limiter = ratelimit.New(r.cfg.Load.Rate, r.cfg.Load.Workers)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Load.Duration)
	defer cancel()

	log.WithField("workers", r.cfg.Load.Workers).
		WithField("duration", r.cfg.Load.Duration).
		Debug("bench run starting")

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)

	for i := 0; i < r.cfg.Load.Workers; i++ {
		g.Go(func() error {
			return r.worker(gctx, p, limiter)
		})
	}
	g.Go(func() error {
		return r.sample(gctx, p)
	})

	err = g.Wait()
	if err == context.DeadlineExceeded || err == context.Canceled {
		err = nil
	}

	final := p.Stats()
	pool.UpdateMetrics(final)

	result := &Result{
		Duration:     time.Since(start),
		Ops:          r.ops.Load(),
		Final:        final,
		PeakCapacity: int(r.peak.Load()),
		Samples:      int(r.samples.Load()),
	}
	if result.PeakCapacity < final.Capacity {
		result.PeakCapacity = final.Capacity
	}
	return result, err
}

// worker runs acquire/hold/release cycles until the context expires.
func (r *Runner) worker(ctx context.Context, p *pool.Pool[*workUnit], limiter *ratelimit.Limiter) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		u, err := p.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		hold := r.cfg.Load.HoldTime
		if hold > 0 {
			// Jitter the hold time so workers desynchronize.
			jittered := hold/2 + time.Duration(rng.Int63n(int64(hold)))
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				p.Release(u)
				return ctx.Err()
			}
		}

		p.Release(u)
		r.ops.Add(1)
	}
}

// sample periodically snapshots pool statistics and publishes them.
func (r *Runner) sample(ctx context.Context, p *pool.Pool[*workUnit]) error {
	interval := r.cfg.Load.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := p.Stats()
			pool.UpdateMetrics(stats)
			r.samples.Add(1)
			if c := int64(stats.Capacity); c > r.peak.Load() {
				r.peak.Store(c)
			}
			log.WithField("capacity", stats.Capacity).
				WithField("idle", stats.Idle).
				WithField("in_use", stats.InUse).
				Debug("pool sample")
		}
	}
}
