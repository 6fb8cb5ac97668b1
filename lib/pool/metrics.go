package pool

import "github.com/go-i2p/respool/lib/metrics"

// Pool utilization metrics
var (
	// Capacity is the number of resources tracked by the pool.
	Capacity = metrics.NewGauge(
		"respool_capacity",
		"Resources currently tracked by the pool, idle or on loan",
	)
	// CapacityMax is the configured capacity ceiling.
	CapacityMax = metrics.NewGauge(
		"respool_capacity_max",
		"Configured maximum pool capacity",
	)
	// Idle is the number of idle resources.
	Idle = metrics.NewGauge(
		"respool_idle",
		"Resources idle in the pool",
	)
	// InUse is the number of resources on loan.
	InUse = metrics.NewGauge(
		"respool_in_use",
		"Resources on loan to callers",
	)
	// AcquireTotal counts acquire attempts.
	AcquireTotal = metrics.NewCounter(
		"respool_acquire_total",
		"Total resource acquire attempts",
	)
	// AcquireWaitTotal counts acquires that found the pool empty.
	AcquireWaitTotal = metrics.NewCounter(
		"respool_acquire_wait_total",
		"Acquire attempts that found the pool empty",
	)
	// ReleaseTotal counts releases.
	ReleaseTotal = metrics.NewCounter(
		"respool_release_total",
		"Total resource releases",
	)
	// ScaleOutTotal counts resources added by scaling.
	ScaleOutTotal = metrics.NewCounter(
		"respool_scale_out_total",
		"Resources added by demand growth or scheduled scale-out",
	)
	// ScaleInTotal counts resources removed by scaling.
	ScaleInTotal = metrics.NewCounter(
		"respool_scale_in_total",
		"Resources removed by scheduled scale-in",
	)
	// ScaleSkippedTotal counts scaling ticks skipped under lock contention.
	ScaleSkippedTotal = metrics.NewCounter(
		"respool_scale_skipped_total",
		"Scaling ticks skipped because the capacity lock was contended",
	)
	// FactoryFailuresTotal counts failed resource constructions.
	FactoryFailuresTotal = metrics.NewCounter(
		"respool_factory_failures_total",
		"Failed resource constructions",
	)
	// AcquireWaitSeconds tracks time spent waiting for an empty pool.
	AcquireWaitSeconds = metrics.NewHistogram(
		"respool_acquire_wait_seconds",
		"Time spent waiting in Acquire when the pool was empty",
		metrics.DefaultLatencyBuckets,
	)
)

// Stats is a point-in-time snapshot of pool state and lifetime counters.
// All values are racy reads intended for monitoring.
type Stats struct {
	// Capacity is the number of resources tracked, idle or on loan.
	Capacity int
	// MaxCapacity is the configured ceiling.
	MaxCapacity int
	// Idle is the number of idle resources.
	Idle int
	// InUse is the number of resources on loan.
	InUse int
	// Acquires is the total number of acquire attempts.
	Acquires uint64
	// Waits is the number of acquires that found the pool empty.
	Waits uint64
	// Releases is the total number of releases.
	Releases uint64
	// ScaleOuts is the number of resources added by scaling.
	ScaleOuts uint64
	// ScaleIns is the number of resources removed by scaling.
	ScaleIns uint64
	// ScaleSkips is the number of scaling ticks skipped under contention.
	ScaleSkips uint64
	// FactoryFailures is the number of failed constructions.
	FactoryFailures uint64
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() Stats {
	capacity := int(p.capacity.Load())
	idle := len(p.idle)
	return Stats{
		Capacity:        capacity,
		MaxCapacity:     p.cfg.MaxCapacity,
		Idle:            idle,
		InUse:           capacity - idle,
		Acquires:        p.acquires.Load(),
		Waits:           p.waits.Load(),
		Releases:        p.releases.Load(),
		ScaleOuts:       p.scaleOuts.Load(),
		ScaleIns:        p.scaleIns.Load(),
		ScaleSkips:      p.scaleSkips.Load(),
		FactoryFailures: p.factoryFailures.Load(),
	}
}

// UpdateMetrics publishes a Stats snapshot to the metrics registry.
func UpdateMetrics(stats Stats) {
	Capacity.Set(int64(stats.Capacity))
	CapacityMax.Set(int64(stats.MaxCapacity))
	Idle.Set(int64(stats.Idle))
	InUse.Set(int64(stats.InUse))
}
