// Package pool provides a generic, thread-safe resource pool with adaptive
// capacity for expensive-to-construct, disposable resources such as remote
// service connections.
//
// The pool supports:
//   - Eager construction of an initial set of resources
//   - Demand-triggered synchronous growth when the pool runs dry
//   - Periodic, usage-driven scale-in and scale-out via pluggable policies
//   - Context-aware blocking acquisition
//   - Metrics for pool utilization
//
// # Basic Usage
//
//	factory := func(ctx context.Context) (*myConn, error) {
//	    return dialService(ctx, "localhost:8080")
//	}
//
//	cfg := pool.DefaultConfig()
//	cfg.InitialCapacity = 4
//
//	p, err := pool.New(factory, cfg)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	conn, err := p.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer p.Release(conn)
//
//	// Use conn...
//
// # Adaptive Scaling
//
// A background ticker wakes every ScaleInterval and consults the configured
// Policy with the low-water-mark of the idle set observed since the last
// tick. Sustained slack (the idle set never dipped below Step) shrinks the
// pool by Step, never below InitialCapacity. Sustained demand (the idle set
// dipped below MinIdle) grows it by Step, never above MaxCapacity. The
// default LowWaterPolicy acts on each tick in isolation; WindowPolicy
// accumulates several ticks of history before acting.
//
// Idle resources are handed out in FIFO order. The pool does not validate
// resource health and does not detect resources that are never released;
// both are the caller's responsibility.
//
// # Metrics
//
// Pool utilization metrics are registered with the metrics package:
//   - respool_capacity: resources currently tracked by the pool
//   - respool_capacity_max: configured capacity ceiling
//   - respool_idle: resources idle in the pool
//   - respool_in_use: resources on loan to callers
//   - respool_acquire_total: total acquire attempts
//   - respool_acquire_wait_total: acquires that found the pool empty
//   - respool_release_total: total releases
//   - respool_scale_out_total: resources added by scaling
//   - respool_scale_in_total: resources removed by scaling
//   - respool_scale_skipped_total: scaling ticks skipped under contention
//   - respool_factory_failures_total: failed resource constructions
package pool
