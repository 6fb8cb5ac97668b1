// poolbench exercises an adaptively scaled resource pool with a synthetic
// acquire/release workload and reports how the pool behaved.
//
// Usage:
//
//	poolbench [flags]
//
// Flags:
//
//	-config string
//	    Path to configuration file (default "poolbench.toml")
//	-workers int
//	    Number of concurrent borrowers (overrides config)
//	-duration duration
//	    Run duration (overrides config)
//	-rate float
//	    Acquires per second across all workers, 0 = unpaced (overrides config)
//	-metrics string
//	    Serve Prometheus-style metrics on this address (overrides config)
//	-v
//	    Enable verbose logging
//	-version
//	    Print version and exit
//
// See https://github.com/go-i2p/respool for more information.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-i2p/respool/lib/bench"
	"github.com/go-i2p/respool/lib/metrics"
	"github.com/go-i2p/respool/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "poolbench.toml", "Path to configuration file")
	workers := flag.Int("workers", 0, "Number of concurrent borrowers (overrides config)")
	duration := flag.Duration("duration", 0, "Run duration (overrides config)")
	rate := flag.Float64("rate", -1, "Acquires per second, 0 = unpaced (overrides config)")
	metricsListen := flag.String("metrics", "", "Serve metrics on this address (overrides config)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "poolbench - Adaptive resource pool workload driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  poolbench [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("poolbench version %s\n", version.Full())
		return 0
	}

	// The log level is read from the environment on first use.
	if *verbose {
		os.Setenv("DEBUG_I2P", "debug")
	}

	cfg, err := bench.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poolbench: %v\n", err)
		return 1
	}

	// Apply command-line overrides
	if *workers > 0 {
		cfg.Load.Workers = *workers
	}
	if *duration > 0 {
		cfg.Load.Duration = *duration
	}
	if *rate >= 0 {
		cfg.Load.Rate = *rate
	}
	if *metricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = *metricsListen
	}

	runner, err := bench.NewRunner(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poolbench: %v\n", err)
		return 1
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "poolbench: metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
		fmt.Printf("metrics on http://%s/metrics\n", cfg.Metrics.Listen)
	}

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	maxCap := cfg.Pool.MaxCapacity
	if maxCap == 0 {
		maxCap = 4 * cfg.Pool.InitialCapacity
	}
	fmt.Printf("running %d workers for %s against a pool of %d..%d\n",
		cfg.Load.Workers, cfg.Load.Duration,
		cfg.Pool.InitialCapacity, maxCap)

	result, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poolbench: %v\n", err)
		return 1
	}

	printResult(result)
	return 0
}

func printResult(r *bench.Result) {
	fmt.Printf("\ncompleted %d ops in %s (%.0f ops/sec)\n",
		r.Ops, r.Duration.Round(time.Millisecond),
		float64(r.Ops)/r.Duration.Seconds())
	fmt.Printf("capacity: final %d, peak %d, max %d\n",
		r.Final.Capacity, r.PeakCapacity, r.Final.MaxCapacity)
	fmt.Printf("acquires: %d (%d waited), releases: %d\n",
		r.Final.Acquires, r.Final.Waits, r.Final.Releases)
	fmt.Printf("scaling:  +%d -%d (skipped %d), factory failures %d\n",
		r.Final.ScaleOuts, r.Final.ScaleIns, r.Final.ScaleSkips, r.Final.FactoryFailures)
}
