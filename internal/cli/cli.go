// ============================================================================
// forkmap CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: cobra-based CLI driving a demo workload through pkg/pool, for
//          manual exercise of the dispatcher and its Prometheus metrics.
//
// Command Structure:
//   forkmap                       # Root command
//   ├── run                       # Drive the demo workload once
//   │   ├── --pool-size, -p
//   │   ├── --timeout
//   │   ├── --unordered
//   │   └── --metrics-addr        # serve /metrics while running
//   ├── bench                     # Compare serial vs. dispatched timing
//   ├── --config, -c              # YAML config file (optional)
//   └── version
//
// Signal Handling:
//   run installs SIGINT/SIGTERM handling that cancels the map's context,
//   which drives Pool.Stop, exactly as the teacher's run command does
//   for its controller.
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mrafferty/forkmap/internal/config"
	"github.com/mrafferty/forkmap/internal/source"
	"github.com/mrafferty/forkmap/pkg/pool"
)

var configFile string

// BuildCLI assembles the forkmap command tree.
func BuildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:   "forkmap",
		Short: "forkmap: a parallel map dispatcher",
		Long: `forkmap runs a pure function across a fixed pool of worker
goroutines and yields results back as a lazy stream, ordered or
unordered, with per-task timeouts and worker replacement.`,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (YAML); defaults built in if omitted")

	root.AddCommand(buildRunCommand())
	root.AddCommand(buildBenchCommand())
	root.AddCommand(buildVersionCommand())

	return root
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(configFile)
}

// harmonicSum is the demo CPU-bound workload, matching
// scripts/demo.py/benchmark-demo.py's harmonic_sum.
func harmonicSum(n int) float64 {
	var sum float64
	for i := 1; i <= n; i++ {
		sum += 1.0 / float64(i)
	}
	return sum
}

func buildRunCommand() *cobra.Command {
	var poolSize int
	var timeout time.Duration
	var unordered bool
	var metricsAddr string
	var count int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo harmonic-sum workload through the dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(poolSize, timeout, unordered, metricsAddr, count)
		},
	}

	cmd.Flags().IntVarP(&poolSize, "pool-size", "p", 0, "worker pool size (0 = config/default)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-task timeout (0 = config/default, unbounded by default)")
	cmd.Flags().BoolVar(&unordered, "unordered", false, "yield results in completion order instead of input order")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address while running")
	cmd.Flags().IntVar(&count, "count", 20, "number of demo inputs to process")

	return cmd
}

func runDemo(poolSize int, timeout time.Duration, unordered bool, metricsAddr string, count int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	size := cfg.Pool.Size
	if poolSize > 0 {
		size = poolSize
	}
	ordered := cfg.Pool.Ordered && !unordered
	if timeout == 0 {
		timeout = cfg.Pool.Timeout
	}

	opts := []pool.Option{
		pool.WithPoolSize(size),
		pool.WithTimeout(timeout),
		pool.WithStopGracePeriod(cfg.Pool.StopGracePeriod),
	}

	p, err := pool.New(func(args []any) (any, error) {
		n := args[0].(int)
		return harmonicSum(n), nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to build pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal, stopping gracefully...")
		cancel()
	}()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pool: %w", err)
	}
	defer p.Stop(context.Background())

	if metricsAddr != "" || cfg.Metrics.Enabled {
		addr := metricsAddr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(p.Registry(), promhttp.HandlerOpts{}))
		go func() {
			log.Printf("metrics server listening on %s\n", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("metrics server error: %v\n", err)
			}
		}()
	}

	values := make([]any, count)
	for i := range values {
		values[i] = 1000 + i
	}

	var stream *pool.Stream
	if ordered {
		stream, err = p.IMap(ctx, source.FromValues(values))
	} else {
		stream, err = p.IMapUnordered(ctx, source.FromValues(values))
	}
	if err != nil {
		return fmt.Errorf("failed to start map: %w", err)
	}
	defer stream.Close()

	fmt.Printf("Processing %d inputs with pool size %d (ordered=%v)...\n", count, size, ordered)
	n := 0
	for {
		out, ok, err := stream.Next()
		if err != nil {
			return fmt.Errorf("map aborted: %w", err)
		}
		if !ok {
			break
		}
		n++
		switch {
		case out.IsOk():
			fmt.Printf("[%d] %v\n", n, out.Value)
		case out.IsTimeout():
			fmt.Printf("[%d] timeout\n", n)
		case out.IsWorkerError():
			fmt.Printf("[%d] worker error: %v\n", n, out.Err)
		}
	}

	fmt.Printf("Done: %d results.\n", n)
	return nil
}

func buildBenchCommand() *cobra.Command {
	var count int
	var poolSize int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare serial vs. dispatched timing for the demo workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(count, poolSize)
		},
	}

	cmd.Flags().IntVar(&count, "count", 200, "number of demo inputs")
	cmd.Flags().IntVarP(&poolSize, "pool-size", "p", 0, "worker pool size (0 = runtime.NumCPU())")

	return cmd
}

func runBench(count int, poolSize int) error {
	values := make([]int, count)
	for i := range values {
		values[i] = 1000 + rand.Intn(1000)
	}

	serialStart := time.Now()
	serial := make([]float64, len(values))
	for i, v := range values {
		serial[i] = harmonicSum(v)
	}
	serialElapsed := time.Since(serialStart)

	var opts []pool.Option
	if poolSize > 0 {
		opts = append(opts, pool.WithPoolSize(poolSize))
	}

	anyValues := make([]any, len(values))
	for i, v := range values {
		anyValues[i] = v
	}

	dispatchedStart := time.Now()
	ctx := context.Background()
	results, err := pool.WithPool(ctx, func(args []any) (any, error) {
		n := args[0].(int)
		return harmonicSum(n), nil
	}, source.FromValues(anyValues), opts...)
	if err != nil {
		return fmt.Errorf("dispatched run failed: %w", err)
	}
	dispatchedElapsed := time.Since(dispatchedStart)

	fmt.Printf("serial:     %d inputs in %s\n", len(serial), serialElapsed)
	fmt.Printf("dispatched: %d outputs in %s\n", len(results), dispatchedElapsed)
	return nil
}

func buildVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the forkmap version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(Version)
			return nil
		},
	}
}

// Version is set by cmd/forkmap's main from the version variables it
// receives at build time via -ldflags, matching the teacher's cmd/queue
// version-injection pattern.
var Version = "dev"
