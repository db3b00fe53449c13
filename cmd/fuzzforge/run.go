// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fuzzforge/fuzzforge/pkg/config"
	"github.com/fuzzforge/fuzzforge/pkg/fuzzer"
)

// poolThreshold is the worker count above which workers are dispatched
// through a bounded ants.Pool instead of one goroutine each, avoiding an
// unbounded goroutine fan-out when --workers is large.
const poolThreshold = 16

func newRunCmd() *cobra.Command {
	var configPath string
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fuzzing engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd.Context(), configPath, workers)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (required)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "number of independent workers to run in this process")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runEngine(ctx context.Context, configPath string, workers int) error {
	if workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", workers)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Printf("shutting down: received interrupt")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Printf("starting %d worker(s), corpus=%s solutions=%s", workers, cfg.CorpusDir, cfg.SolutionsDir)

	drivers := make([]*fuzzer.Driver, workers)
	for i := 0; i < workers; i++ {
		d, err := buildDriver(cfg, i)
		if err != nil {
			return fmt.Errorf("worker %d: build driver: %w", i, err)
		}
		drivers[i] = d
	}

	if cfg.MetricsAddr != "" {
		registries := make([]*prometheus.Registry, 0, workers)
		for _, d := range drivers {
			if d.Metrics != nil {
				registries = append(registries, d.Metrics.Registry())
			}
		}
		srv := serveMetrics(cfg.MetricsAddr, registries)
		defer shutdownMetrics(srv)
		log.Printf("serving metrics on %s/metrics", cfg.MetricsAddr)
	}

	if workers <= poolThreshold {
		return runDirect(ctx, drivers)
	}
	return runPooled(ctx, drivers)
}

// runDirect spawns one goroutine per worker, supervised by an errgroup
// so the first worker error cancels the rest.
func runDirect(ctx context.Context, drivers []*fuzzer.Driver) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range drivers {
		id, d := i, d
		g.Go(func() error {
			return runWorker(gctx, d, id)
		})
	}
	return g.Wait()
}

// runPooled dispatches workers through a bounded ants.Pool rather than
// spawning "workers" goroutines directly, for large worker counts.
func runPooled(ctx context.Context, drivers []*fuzzer.Driver) error {
	pool, err := ants.NewPool(poolThreshold)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range drivers {
		id, d := i, d
		done := make(chan error, 1)
		task := func() {
			done <- runWorker(gctx, d, id)
		}
		if err := pool.Submit(task); err != nil {
			return fmt.Errorf("submit worker %d: %w", id, err)
		}
		g.Go(func() error { return <-done })
	}
	return g.Wait()
}

func runWorker(ctx context.Context, d *fuzzer.Driver, id int) error {
	if d.Allocator != nil {
		defer d.Allocator.Close()
	}
	d.Resume()
	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("worker %d: %w", id, err)
	}
	return nil
}
