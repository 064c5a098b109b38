// ============================================================================
// Fractor CLI - shared supervisor construction and run loop
// ============================================================================
//
// Package: internal/cliapp
// File: run.go
// Function: Wires a config.Config into a running supervisor.Supervisor:
// worker factories, the Prometheus exporter, the execution tracer, the
// default persister, and OS signal handling, then blocks until the run
// finishes (spec.md §6's execute/supervisor commands share this path).
//
// ============================================================================

package cliapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/metanorma/fractor/internal/config"
	"github.com/metanorma/fractor/internal/grpcsource"
	"github.com/metanorma/fractor/internal/metrics"
	"github.com/metanorma/fractor/internal/persist"
	"github.com/metanorma/fractor/internal/resultcache"
	"github.com/metanorma/fractor/internal/supervisor"
	"github.com/metanorma/fractor/pkg/fractor"
)

// cachingFactory wraps factory so every Worker it produces reads and writes
// through a single *resultcache.Cache shared across the pool (one cache per
// worker class, per buildSupervisorConfig's doc comment).
func cachingFactory(factory fractor.Factory, maxEntries int, ttl time.Duration) fractor.Factory {
	cache := resultcache.New(maxEntries, ttl)
	return func() fractor.Worker {
		return resultcache.Wrap(factory(), cache)
	}
}

// buildSupervisorConfig translates a config.Config into supervisor.Config,
// resolving each pool's worker factory from the registry. When cfg.Cache is
// enabled, every pool's factory is wrapped so each worker it produces is
// cache-aware (spec.md §4.8): one *resultcache.Cache per worker class,
// shared across that class's whole pool, since the fingerprint spec.md
// specifies already folds in worker-class identity implicitly by virtue of
// each class owning its own cache instance here.
func buildSupervisorConfig(cfg config.Config, continuous bool, tracer supervisor.Tracer, sink supervisor.MetricsSink, callbacks []supervisor.WorkCallback) (supervisor.Config, error) {
	pools := make([]supervisor.PoolConfig, 0, len(cfg.Pools))
	for _, p := range cfg.Pools {
		factory, err := resolveFactory(p.WorkerClass)
		if err != nil {
			return supervisor.Config{}, err
		}
		if cfg.Cache.Enabled {
			factory = cachingFactory(factory, cfg.Cache.MaxEntries, cfg.Cache.DefaultTTL)
		}
		pools = append(pools, supervisor.PoolConfig{
			WorkerClass: p.WorkerClass,
			NumWorkers:  p.NumWorkers,
			Factory:     factory,
		})
	}

	return supervisor.Config{
		Pools:           pools,
		ContinuousMode:  continuous,
		Debug:           cfg.Debug,
		Priority:        cfg.Queue.Priority,
		AgingThreshold:  cfg.Queue.AgingThreshold,
		ShutdownTimeout: cfg.ShutdownTimeout,
		EnablePerfMon:   true,
		SampleInterval:  cfg.SampleInterval,
		WorkCallbacks:   callbacks,
		Tracer:          tracer,
		Metrics:         sink,
	}, nil
}

// runOptions bundles the pieces execute and supervisor each assemble
// differently before handing off to runAndReport.
type runOptions struct {
	cfg        config.Config
	continuous bool
	seed       []fractor.Work
	callbacks  []supervisor.WorkCallback
	showStatus bool
}

// runAndReport constructs, starts, and drives a Supervisor to completion,
// returning a non-nil error when the run should exit non-zero (spec.md §6:
// "exit 0 iff no failed results").
func runAndReport(stdout, stderr io.Writer, opts runOptions) error {
	var tracer supervisor.Tracer
	if config.TraceEnabled() {
		tracer = supervisor.NewWriterTracer(stderr)
	}

	var collector *metrics.Collector
	var sink supervisor.MetricsSink
	if opts.cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		sink = collector
	}

	callbacks := opts.callbacks
	if opts.continuous && opts.cfg.WorkSource.Enabled && opts.cfg.WorkSource.Address != "" {
		conn, cb, err := dialWorkSource(opts.cfg)
		if err != nil {
			return fmt.Errorf("cliapp: dial work source: %w", err)
		}
		defer conn.Close()
		callbacks = append(append([]supervisor.WorkCallback{}, callbacks...), cb)
	}

	scfg, err := buildSupervisorConfig(opts.cfg, opts.continuous, tracer, sink, callbacks)
	if err != nil {
		return err
	}

	sup, err := supervisor.New(scfg)
	if err != nil {
		return fmt.Errorf("cliapp: %w", err)
	}

	var persister persist.Persister
	seed := opts.seed
	if opts.cfg.Persistence.Enabled && opts.cfg.Persistence.Path != "" {
		persister = persist.NewJSON(opts.cfg.Persistence.Path)
		restored, err := persister.Load()
		if err != nil {
			return fmt.Errorf("cliapp: load persisted work: %w", err)
		}
		if len(restored) > 0 {
			seed = append(append([]fractor.Work{}, restored...), seed...)
		}
		if err := persister.Save(seed); err != nil {
			return fmt.Errorf("cliapp: persist seed: %w", err)
		}
	}

	for _, w := range seed {
		if opts.cfg.Queue.Priority {
			pw := fractor.NewPriorityWork(w.ID(), w.Input(), fractor.PriorityNormal, time.Now())
			if w.HasTimeout() {
				pw.Work = pw.Work.WithTimeout(w.Timeout())
			}
			if err := sup.EnqueuePriorityWork(pw); err != nil {
				return fmt.Errorf("cliapp: enqueue: %w", err)
			}
			continue
		}
		if err := sup.EnqueueWork(w); err != nil {
			return fmt.Errorf("cliapp: enqueue: %w", err)
		}
	}

	handler := supervisor.NewSignalHandler(sup, stderr)
	handler.Start()
	defer handler.Stop()

	var metricsSrv *http.Server
	if collector != nil && opts.cfg.Metrics.Port > 0 {
		metricsSrv = &http.Server{Addr: metrics.Addr(opts.cfg.Metrics.Port), Handler: collector.Handler()}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			metricsSrv.Shutdown(ctx)
		}()
	}

	if collector != nil {
		stop := bridgeMetrics(sup, collector)
		defer stop()
	}

	runErr := sup.Run()

	st := sup.Status()
	if persister != nil && runErr == nil && !opts.continuous && !handler.Aborted() && st.Failed == 0 {
		if err := persister.Clear(); err != nil {
			slog.Error("persist clear failed", "error", err)
		}
	}

	if opts.showStatus {
		fmt.Fprintf(stdout, "enqueued=%d completed=%d failed=%d\n", st.TotalEnqueued, st.Completed, st.Failed)
	}

	if runErr != nil {
		return runErr
	}
	if handler.Aborted() {
		return fmt.Errorf("cliapp: interrupted")
	}
	if st.Failed > 0 {
		return fmt.Errorf("cliapp: %d of %d items failed", st.Failed, st.TotalEnqueued)
	}
	return nil
}

// dialWorkSource dials cfg.WorkSource.Address and returns a WorkCallback
// that polls it for new Work, alongside the connection so the caller can
// close it once the run ends. Uses the pool's first worker class so the
// remote peer can route work accordingly.
func dialWorkSource(cfg config.Config) (*grpc.ClientConn, supervisor.WorkCallback, error) {
	conn, err := grpc.NewClient(cfg.WorkSource.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	class := ""
	if len(cfg.Pools) > 0 {
		class = cfg.Pools[0].WorkerClass
	}
	maxItems := cfg.WorkSource.MaxItems
	if maxItems <= 0 {
		maxItems = 16
	}
	src := grpcsource.NewSource(conn, class, maxItems, cfg.WorkSource.PollTimeout)
	return conn, src.Callback(), nil
}

// bridgeMetrics periodically copies PerformanceMonitor readings into the
// Prometheus Collector, since perfmon's percentile/throughput accessors have
// no consumer otherwise. Returns a stop func.
func bridgeMetrics(sup *supervisor.Supervisor, collector *metrics.Collector) func() {
	perf := sup.PerfMon()
	if perf == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				avg, max := perf.QueueDepthStats()
				st := sup.Status()
				collector.SetQueueDepth(st.QueueSize, avg, max)
				collector.SetThroughput(perf.Throughput())
				collector.SetWorkerStats(st.Idle+st.Busy, st.Busy)
				enq, deq := perf.EnqueueDequeueCounts()
				collector.SetEnqueueDequeueTotals(enq, deq)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
