// ============================================================================
// Fractor Supervisor - construction and lifecycle
// ============================================================================
//
// Package: internal/supervisor
// File: supervisor.go
// Function: The central coordinator: owns the queue, the worker registry,
// the result aggregator/reporter, and the optional performance monitor; runs
// the main dispatch loop and the ordered shutdown sequence (spec.md §4.5).
//
// ============================================================================

package supervisor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/metanorma/fractor/internal/aggregator"
	"github.com/metanorma/fractor/internal/distribution"
	"github.com/metanorma/fractor/internal/errorreport"
	"github.com/metanorma/fractor/internal/perfmon"
	"github.com/metanorma/fractor/internal/workerhost"
	"github.com/metanorma/fractor/internal/workqueue"
	"github.com/metanorma/fractor/pkg/fractor"
)

var log = slog.Default()

// WorkCallback is polled once per main-loop iteration in continuous mode
// when the queue is empty and at least one worker is idle. It returns any
// newly produced Work (possibly empty).
type WorkCallback func() []fractor.Work

// PoolConfig describes one homogeneous group of workers.
type PoolConfig struct {
	WorkerClass string
	NumWorkers  int
	Factory     fractor.Factory
}

// MetricsSink receives the same terminal-result and queue-wait events
// PerformanceMonitor samples, for callers that want them exposed as
// Prometheus series (spec.md §6); internal/metrics.Collector satisfies this.
// Kept as a narrow interface here rather than importing internal/metrics
// directly, the same way Tracer decouples trace-line formatting.
type MetricsSink interface {
	RecordCompleted(latencySeconds float64)
	RecordFailed(latencySeconds float64)
	RecordWaitTime(waitSeconds float64)
}

// Config is Supervisor construction input.
type Config struct {
	Pools []PoolConfig

	ContinuousMode bool
	Debug          bool

	Priority       bool
	AgingThreshold time.Duration

	ShutdownTimeout time.Duration

	EnablePerfMon  bool
	SampleInterval time.Duration

	WorkCallbacks []WorkCallback
	Tracer        Tracer
	Metrics       MetricsSink

	// OutboundBuffer sizes each WrappedWorker's outbound channel. Zero uses
	// a sane default.
	OutboundBuffer int
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}
	return 10 * time.Second
}

type workerEntry struct {
	host         *workerhost.WrappedWorker
	class        string
	shutdownSent bool
}

type routedMsg struct {
	workerID   string
	msg        workerhost.Message
	hostClosed bool
}

type wakeupKind int

const (
	wakeupWork wakeupKind = iota
	wakeupShutdown
	wakeupTimer
)

// Supervisor is the main dispatch engine. Construct with New, then Run.
type Supervisor struct {
	cfg   Config
	front queueFront

	dist       *distribution.WorkDistributionManager
	aggregator *aggregator.ResultAggregator
	reporter   *errorreport.ErrorReporter
	perf       *perfmon.PerformanceMonitor
	tracer     Tracer

	mu         sync.Mutex
	workers    map[string]*workerEntry
	enqueuedAt map[string]time.Time

	results  chan routedMsg
	wakeupCh chan wakeupKind

	totalEnqueued int64
	completed     int64
	failed        int64

	running       bool
	stopRequested bool
	stopOnce      sync.Once
	stoppedCh     chan struct{}

	timerStop chan struct{}

	shutdownErrMu sync.Mutex
	shutdownErr   *multierror.Error
}

// New validates cfg and constructs a Supervisor. Workers are not started
// until Run is called.
func New(cfg Config) (*Supervisor, error) {
	if len(cfg.Pools) == 0 {
		return nil, fmt.Errorf("supervisor: at least one pool configuration is required")
	}
	totalWorkers := 0
	for _, p := range cfg.Pools {
		if p.NumWorkers <= 0 {
			return nil, fmt.Errorf("supervisor: pool %q must have num_workers > 0", p.WorkerClass)
		}
		if p.Factory == nil {
			return nil, fmt.Errorf("supervisor: pool %q has no worker factory", p.WorkerClass)
		}
		totalWorkers += p.NumWorkers
	}

	var front queueFront
	if cfg.Priority {
		front = priorityFront{q: workqueue.NewPriority(newAgingDuration(cfg.AgingThreshold))}
	} else {
		front = fifoFront{q: workqueue.New()}
	}

	s := &Supervisor{
		cfg:        cfg,
		front:      front,
		dist:       distribution.New(nil),
		aggregator: aggregator.New(),
		reporter:   errorreport.New(),
		tracer:     cfg.Tracer,
		workers:    make(map[string]*workerEntry, totalWorkers),
		enqueuedAt: make(map[string]time.Time),
		results:    make(chan routedMsg, totalWorkers*2+8),
		wakeupCh:   make(chan wakeupKind, 8),
		stoppedCh:  make(chan struct{}),
	}
	if cfg.EnablePerfMon {
		s.perf = perfmon.New(s.QueueSize, cfg.SampleInterval)
	}
	return s, nil
}

// EnqueueWork adds w to a FIFO-mode Supervisor's queue. Returns an error if
// the Supervisor is priority-mode or the queue has been closed.
func (s *Supervisor) EnqueueWork(w fractor.Work) error {
	fq, ok := s.front.(fifoFront)
	if !ok {
		return fmt.Errorf("supervisor: EnqueueWork called on a priority-mode supervisor")
	}
	if !fq.q.Enqueue(w) {
		return fmt.Errorf("supervisor: queue is closed")
	}
	s.bumpEnqueued(w.ID())
	if s.tracer != nil {
		s.tracer.Trace(TraceQueued, w.ID(), map[string]interface{}{"queue_size": s.front.size()})
	}
	s.signalWakeup(wakeupWork)
	return nil
}

// EnqueuePriorityWork adds pw to a priority-mode Supervisor's queue.
func (s *Supervisor) EnqueuePriorityWork(pw fractor.PriorityWork) error {
	pq, ok := s.front.(priorityFront)
	if !ok {
		return fmt.Errorf("supervisor: EnqueuePriorityWork called on a FIFO-mode supervisor")
	}
	if !pq.q.Enqueue(pw) {
		return fmt.Errorf("supervisor: queue is closed")
	}
	s.bumpEnqueued(pw.ID())
	if s.tracer != nil {
		s.tracer.Trace(TraceQueued, pw.ID(), map[string]interface{}{"queue_size": s.front.size()})
	}
	s.signalWakeup(wakeupWork)
	return nil
}

func (s *Supervisor) bumpEnqueued(workID string) {
	s.mu.Lock()
	s.totalEnqueued++
	s.enqueuedAt[workID] = time.Now()
	s.mu.Unlock()
	if s.perf != nil {
		s.perf.RecordEnqueue()
	}
}

// takeEnqueuedAt returns and removes the enqueue timestamp for workID, for
// one-shot queue-wait-time measurement at dispatch.
func (s *Supervisor) takeEnqueuedAt(workID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.enqueuedAt[workID]
	delete(s.enqueuedAt, workID)
	return t, ok
}

func (s *Supervisor) signalWakeup(kind wakeupKind) {
	select {
	case s.wakeupCh <- kind:
	default:
	}
}

// QueueSize reports the current queue depth, for perfmon sampling and
// status reporting.
func (s *Supervisor) QueueSize() int {
	return s.front.size()
}

// Aggregator exposes the result aggregator for listener registration.
func (s *Supervisor) Aggregator() *aggregator.ResultAggregator { return s.aggregator }

// Reporter exposes the error reporter for status/diagnostics endpoints.
func (s *Supervisor) Reporter() *errorreport.ErrorReporter { return s.reporter }

// PerfMon exposes the performance monitor, if EnablePerfMon was set, for
// callers that periodically bridge its percentile/throughput readings into
// a MetricsSink. Returns nil otherwise.
func (s *Supervisor) PerfMon() *perfmon.PerformanceMonitor { return s.perf }

// Status is a point-in-time snapshot for the `-m`/status CLI surface and for
// USR1 signal handling.
type Status struct {
	TotalEnqueued int64
	Completed     int64
	Failed        int64
	QueueSize     int
	Idle          int
	Busy          int
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := s.dist.StatusSummary()
	return Status{
		TotalEnqueued: s.totalEnqueued,
		Completed:     s.completed,
		Failed:        s.failed,
		QueueSize:     s.front.size(),
		Idle:          len(summary.IdleWorkers),
		Busy:          len(summary.BusyWorkers),
	}
}

// startWorkers spawns and registers every configured pool's workers
// concurrently, using an errgroup so a factory in one pool that returns nil
// makes startup fail with an error rather than leave a partially-registered
// supervisor silently running. A panicking factory is not recovered.
func (s *Supervisor) startWorkers() error {
	var eg errgroup.Group
	var mu sync.Mutex
	ids := make([]string, 0)

	for poolIdx, pool := range s.cfg.Pools {
		pool := pool
		for i := 0; i < pool.NumWorkers; i++ {
			workerID := fmt.Sprintf("%s-%d-%d", pool.WorkerClass, poolIdx, i)
			eg.Go(func() error {
				worker := pool.Factory()
				if worker == nil {
					return fmt.Errorf("supervisor: factory for class %q returned nil", pool.WorkerClass)
				}
				buf := s.cfg.OutboundBuffer
				if buf <= 0 {
					buf = 4
				}
				host := workerhost.New(workerID, worker, buf)

				s.mu.Lock()
				s.workers[workerID] = &workerEntry{host: host, class: pool.WorkerClass}
				s.mu.Unlock()

				mu.Lock()
				ids = append(ids, workerID)
				mu.Unlock()

				host.Start()
				go s.forwardFromWorker(workerID, host)
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	s.dist = distribution.New(ids)
	return nil
}

// forwardFromWorker relays one worker's outbound messages into the shared
// results channel the dispatch loop selects on, tagging each with the
// worker's ID. When the worker's outbound channel closes, it emits a
// synthetic hostClosed marker so the dispatch loop can drop a worker whose
// isolated context died without an explicit {shutdown} ack (spec.md §4.3).
func (s *Supervisor) forwardFromWorker(id string, host *workerhost.WrappedWorker) {
	for msg := range host.Outbound() {
		s.results <- routedMsg{workerID: id, msg: msg}
	}
	s.results <- routedMsg{workerID: id, hostClosed: true}
}
