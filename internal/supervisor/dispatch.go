// ============================================================================
// Fractor Supervisor - main dispatch loop and shutdown
// ============================================================================
//
// Package: internal/supervisor
// File: dispatch.go
// Function: The select loop described in spec.md §4.5: one shared results
// channel (fan-in from every WrappedWorker's own outbound channel) plus a
// wakeup channel, routed per message kind, with the ordered shutdown
// sequence.
//
// spec.md §4.5 describes the supervisor selecting directly over the dynamic
// set of worker outbound channels. Go has no construct for a runtime-sized
// select without reflect.Select, so every worker instead writes into one
// shared result channel. This supervisor keeps each WrappedWorker's
// outbound channel as its own (per spec.md §4.3's "owns its outbound
// channel"), and adds one small forwarding goroutine per worker
// (forwardFromWorker in supervisor.go) that relays into the shared channel
// the select loop actually waits on — the fan-in lives one layer up instead
// of inside the worker host.
//
// ============================================================================

package supervisor

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/metanorma/fractor/internal/workerhost"
	"github.com/metanorma/fractor/pkg/fractor"
)

// Run starts every configured pool, then drives the dispatch loop until
// batch mode drains or Stop is called. It returns a non-nil error when Run
// was already called, when pool startup fails, and for the defect case in
// spec.md §9: batch mode with no alive workers left and queued work still
// unaccounted for.
func (s *Supervisor) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("supervisor: Run called twice")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.startWorkers(); err != nil {
		return fmt.Errorf("supervisor: startup failed: %w", err)
	}

	if s.perf != nil {
		s.perf.Start()
	}
	if s.cfg.ContinuousMode && len(s.cfg.WorkCallbacks) > 0 {
		s.startTimer()
	}

	var runErr error
	for {
		done, err := s.iterate()
		if err != nil {
			runErr = err
			break
		}
		if done {
			break
		}
	}

	s.shutdown()
	close(s.stoppedCh)
	return runErr
}

// iterate runs one main-loop pass. done=true means Run should return.
func (s *Supervisor) iterate() (done bool, err error) {
	processed, total := s.processedAndTotal()
	stopping := s.isStopRequested()

	if !s.cfg.ContinuousMode && processed >= total {
		return true, nil
	}
	// A Stop() request ends the main loop unconditionally: a graceful stop in
	// continuous mode, an early abort of a batch run with work still queued.
	// shutdown() (run by Run after this loop returns) is what actually tells
	// every alive worker to finish its current item and stop, then drains
	// their acknowledgements. Waiting for alive==0 here would deadlock,
	// since nothing else ever signals a shutdown to a worker.
	if stopping {
		return true, nil
	}

	if s.cfg.ContinuousMode && len(s.cfg.WorkCallbacks) > 0 && s.front.empty() && s.dist.IdleCount() > 0 {
		s.pollCallbacksOnce()
	}

	alive := s.aliveWorkerCount()
	if alive == 0 {
		if stopping {
			return true, nil
		}
		if !s.cfg.ContinuousMode {
			return true, fmt.Errorf("supervisor: no alive workers with %d/%d items processed — inconsistent batch state", processed, total)
		}
		time.Sleep(20 * time.Millisecond)
		return false, nil
	}

	select {
	case <-s.wakeupCh:
		// consuming the signal is enough; termination and callback polling
		// are re-evaluated at the top of the next iteration.
	case rm := <-s.results:
		s.routeMessage(rm)
	}
	return false, nil
}

func (s *Supervisor) processedAndTotal() (processed, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed + s.failed, s.totalEnqueued
}

func (s *Supervisor) aliveWorkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

func (s *Supervisor) isStopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

func (s *Supervisor) pollCallbacksOnce() {
	added := false
	for _, cb := range s.cfg.WorkCallbacks {
		for _, w := range cb() {
			if err := s.enqueueGeneric(w); err == nil {
				added = true
			}
		}
	}
	if added && s.dist.IdleCount() > 0 {
		s.distributeToIdle()
	}
}

func (s *Supervisor) enqueueGeneric(w fractor.Work) error {
	switch f := s.front.(type) {
	case fifoFront:
		if !f.q.Enqueue(w) {
			return fmt.Errorf("supervisor: queue is closed")
		}
	case priorityFront:
		pw := fractor.NewPriorityWork(w.ID(), w.Input(), fractor.PriorityNormal, time.Now())
		pw.Work = w
		if !f.q.Enqueue(pw) {
			return fmt.Errorf("supervisor: queue is closed")
		}
	}
	s.bumpEnqueued(w.ID())
	return nil
}

func (s *Supervisor) distributeToIdle() {
	assignments := s.dist.DistributeToIdleWorkers(s.front.popNonBlockingWork)
	for _, a := range assignments {
		s.recordDispatchWait(a.Work.ID())
		s.sendAssignment(a.WorkerID, a.Work)
	}
}

// recordDispatchWait measures how long a work item sat queued between
// EnqueueWork/EnqueuePriorityWork and this dispatch, feeding
// fractor_wait_time_seconds (spec.md §6) and the dequeue-rate counter.
func (s *Supervisor) recordDispatchWait(workID string) {
	t, ok := s.takeEnqueuedAt(workID)
	if !ok {
		return
	}
	wait := time.Since(t)
	if s.perf != nil {
		s.perf.RecordWaitTime(wait)
		s.perf.RecordDequeue()
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordWaitTime(wait.Seconds())
	}
}

// tryAssignOrShutdown is called whenever a worker becomes a dispatch
// candidate: right after {initialize}, or after it reports a terminal
// {result}/{error}.
func (s *Supervisor) tryAssignOrShutdown(workerID string) {
	work, ok := s.front.popNonBlockingWork()
	if ok {
		if !s.dist.AssignWorkToWorker(workerID, work) {
			log.Warn("worker was not idle at assignment time", "worker", workerID)
			return
		}
		s.recordDispatchWait(work.ID())
		s.sendAssignment(workerID, work)
		if s.tracer != nil {
			s.tracer.Trace(TraceAssigned, work.ID(), map[string]interface{}{"worker": workerID, "queue_size": s.front.size()})
		}
		return
	}

	if !s.cfg.ContinuousMode {
		processed, total := s.processedAndTotal()
		if processed >= total {
			s.sendShutdownTo(workerID)
			return
		}
	}
	s.dist.MarkIdle(workerID)
}

func (s *Supervisor) sendAssignment(workerID string, work fractor.Work) {
	entry, ok := s.workerEntryFor(workerID)
	if !ok {
		return
	}
	if !entry.host.Send(work) {
		log.Warn("send to worker failed, worker likely closing", "worker", workerID)
		s.dist.MarkIdle(workerID)
	}
}

func (s *Supervisor) sendShutdownTo(workerID string) {
	s.mu.Lock()
	entry, ok := s.workers[workerID]
	if ok {
		entry.shutdownSent = true
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	entry.host.SendShutdown()
}

func (s *Supervisor) workerEntryFor(id string) (*workerEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.workers[id]
	return e, ok
}

func (s *Supervisor) routeMessage(rm routedMsg) {
	if rm.hostClosed {
		s.dropWorker(rm.workerID)
		return
	}
	switch rm.msg.Kind {
	case workerhost.MsgInitialize:
		s.tryAssignOrShutdown(rm.workerID)
	case workerhost.MsgResult:
		s.handleTerminal(rm.workerID, rm.msg.Result, false)
	case workerhost.MsgError:
		s.handleTerminal(rm.workerID, rm.msg.Result, true)
	case workerhost.MsgShutdown:
		s.dropWorker(rm.workerID)
	}
}

func (s *Supervisor) handleTerminal(workerID string, wr fractor.WorkResult, isError bool) {
	s.recordTerminal(workerID, wr, isError)
	s.tryAssignOrShutdown(workerID)
}

// recordTerminal does the bookkeeping shared by the normal dispatch path and
// the shutdown drain: latency sample, trace, aggregator/reporter recording.
// It does not attempt to assign further work — callers decide that.
func (s *Supervisor) recordTerminal(workerID string, wr fractor.WorkResult, isError bool) {
	start, hadStart := s.dist.GetWorkStartTime(workerID)
	var elapsed time.Duration
	if hadStart {
		elapsed = time.Since(start)
	}
	if s.perf != nil {
		s.perf.RecordLatency(elapsed)
		s.perf.RecordResult()
	}
	if s.cfg.Metrics != nil {
		if isError {
			s.cfg.Metrics.RecordFailed(elapsed.Seconds())
		} else {
			s.cfg.Metrics.RecordCompleted(elapsed.Seconds())
		}
	}

	s.mu.Lock()
	if isError {
		s.failed++
	} else {
		s.completed++
	}
	s.mu.Unlock()

	if s.tracer != nil {
		event := TraceCompleted
		if isError {
			event = TraceFailed
		}
		s.tracer.Trace(event, wr.Work().ID(), map[string]interface{}{
			"worker":     workerID,
			"duration":   elapsed.Milliseconds(),
			"queue_size": s.front.size(),
		})
	}

	s.aggregator.Record(wr)
	s.reporter.RecordResult(wr)

	if isError && s.cfg.Debug {
		log.Debug("work failed", "work_id", wr.Work().ID(), "category", wr.Category(), "severity", wr.Severity(), "message", wr.ErrorMessage(), "context", wr.Context())
	}
}

func (s *Supervisor) dropWorker(workerID string) {
	s.mu.Lock()
	delete(s.workers, workerID)
	remaining := len(s.workers)
	s.mu.Unlock()
	s.dist.Remove(workerID)
	log.Info("worker removed from registry", "worker", workerID, "remaining", remaining)
}

func (s *Supervisor) startTimer() {
	s.timerStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.signalWakeup(wakeupTimer)
			case <-s.timerStop:
				return
			}
		}
	}()
}

// shutdown runs the ordered sequence from spec.md §4.5: stop perfmon, stop
// the timer, unblock the select loop, signal every alive worker, then wait
// (bounded) for acknowledgement before forcibly clearing the registry.
// Errors encountered signalling any one component are logged and
// aggregated, never aborting the sequence.
func (s *Supervisor) shutdown() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if s.perf != nil {
		s.perf.Stop()
	}
	if s.timerStop != nil {
		close(s.timerStop)
	}

	s.front.close()
	s.signalWakeup(wakeupShutdown)

	s.mu.Lock()
	ids := make([]string, 0, len(s.workers))
	entries := make([]*workerEntry, 0, len(s.workers))
	for id, e := range s.workers {
		if !e.shutdownSent {
			e.shutdownSent = true
			ids = append(ids, id)
			entries = append(entries, e)
		}
	}
	s.mu.Unlock()

	// Workers already signalled via tryAssignOrShutdown (batch mode ran out
	// of work exactly as the last item completed) are skipped here — they
	// are already on their way out and a second SendShutdown would just log
	// spurious noise.
	for i, e := range entries {
		if !e.host.SendShutdown() {
			s.recordShutdownErr(fmt.Errorf("worker %s: shutdown send failed (already closed)", ids[i]))
		}
	}

	deadline := time.After(s.cfg.shutdownTimeout())
	s.mu.Lock()
	remaining := len(s.workers)
	s.mu.Unlock()
	for remaining > 0 {
		select {
		case rm := <-s.results:
			switch {
			case rm.hostClosed, rm.msg.Kind == workerhost.MsgShutdown:
				s.dropWorker(rm.workerID)
				remaining--
			case rm.msg.Kind == workerhost.MsgResult:
				s.recordTerminal(rm.workerID, rm.msg.Result, false)
			case rm.msg.Kind == workerhost.MsgError:
				s.recordTerminal(rm.workerID, rm.msg.Result, true)
			}
		case <-deadline:
			s.mu.Lock()
			for id := range s.workers {
				s.recordShutdownErr(fmt.Errorf("worker %s: did not acknowledge shutdown within %s", id, s.cfg.shutdownTimeout()))
			}
			s.workers = make(map[string]*workerEntry)
			s.mu.Unlock()
			remaining = 0
		}
	}

	if err := s.shutdownErrors(); err != nil {
		log.Error("shutdown completed with errors", "err", err)
	}
}

func (s *Supervisor) recordShutdownErr(err error) {
	s.shutdownErrMu.Lock()
	defer s.shutdownErrMu.Unlock()
	s.shutdownErr = multierror.Append(s.shutdownErr, err)
	log.Warn("shutdown error", "err", err)
}

func (s *Supervisor) shutdownErrors() error {
	s.shutdownErrMu.Lock()
	defer s.shutdownErrMu.Unlock()
	if s.shutdownErr == nil {
		return nil
	}
	return s.shutdownErr
}

// Stop requests a graceful stop (continuous mode) or, in batch mode, an
// early abort. Safe to call multiple times and from any goroutine.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopRequested = true
		s.mu.Unlock()
		s.signalWakeup(wakeupShutdown)
	})
}

// Done returns a channel closed once Run has fully returned, for callers
// that called Run in a separate goroutine.
func (s *Supervisor) Done() <-chan struct{} { return s.stoppedCh }
