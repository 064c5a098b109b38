// ============================================================================
// Fractor WrappedWorker - Isolated Execution Host
// ============================================================================
//
// Package: internal/workerhost
// File: host.go
// Function: Hosts exactly one fractor.Worker in an isolated goroutine,
// owning its inbound/outbound channels and enforcing per-item timeouts.
//
// How it works (spec.md §4.3):
//   Each WrappedWorker runs one goroutine looping:
//     1. Receive Work or a shutdown control message (blocking wait)
//     2. Compute effective_timeout = work.timeout ?? worker.timeout ?? ∞
//     3. Record start time, invoke worker.Process(work), measure elapsed
//     4. If elapsed > effective_timeout, reclassify as a timeout failure
//     5. Emit {result} or {error} on outbound
//     6. Loop, or terminate on {shutdown}
//
// Timeout enforcement is post-hoc only (spec.md §9 Open Questions): the host
// cannot actually abort a long-running, uncooperative Process call. Workers
// that implement ContextAware get a best-effort cancellation signal; plain
// Workers are simply timed and reclassified after the call returns.
//
// Failure semantics: any error returned by Process (or captured via a
// recover()) becomes an {error} message; the worker returns to idle-ready.
// Only a panic in the host scaffolding itself (a closed outbound channel)
// terminates the worker — the Supervisor observes this as a closed channel
// and drops the worker from its registry.
//
// ============================================================================

package workerhost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/metanorma/fractor/pkg/fractor"
)

// MessageKind identifies the kind of message flowing on a WrappedWorker's
// outbound channel.
type MessageKind int

const (
	MsgInitialize MessageKind = iota
	MsgResult
	MsgError
	MsgShutdown
)

// Message is what a WrappedWorker emits on its outbound channel.
type Message struct {
	Kind   MessageKind
	Result fractor.WorkResult
}

// ContextAware may be implemented by a fractor.Worker that wants a
// best-effort cancellation signal when its item's effective timeout elapses.
// Implementing it does not change post-hoc classification: an item that
// overruns is still reported as a timeout failure even if ProcessContext
// returns promptly after ctx is cancelled.
type ContextAware interface {
	ProcessContext(ctx context.Context, w fractor.Work) (interface{}, error)
}

type inboundMsg struct {
	work     fractor.Work
	shutdown bool
}

// WrappedWorker hosts one Worker instance in its own goroutine.
type WrappedWorker struct {
	id     string
	worker fractor.Worker

	inbound  chan inboundMsg
	outbound chan Message

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// New creates a WrappedWorker around worker. bufferSize sizes the outbound
// channel so a slow supervisor select loop does not stall the worker on its
// own result delivery.
func New(id string, worker fractor.Worker, bufferSize int) *WrappedWorker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &WrappedWorker{
		id:       id,
		worker:   worker,
		inbound:  make(chan inboundMsg, 1),
		outbound: make(chan Message, bufferSize),
		done:     make(chan struct{}),
	}
}

// ID returns this worker's registry identifier.
func (w *WrappedWorker) ID() string { return w.id }

// Outbound exposes the channel the Supervisor selects on.
func (w *WrappedWorker) Outbound() <-chan Message { return w.outbound }

// Start launches the isolated execution context. It emits {initialize} then
// blocks on inbound.
func (w *WrappedWorker) Start() {
	go w.run()
}

func (w *WrappedWorker) run() {
	defer close(w.outbound)
	defer close(w.done)

	w.outbound <- Message{Kind: MsgInitialize}

	for msg := range w.inbound {
		if msg.shutdown {
			w.outbound <- Message{Kind: MsgShutdown}
			return
		}
		w.outbound <- w.executeOne(msg.work)
	}
}

// executeOne runs a single Work item to completion and classifies the
// outcome, per spec.md §4.3 steps 2-4.
func (w *WrappedWorker) executeOne(work fractor.Work) Message {
	effectiveTimeout := work.Timeout()
	if effectiveTimeout <= 0 {
		if t, ok := w.worker.(fractor.Timeoutable); ok {
			effectiveTimeout = t.DefaultTimeout()
		}
	}

	start := time.Now()
	result, err := w.invoke(work, effectiveTimeout)
	elapsed := time.Since(start)

	if effectiveTimeout > 0 && elapsed > effectiveTimeout {
		wr := fractor.NewFailure(work, fmt.Errorf("worker %s: execution exceeded timeout %s (took %s)", w.id, effectiveTimeout, elapsed), fractor.CategoryTimeout, fractor.SeverityError)
		return Message{Kind: MsgError, Result: wr}
	}

	if err != nil {
		wr := fractor.NewFailure(work, err, "", "")
		return Message{Kind: MsgError, Result: wr}
	}

	if wr, ok := result.(fractor.WorkResult); ok {
		if wr.Success() {
			return Message{Kind: MsgResult, Result: wr}
		}
		return Message{Kind: MsgError, Result: wr}
	}

	return Message{Kind: MsgResult, Result: fractor.NewSuccess(work, result)}
}

// invoke calls the Worker, recovering from a user-code panic and reporting
// it as an ordinary failure (spec.md §4.3: "any exception from process is
// caught and emitted as {error}").
func (w *WrappedWorker) invoke(work fractor.Work, timeout time.Duration) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %s: panic: %v", w.id, r)
		}
	}()

	if ca, ok := w.worker.(ContextAware); ok {
		ctx := context.Background()
		var cancel context.CancelFunc
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return ca.ProcessContext(ctx, work)
	}
	return w.worker.Process(work)
}

// Send enqueues a Work item to this worker's inbound channel. Returns false
// if the worker has been closed.
func (w *WrappedWorker) Send(work fractor.Work) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.inbound <- inboundMsg{work: work}:
		return true
	default:
		return false
	}
}

// SendShutdown requests a graceful stop: the worker finishes any item it is
// not currently holding (it holds none, by IdleSet invariant) and emits
// {shutdown}.
func (w *WrappedWorker) SendShutdown() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.closed = true
	select {
	case w.inbound <- inboundMsg{shutdown: true}:
		return true
	default:
		return false
	}
}

// Close forcibly terminates the worker. Idempotent.
func (w *WrappedWorker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.inbound)
}

// Closed reports whether the worker has stopped accepting new work. It must
// not block indefinitely: a bounded probe backs off to "true" only once the
// run loop has actually exited (via done); if the probe itself cannot
// observe termination within the bound it reports "blocked-alive" via a
// false return, per spec.md §4.3.
func (w *WrappedWorker) Closed() bool {
	select {
	case <-w.done:
		return true
	case <-time.After(10 * time.Millisecond):
		return false
	}
}
