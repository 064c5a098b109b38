// ============================================================================
// Fractor Supervisor - OS signal handling
// ============================================================================
//
// Package: internal/supervisor
// File: signals.go
// Function: Wires SIGINT/SIGTERM/SIGUSR1 to a running Supervisor, per
// spec.md §4.9. Grounded in cli.go's sigChan := make(chan os.Signal, 1);
// signal.Notify(...); <-sigChan shutdown pattern, generalized into a
// reusable type since Fractor's CLI has several entry points that need it
// (execute, supervisor) rather than cli.go's one inline run loop.
//
// ============================================================================

package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// SignalHandler listens for INT/TERM/USR1 and drives a Supervisor
// accordingly: INT and TERM request a graceful Stop; USR1 writes a Status
// snapshot to statusWriter. In batch mode (s.cfg.ContinuousMode == false),
// INT/TERM are treated as an abort: Stop is still called (to let in-flight
// work finish shutting down cleanly) but Aborted() reports true afterward so
// the caller can choose a non-zero exit code.
type SignalHandler struct {
	sup          *Supervisor
	statusWriter io.Writer
	sigCh        chan os.Signal
	stopCh       chan struct{}
	aborted      bool
}

// NewSignalHandler constructs a handler for sup. statusWriter receives USR1
// status snapshots; if nil, os.Stderr is used.
func NewSignalHandler(sup *Supervisor, statusWriter io.Writer) *SignalHandler {
	if statusWriter == nil {
		statusWriter = os.Stderr
	}
	return &SignalHandler{
		sup:          sup,
		statusWriter: statusWriter,
		sigCh:        make(chan os.Signal, 1),
		stopCh:       make(chan struct{}),
	}
}

// Start begins listening for signals in a background goroutine. Call Stop
// to unregister and release the goroutine.
func (h *SignalHandler) Start() {
	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	go h.loop()
}

func (h *SignalHandler) loop() {
	for {
		select {
		case sig := <-h.sigCh:
			switch sig {
			case syscall.SIGUSR1:
				h.writeStatus()
			case syscall.SIGINT, syscall.SIGTERM:
				if !h.sup.cfg.ContinuousMode {
					h.aborted = true
				}
				log.Info("received shutdown signal", "signal", sig.String())
				h.sup.Stop()
			}
		case <-h.stopCh:
			return
		}
	}
}

func (h *SignalHandler) writeStatus() {
	st := h.sup.Status()
	fmt.Fprintf(h.statusWriter,
		"[STATUS] enqueued=%d completed=%d failed=%d queue=%d idle=%d busy=%d\n",
		st.TotalEnqueued, st.Completed, st.Failed, st.QueueSize, st.Idle, st.Busy)
}

// Aborted reports whether a batch-mode run was interrupted by a signal
// rather than completing normally. Only meaningful after the Supervisor's
// Run has returned.
func (h *SignalHandler) Aborted() bool { return h.aborted }

// Stop unregisters the signal handler and releases its goroutine. Safe to
// call once; calling it twice panics when stopCh is closed a second time
// (not double-guarded here since Fractor's CLI entry points call it exactly
// once per process).
func (h *SignalHandler) Stop() {
	signal.Stop(h.sigCh)
	close(h.stopCh)
}
