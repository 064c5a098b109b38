// ============================================================================
// Fractor Supervisor - execution tracer
// ============================================================================
//
// Package: internal/supervisor
// File: trace.go
// Function: Emits the one-line-per-event execution trace format required by
// spec.md §6, gated by FRACTOR_TRACE.
//
// ============================================================================

package supervisor

import (
	"fmt"
	"io"
	"time"
)

// TraceEvent identifies one of the four trace-worthy moments in a Work's
// lifecycle.
type TraceEvent string

const (
	TraceQueued    TraceEvent = "QUEUED"
	TraceAssigned  TraceEvent = "ASSIGNED"
	TraceCompleted TraceEvent = "COMPLETED"
	TraceFailed    TraceEvent = "FAILED"
)

// Tracer receives lifecycle events for optional execution tracing.
type Tracer interface {
	Trace(event TraceEvent, workID string, fields map[string]interface{})
}

// WriterTracer writes the fixed-format trace line to an io.Writer.
// Format: "[TRACE] YYYY-MM-DD HH:MM:SS.mmm [T<thread>] <EVENT> Work:<id> [worker=…] [class=…] [duration=…ms] [queue_size=…]"
type WriterTracer struct {
	w io.Writer
}

// NewWriterTracer builds a Tracer writing to w.
func NewWriterTracer(w io.Writer) *WriterTracer {
	return &WriterTracer{w: w}
}

func (t *WriterTracer) Trace(event TraceEvent, workID string, fields map[string]interface{}) {
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("[TRACE] %s [T%d] %s Work:%s", ts, threadID(), event, workID)
	if worker, ok := fields["worker"]; ok {
		line += fmt.Sprintf(" [worker=%v]", worker)
	}
	if class, ok := fields["class"]; ok {
		line += fmt.Sprintf(" [class=%v]", class)
	}
	if duration, ok := fields["duration"]; ok {
		line += fmt.Sprintf(" [duration=%vms]", duration)
	}
	if qsize, ok := fields["queue_size"]; ok {
		line += fmt.Sprintf(" [queue_size=%v]", qsize)
	}
	fmt.Fprintln(t.w, line)
}

// threadID stands in for the source's OS-thread identifier. Go's
// goroutine-per-task model has no stable thread handle to surface, so this
// reports a constant: the trace format's [T<thread>] slot is kept for
// external tooling compatibility rather than genuine thread identification.
func threadID() int { return 0 }
