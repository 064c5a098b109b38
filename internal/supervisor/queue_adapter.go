// ============================================================================
// Fractor Supervisor - queue front adapter
// ============================================================================
//
// Package: internal/supervisor
// File: queue_adapter.go
// Function: Lets the dispatch loop pop a plain fractor.Work regardless of
// whether the configured discipline is FIFO or priority-ordered, without
// the rest of the supervisor caring which.
//
// ============================================================================

package supervisor

import (
	"time"

	"github.com/metanorma/fractor/internal/workqueue"
	"github.com/metanorma/fractor/pkg/fractor"
)

// queueFront is the pop-side view the dispatch loop needs. Enqueue is
// intentionally excluded: FIFO and priority queues take different inputs
// (fractor.Work vs fractor.PriorityWork), so producers call the concrete
// Supervisor method (EnqueueWork / EnqueuePriorityWork) that matches the
// configured discipline directly.
type queueFront interface {
	popNonBlockingWork() (fractor.Work, bool)
	size() int
	empty() bool
	close()
}

type fifoFront struct {
	q *workqueue.WorkQueue
}

func (f fifoFront) popNonBlockingWork() (fractor.Work, bool) { return f.q.PopNonBlocking() }
func (f fifoFront) size() int                                { return f.q.Size() }
func (f fifoFront) empty() bool                               { return f.q.Empty() }
func (f fifoFront) close()                                    { f.q.Close() }

type priorityFront struct {
	q *workqueue.PriorityWorkQueue
}

func (f priorityFront) popNonBlockingWork() (fractor.Work, bool) {
	pw, ok := f.q.PopNonBlocking()
	if !ok {
		return fractor.Work{}, false
	}
	return pw.Work, true
}
func (f priorityFront) size() int  { return f.q.Size() }
func (f priorityFront) empty() bool { return f.q.Empty() }
func (f priorityFront) close()      { f.q.Close() }

// newAgingDuration is a tiny helper kept here (rather than inline at
// construction) so Config's zero value reads as "aging disabled" without a
// magic number scattered at the call site.
func newAgingDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
