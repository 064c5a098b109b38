// ============================================================================
// Fractor Work Queues - Priority queue with optional aging
// ============================================================================
//
// Package: internal/workqueue
// File: priority.go
// Function: PriorityWorkQueue orders fractor.PriorityWork by effective
// priority (spec.md §4.4), breaking ties by arrival order (FIFO).
//
// Aging means an item's ordering key can change simply with the passage of
// time, without anything touching the queue. A classic binary heap's
// invariant only holds between mutations, so re-deriving the heap's notion
// of "best" purely from a comparator captured at insertion time would drift
// as items age past each other. Rather than rebalance a heap against a
// moving key, Pop does a linear scan at call time recomputing effective
// priority with "now" fresh on every candidate — correct at any aging
// threshold, at O(n) per pop instead of O(log n). An unordered slice scanned
// under a single mutex is enough for the same reason: queue depths here are
// dispatch-loop-sized, not unbounded, so the simpler structure wins over
// container/heap's bookkeeping.
//
// ============================================================================

package workqueue

import (
	"sync"
	"time"

	"github.com/metanorma/fractor/pkg/fractor"
)

type pwEntry struct {
	work fractor.PriorityWork
	seq  uint64
}

// PriorityWorkQueue is a thread-safe priority queue of fractor.PriorityWork.
// AgingThreshold of zero disables aging: items keep their assigned priority
// for their whole lifetime in the queue.
type PriorityWorkQueue struct {
	mu             sync.Mutex
	cond           *sync.Cond
	items          []pwEntry
	closed         bool
	nextSeq        uint64
	agingThreshold time.Duration
	enqueued       int64
	dequeued       int64
}

// NewPriority constructs an empty PriorityWorkQueue. agingThreshold <= 0
// disables aging.
func NewPriority(agingThreshold time.Duration) *PriorityWorkQueue {
	q := &PriorityWorkQueue{agingThreshold: agingThreshold}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds work, stamping it with the next arrival sequence number for
// FIFO tie-breaking. Returns false if the queue is closed.
func (q *PriorityWorkQueue) Enqueue(work fractor.PriorityWork) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, pwEntry{work: work, seq: q.nextSeq})
	q.nextSeq++
	q.enqueued++
	q.cond.Signal()
	return true
}

// bestIndexLocked finds the entry with the lowest effective priority value
// (most urgent), breaking ties by the lowest arrival sequence. Caller must
// hold q.mu and q.items must be non-empty.
func (q *PriorityWorkQueue) bestIndexLocked(now time.Time) int {
	best := 0
	bestPrio := q.items[0].work.EffectivePriority(now, q.agingThreshold)
	for i := 1; i < len(q.items); i++ {
		p := q.items[i].work.EffectivePriority(now, q.agingThreshold)
		if p < bestPrio || (p == bestPrio && q.items[i].seq < q.items[best].seq) {
			best = i
			bestPrio = p
		}
	}
	return best
}

// Pop blocks until an item is available or the queue is closed.
func (q *PriorityWorkQueue) Pop() (fractor.PriorityWork, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return fractor.PriorityWork{}, false
	}
	return q.popLocked(time.Now()), true
}

// PopNonBlocking returns immediately: (work, true) if an item was available.
func (q *PriorityWorkQueue) PopNonBlocking() (fractor.PriorityWork, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return fractor.PriorityWork{}, false
	}
	return q.popLocked(time.Now()), true
}

// DequeueBatch pops up to n items, most urgent first, without blocking.
func (q *PriorityWorkQueue) DequeueBatch(n int) []fractor.PriorityWork {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	if n <= 0 {
		return nil
	}
	now := time.Now()
	batch := make([]fractor.PriorityWork, n)
	for i := 0; i < n; i++ {
		batch[i] = q.popLocked(now)
	}
	return batch
}

func (q *PriorityWorkQueue) popLocked(now time.Time) fractor.PriorityWork {
	idx := q.bestIndexLocked(now)
	w := q.items[idx].work
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.dequeued++
	return w
}

// PeekAll returns a snapshot of queued items in current best-first order.
func (q *PriorityWorkQueue) PeekAll() []fractor.PriorityWork {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	remaining := make([]pwEntry, len(q.items))
	copy(remaining, q.items)
	out := make([]fractor.PriorityWork, 0, len(remaining))
	for len(remaining) > 0 {
		best := 0
		bestPrio := remaining[0].work.EffectivePriority(now, q.agingThreshold)
		for i := 1; i < len(remaining); i++ {
			p := remaining[i].work.EffectivePriority(now, q.agingThreshold)
			if p < bestPrio || (p == bestPrio && remaining[i].seq < remaining[best].seq) {
				best = i
				bestPrio = p
			}
		}
		out = append(out, remaining[best].work)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return out
}

// Clear discards all queued items and returns how many were dropped.
func (q *PriorityWorkQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

func (q *PriorityWorkQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *PriorityWorkQueue) Empty() bool {
	return q.Size() == 0
}

func (q *PriorityWorkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

func (q *PriorityWorkQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Size:     len(q.items),
		Enqueued: q.enqueued,
		Dequeued: q.dequeued,
		Closed:   q.closed,
	}
}
