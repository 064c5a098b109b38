// ============================================================================
// Fractor Work Distribution Manager
// ============================================================================
//
// Package: internal/distribution
// File: distribution.go
// Function: Tracks which workers are idle vs. busy and assigns queued work
// to idle workers (spec.md §4.5's dispatch step, factored out of the main
// supervisor loop).
//
// ============================================================================

package distribution

import (
	"sync"
	"time"

	"github.com/metanorma/fractor/pkg/fractor"
)

// Assignment records one work item handed to one worker.
type Assignment struct {
	WorkerID string
	Work     fractor.Work
}

// Summary is a point-in-time view of idle/busy worker sets for status
// reporting.
type Summary struct {
	IdleWorkers []string
	BusyWorkers []string
}

// WorkDistributionManager owns the idle/busy partition of a worker pool and
// the bookkeeping needed to compute how long a worker has held its current
// item.
type WorkDistributionManager struct {
	mu          sync.Mutex
	idle        map[string]struct{}
	busy        map[string]struct{}
	startTimes  map[string]time.Time
	assignments map[string]fractor.Work
}

// New constructs a manager with every worker ID in workerIDs starting idle.
func New(workerIDs []string) *WorkDistributionManager {
	m := &WorkDistributionManager{
		idle:        make(map[string]struct{}, len(workerIDs)),
		busy:        make(map[string]struct{}),
		startTimes:  make(map[string]time.Time),
		assignments: make(map[string]fractor.Work),
	}
	for _, id := range workerIDs {
		m.idle[id] = struct{}{}
	}
	return m
}

// MarkIdle moves workerID from busy to idle, clearing its current
// assignment. Called once a worker's {result}/{error} for its current item
// has been observed.
func (m *WorkDistributionManager) MarkIdle(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.busy, workerID)
	delete(m.startTimes, workerID)
	delete(m.assignments, workerID)
	m.idle[workerID] = struct{}{}
}

// Remove evicts workerID from every tracked set: it is neither idle nor
// busy afterward. Used when a WrappedWorker's host has terminated (spec.md
// §4.3: "Supervisor detects this and drops it from its registry").
func (m *WorkDistributionManager) Remove(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idle, workerID)
	delete(m.busy, workerID)
	delete(m.startTimes, workerID)
	delete(m.assignments, workerID)
}

// MarkBusy moves workerID from idle to busy without assigning work — used
// when a worker is held back from new dispatch (e.g. during shutdown) but
// has not (yet) been given an item.
func (m *WorkDistributionManager) MarkBusy(workerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idle, workerID)
	m.busy[workerID] = struct{}{}
}

// AssignWorkToWorker binds work to workerID and records the start time.
// Returns false if workerID was not idle.
func (m *WorkDistributionManager) AssignWorkToWorker(workerID string, work fractor.Work) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.idle[workerID]; !ok {
		return false
	}
	delete(m.idle, workerID)
	m.busy[workerID] = struct{}{}
	m.startTimes[workerID] = time.Now()
	m.assignments[workerID] = work
	return true
}

// DistributeToIdleWorkers repeatedly calls pop for each currently idle
// worker (in unspecified order, which may differ from call to call) until either no worker is idle
// or pop reports no work available. It returns every assignment made.
func (m *WorkDistributionManager) DistributeToIdleWorkers(pop func() (fractor.Work, bool)) []Assignment {
	var assignments []Assignment
	for {
		workerID, ok := m.anyIdle()
		if !ok {
			return assignments
		}
		work, ok := pop()
		if !ok {
			return assignments
		}
		if m.AssignWorkToWorker(workerID, work) {
			assignments = append(assignments, Assignment{WorkerID: workerID, Work: work})
		}
	}
}

func (m *WorkDistributionManager) anyIdle() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.idle {
		return id, true
	}
	return "", false
}

// GetWorkStartTime returns and removes the timestamp recorded when
// workerID's current item was assigned, for one-shot latency measurement at
// result time.
func (m *WorkDistributionManager) GetWorkStartTime(workerID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.startTimes[workerID]
	delete(m.startTimes, workerID)
	return t, ok
}

// CurrentWork returns the work item currently assigned to workerID, if any.
func (m *WorkDistributionManager) CurrentWork(workerID string) (fractor.Work, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.assignments[workerID]
	return w, ok
}

// StatusSummary returns the current idle/busy worker ID sets.
func (m *WorkDistributionManager) StatusSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{
		IdleWorkers: make([]string, 0, len(m.idle)),
		BusyWorkers: make([]string, 0, len(m.busy)),
	}
	for id := range m.idle {
		s.IdleWorkers = append(s.IdleWorkers, id)
	}
	for id := range m.busy {
		s.BusyWorkers = append(s.BusyWorkers, id)
	}
	return s
}

// IdleCount and BusyCount give cheap counts without allocating ID slices.
func (m *WorkDistributionManager) IdleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.idle)
}

func (m *WorkDistributionManager) BusyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.busy)
}
