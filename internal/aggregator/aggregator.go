// ============================================================================
// Fractor Result Aggregator
// ============================================================================
//
// Package: internal/aggregator
// File: aggregator.go
// Function: Collects WorkResult values in arrival order, split into
// successes and failures, and fans each one out to registered listeners
// synchronously (spec.md §4.7).
//
// ============================================================================

package aggregator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/metanorma/fractor/pkg/fractor"
)

var log = slog.Default()

// Listener is notified of every recorded WorkResult, success or failure.
type Listener func(fractor.WorkResult)

// ResultAggregator accumulates WorkResult values and notifies listeners.
type ResultAggregator struct {
	mu        sync.Mutex
	successes []fractor.WorkResult
	failures  []fractor.WorkResult
	listeners []Listener
}

// New constructs an empty ResultAggregator.
func New() *ResultAggregator {
	return &ResultAggregator{}
}

// RegisterListener adds l to the set notified on every Record call. Listener
// order is preserved; a later listener never observes a mutation made by an
// earlier one since WorkResult is an immutable value.
func (a *ResultAggregator) RegisterListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Record files wr into the success or failure list and notifies listeners
// synchronously, in registration order, before returning.
func (a *ResultAggregator) Record(wr fractor.WorkResult) {
	a.mu.Lock()
	if wr.Success() {
		a.successes = append(a.successes, wr)
	} else {
		a.failures = append(a.failures, wr)
	}
	listeners := make([]Listener, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	a.notify(wr, listeners)
}

// notify invokes each listener, recovering from a panic in any one of them
// so a misbehaving listener cannot prevent the rest from observing wr or
// unwind the caller's goroutine. Panics and nothing else are aggregated with
// multierror and logged; listeners that simply return an error have no
// return channel by design (Listener is a notification sink, not a pipeline
// stage) so only panics are surfaced here.
func (a *ResultAggregator) notify(wr fractor.WorkResult, listeners []Listener) {
	var merr *multierror.Error
	for i, l := range listeners {
		func(idx int, listener Listener) {
			defer func() {
				if r := recover(); r != nil {
					merr = multierror.Append(merr, fmt.Errorf("listener[%d]: panic: %v", idx, r))
				}
			}()
			listener(wr)
		}(i, l)
	}
	if merr != nil {
		log.Error("aggregator listener failure", "work_id", wr.Work().ID(), "err", merr)
	}
}

// Successes returns a snapshot copy of all recorded successful results, in
// arrival order.
func (a *ResultAggregator) Successes() []fractor.WorkResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]fractor.WorkResult, len(a.successes))
	copy(out, a.successes)
	return out
}

// Failures returns a snapshot copy of all recorded failed results, in
// arrival order.
func (a *ResultAggregator) Failures() []fractor.WorkResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]fractor.WorkResult, len(a.failures))
	copy(out, a.failures)
	return out
}

// Counts returns the number of successes and failures recorded so far.
func (a *ResultAggregator) Counts() (successCount, failureCount int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.successes), len(a.failures)
}

// Clear discards all recorded results. Listeners remain registered.
func (a *ResultAggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successes = nil
	a.failures = nil
}
