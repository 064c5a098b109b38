// ============================================================================
// Fractor Core Types - Worker contract
// ============================================================================
//
// Package: pkg/fractor
// File: worker.go
// Purpose: The single-method interface user code implements (spec.md §4.2).
//
// A Worker is constructed once per WrappedWorker and is not required to be
// safe for concurrent invocation — the host (internal/workerhost) guarantees
// single-threaded use.
//
// ============================================================================

package fractor

import "time"

// Worker is user code that knows how to process one Work item. It may
// return either a WorkResult (to control success/failure explicitly) or any
// other value, which the host wraps into a successful WorkResult.
type Worker interface {
	Process(w Work) (interface{}, error)
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(w Work) (interface{}, error)

func (f WorkerFunc) Process(w Work) (interface{}, error) { return f(w) }

// Named is implemented by Workers that report a name. Optional. The cache
// wrapper in internal/resultcache passes it through; the worker host, traces
// and error context do not read it and identify workers by their ID only.
type Named interface {
	Name() string
}

// Timeoutable is implemented by Workers that carry their own default
// timeout (spec.md §4.3: effective_timeout = work.timeout ?? worker.timeout).
type Timeoutable interface {
	DefaultTimeout() time.Duration
}

// Factory constructs a Worker by name, for the CLI path (spec.md §9:
// "concrete worker types register a factory keyed by name").
type Factory func() Worker

var registry = make(map[string]Factory)

// Register associates a worker-class name with a Factory. Intended to be
// called from init() in packages that define concrete Worker types.
func Register(class string, f Factory) {
	registry[class] = f
}

// Lookup returns the Factory registered for class, if any.
func Lookup(class string) (Factory, bool) {
	f, ok := registry[class]
	return f, ok
}
