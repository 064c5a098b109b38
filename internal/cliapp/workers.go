// ============================================================================
// Fractor CLI - built-in worker registration
// ============================================================================
//
// Package: internal/cliapp
// File: workers.go
// Function: Fractor is a library; the CLI ships no example application, so
// the only worker class it can always resolve is "echo" (returns its input
// unchanged, useful for smoke-testing a pool/queue configuration end to
// end). Any other WORKER_CLASS must already be registered via
// pkg/fractor.Register by the process embedding this CLI, typically from an
// init() function alongside the concrete Worker type.
//
// ============================================================================

package cliapp

import (
	"fmt"

	"github.com/metanorma/fractor/pkg/fractor"
)

const echoWorkerClass = "echo"

func init() {
	fractor.Register(echoWorkerClass, func() fractor.Worker {
		return fractor.WorkerFunc(func(w fractor.Work) (interface{}, error) {
			return w.Input(), nil
		})
	})
}

// resolveFactory looks up class in the worker registry, producing an error
// that names the one built-in fallback when the lookup misses.
func resolveFactory(class string) (fractor.Factory, error) {
	f, ok := fractor.Lookup(class)
	if !ok {
		return nil, fmt.Errorf("cliapp: no worker registered for class %q (built-in: %q)", class, echoWorkerClass)
	}
	return f, nil
}
