// ============================================================================
// Fractor Persister contract and default JSON implementation
// ============================================================================
//
// Package: internal/persist
// File: persist.go
// Function: The pluggable Persister contract (spec.md §6) and its default,
// newline-free JSON array implementation.
//
// ============================================================================

package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/metanorma/fractor/pkg/fractor"
)

// Persister is the pluggable contract for saving/restoring queued Work
// between process runs. Implementations may choose any wire format; the
// core only depends on this interface.
type Persister interface {
	Save(items []fractor.Work) error
	Load() ([]fractor.Work, error)
	Clear() error
}

// record is the on-disk shape of one persisted Work item.
type record struct {
	Class   string          `json:"_class"`
	Input   json.RawMessage `json:"_input"`
	Timeout string          `json:"_timeout,omitempty"`
}

// JSONPersister is the default Persister: a single newline-free JSON array
// written atomically via a temp file plus rename.
type JSONPersister struct {
	mu   sync.Mutex
	path string
}

// NewJSON constructs a JSONPersister writing to path.
func NewJSON(path string) *JSONPersister {
	return &JSONPersister{path: path}
}

// Save writes items as a single JSON array, replacing any prior contents.
// The write is atomic: it writes to a sibling temp file first, then renames
// over the target, so a crash mid-write never leaves a truncated file.
func (p *JSONPersister) Save(items []fractor.Work) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	records := make([]record, 0, len(items))
	for _, w := range items {
		raw, err := json.Marshal(w.Input())
		if err != nil {
			return fmt.Errorf("persist: marshal work %q input: %w", w.ID(), err)
		}
		rec := record{Class: "Work", Input: raw}
		if w.HasTimeout() {
			rec.Timeout = w.Timeout().String()
		}
		records = append(records, rec)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("persist: marshal records: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persist: write temp file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persist: rename temp file: %w", err)
	}
	return nil
}

// Load reads the persisted array back into Work items. A missing file is
// not an error: it returns (nil, nil), matching an empty/never-saved store.
// Synthetic sequential IDs are assigned on load since the default wire
// format does not persist the original work ID (only input and timeout are
// part of the round-trip contract per spec.md §8).
func (p *JSONPersister) Load() ([]fractor.Work, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read file: %w", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("persist: unmarshal records: %w", err)
	}

	items := make([]fractor.Work, 0, len(records))
	for i, rec := range records {
		var input interface{}
		if err := json.Unmarshal(rec.Input, &input); err != nil {
			return nil, fmt.Errorf("persist: unmarshal input %d: %w", i, err)
		}
		w := fractor.NewWork(strconv.Itoa(i), input)
		if rec.Timeout != "" {
			d, err := time.ParseDuration(rec.Timeout)
			if err != nil {
				return nil, fmt.Errorf("persist: parse timeout %d: %w", i, err)
			}
			w = w.WithTimeout(d)
		}
		items = append(items, w)
	}
	return items, nil
}

// Clear removes the persisted file, if present. Removing an already-absent
// file is not an error.
func (p *JSONPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("persist: clear: %w", err)
	}
	return nil
}

// EnsureDir creates the parent directory of path if it does not exist, for
// callers that construct a JSONPersister against a fresh data directory.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
