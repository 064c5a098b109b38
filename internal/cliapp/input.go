// ============================================================================
// Fractor CLI - work input parsing
// ============================================================================
//
// Package: internal/cliapp
// File: input.go
// Function: Shared -i JSON|@file decoding for execute and supervisor
// (spec.md §6), plus positional INPUTS decoding for supervisor.
//
// ============================================================================

package cliapp

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/metanorma/fractor/pkg/fractor"
)

// parseInputFlag decodes the -i flag's value: either a literal JSON array of
// input values, or @path to a file containing one.
func parseInputFlag(raw string) ([]interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	data := []byte(raw)
	if raw[0] == '@' {
		var err error
		data, err = os.ReadFile(raw[1:])
		if err != nil {
			return nil, fmt.Errorf("cliapp: read input file %s: %w", raw[1:], err)
		}
	}
	var items []interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("cliapp: parse input JSON: %w", err)
	}
	return items, nil
}

// inputsToWork converts a slice of decoded JSON values into Work items with
// sequential IDs.
func inputsToWork(prefix string, items []interface{}) []fractor.Work {
	out := make([]fractor.Work, 0, len(items))
	for i, item := range items {
		id := prefix + "-" + strconv.Itoa(i)
		out = append(out, fractor.NewWork(id, item))
	}
	return out
}

// parsePositionalInputs treats each positional argument as one Work input,
// parsed as JSON when it looks like JSON and taken as a raw string otherwise
// (so `fractor supervisor echo 3 4 5` works without quoting).
func parsePositionalInputs(args []string) []interface{} {
	out := make([]interface{}, 0, len(args))
	for _, a := range args {
		var v interface{}
		if err := json.Unmarshal([]byte(a), &v); err == nil {
			out = append(out, v)
		} else {
			out = append(out, a)
		}
	}
	return out
}
