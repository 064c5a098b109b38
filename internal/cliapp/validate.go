// ============================================================================
// Fractor CLI - validate command
// ============================================================================
//
// Package: internal/cliapp
// File: validate.go
// Function: `validate FILE` (spec.md §6). spec.md's "workflow description
// file" refers to a DSL this spec explicitly puts out of scope; the nearest
// thing the core actually owns is the pool/queue/cache/persistence/metrics
// YAML document internal/config loads, so FILE here is that document. A
// config that parses, declares at least one pool, and names only registered
// worker classes is valid; anything else exits 1 with the parse or
// validation error on stderr.
//
// ============================================================================

package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metanorma/fractor/internal/config"
)

func buildValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a Fractor configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fatalf("invalid: %v", err)
			}
			for _, pool := range cfg.Pools {
				if _, err := resolveFactory(pool.WorkerClass); err != nil {
					return fatalf("invalid: %v", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d pool(s))\n", args[0], len(cfg.Pools))
			return nil
		},
	}
}
