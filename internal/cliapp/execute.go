// ============================================================================
// Fractor CLI - execute command
// ============================================================================
//
// Package: internal/cliapp
// File: execute.go
// Function: `execute FILE [-i JSON|@file] [-w N] [-c]` (spec.md §6). FILE is
// a full config.Config document (pools, queue, cache, persistence, metrics);
// -i seeds the initial batch of Work, -w overrides the first pool's worker
// count, and -c switches the run to continuous mode.
//
// ============================================================================

package cliapp

import (
	"github.com/spf13/cobra"

	"github.com/metanorma/fractor/internal/config"
)

func buildExecuteCommand() *cobra.Command {
	var input string
	var workers int
	var continuous bool

	cmd := &cobra.Command{
		Use:   "execute FILE",
		Short: "Run a Fractor configuration against a batch of work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fatalf("execute: %v", err)
			}
			if workers > 0 && len(cfg.Pools) > 0 {
				cfg.Pools[0].NumWorkers = workers
			}

			items, err := parseInputFlag(input)
			if err != nil {
				return err
			}
			seed := inputsToWork("item", items)

			return runAndReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), runOptions{
				cfg:        cfg,
				continuous: continuous || cfg.ContinuousMode,
				seed:       seed,
				showStatus: true,
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON array literal or @file of work inputs")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "override the first pool's worker count")
	cmd.Flags().BoolVarP(&continuous, "continuous", "c", false, "run in continuous mode")
	return cmd
}
