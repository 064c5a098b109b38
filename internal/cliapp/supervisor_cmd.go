// ============================================================================
// Fractor CLI - supervisor command
// ============================================================================
//
// Package: internal/cliapp
// File: supervisor_cmd.go
// Function: `supervisor WORKER_CLASS [INPUTS…] [-w N] [-i FILE] [-c] [-m]`
// (spec.md §6): a single-pool run against a named worker class, seeded
// either from positional INPUTS or -i FILE, exiting 0 iff no failed results.
//
// ============================================================================

package cliapp

import (
	"github.com/spf13/cobra"

	"github.com/metanorma/fractor/internal/config"
)

func buildSupervisorCommand() *cobra.Command {
	var workers int
	var inputFile string
	var continuous bool
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "supervisor WORKER_CLASS [INPUTS...]",
		Short: "Run a single-pool supervisor against a worker class",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class := args[0]
			if workers <= 0 {
				workers = 4
			}

			cfg := config.Default()
			cfg.Pools = []config.PoolConfig{{WorkerClass: class, NumWorkers: workers}}
			cfg.Metrics.Enabled = showMetrics

			var items []interface{}
			if inputFile != "" {
				parsed, err := parseInputFlag("@" + inputFile)
				if err != nil {
					return err
				}
				items = parsed
			} else {
				items = parsePositionalInputs(args[1:])
			}
			seed := inputsToWork(class, items)

			return runAndReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), runOptions{
				cfg:        cfg,
				continuous: continuous,
				seed:       seed,
				showStatus: true,
			})
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "number of workers in the pool")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "file of JSON work inputs (array)")
	cmd.Flags().BoolVarP(&continuous, "continuous", "c", false, "run in continuous mode")
	cmd.Flags().BoolVarP(&showMetrics, "metrics", "m", false, "expose Prometheus metrics while running")
	return cmd
}
