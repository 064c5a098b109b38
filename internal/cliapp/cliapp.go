// ============================================================================
// Fractor CLI - root command tree
// ============================================================================
//
// Package: internal/cliapp
// File: cliapp.go
// Function: The CLI surface spec.md §6 specifies as a boundary the core must
// support: validate, visualize, execute, supervisor, plus the global -v/-d
// flags: one root *cobra.Command, one constructor function per subcommand,
// package-level flag variables bound with persistent flags.
//
// ============================================================================

package cliapp

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/metanorma/fractor/internal/config"
)

var (
	verbose bool
	debug   bool
)

// BuildCLI constructs the fractor root command and its subcommand tree.
func BuildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:   "fractor",
		Short: "Dispatch work across a pool of isolated workers",
		Long: "Fractor runs user-defined work items across a pool of isolated\n" +
			"worker processes under a central supervisor, collecting results\n" +
			"and errors as they complete.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging")

	root.AddCommand(
		buildValidateCommand(),
		buildVisualizeCommand(),
		buildExecuteCommand(),
		buildSupervisorCommand(),
	)
	return root
}

// configureLogging sets the default slog level from the global flags and
// FRACTOR_LOG_LEVEL (spec.md §6), preferring the more verbose of the two,
// and its destination from FRACTOR_LOG_OUTPUT: "stdout", "stderr" (the
// default), or a file path opened for appending. A path that cannot be
// opened leaves logging on stderr.
func configureLogging() {
	level := slog.LevelInfo
	switch config.LogLevel() {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR", "FATAL":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	} else if verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}

	out := os.Stderr
	switch dest := config.LogOutput(); dest {
	case "stderr":
	case "stdout":
		out = os.Stdout
	default:
		if f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func fatalf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
