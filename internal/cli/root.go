// Package cli wires the examclient commands.
package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "examclient",
	Short: "Exam and practice session client",
	Long: `examclient runs timed proctored exams and untimed practice sessions
against the exam API, and serves a loopback bridge that the UI shell drives.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "examclient %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
