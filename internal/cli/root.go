package cli

import (
	"github.com/spf13/cobra"
)

const (
	version = "0.1.0"
)

// NewRootCmd creates and returns the root command for diffscope
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "diffscope",
		Short: "Aggregate git diffs into structured, queryable results",
		Long: `Diffscope turns a git diff into a structured aggregate: per-file
change records classified by kind (added, deleted, modified, type changed),
line counters, and the reconstructed patch text.

Aggregates can be printed, stored in a local SQLite database for later
querying, and refs can be pushed with per-reference failure reporting.`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("repo", "", "path to the git repository (defaults to configured repository or working directory)")

	// Add subcommands
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newSaveCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newPushCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}
