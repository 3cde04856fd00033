package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/diffscope/internal/db"
	"github.com/stwalsh4118/diffscope/internal/store"
)

// newSaveCmd creates the save command
func newSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [revision]",
		Short: "Aggregate a revision's diff and store it in the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			base, _ := cmd.Flags().GetString("base")
			return handleSave(cmd, rev, base)
		},
	}

	cmd.Flags().String("base", "", "base revision to diff against (defaults to the revision's first parent)")

	return cmd
}

// handleSave implements the save command logic
func handleSave(cmd *cobra.Command, rev, base string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	result, meta, err := rt.aggregateRevision(cmd.Context(), rt.repoPath(cmd), base, rev)
	if err != nil {
		return err
	}

	database, err := db.Open(rt.cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	storage, err := store.NewAggregateStorage(database, rt.logger)
	if err != nil {
		return err
	}

	oldRev := base
	if oldRev == "" {
		oldRev = rev + "^"
	}

	id, err := storage.SaveAggregate(result, meta, oldRev, rev)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved aggregate %s (%d files, +%d -%d)\n",
		id, result.Len(), result.TotalLinesAdded(), result.TotalLinesDeleted())
	return nil
}
