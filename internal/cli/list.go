package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/diffscope/internal/db"
	"github.com/stwalsh4118/diffscope/internal/gitrepo"
	"github.com/stwalsh4118/diffscope/internal/store"
)

// newListCmd creates the list command
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [id]",
		Short: "List stored aggregates for the repository, or show one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return handleListOne(cmd, args[0])
			}
			return handleList(cmd)
		},
	}
}

// handleListOne prints one stored aggregate by id
func handleListOne(cmd *cobra.Command, id string) error {
	rt, err := newRuntime()
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

	agg, err := storage.GetAggregate(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s..%s  %s\n",
		agg.ID, agg.RepositoryName, agg.OldRevision, agg.NewRevision,
		agg.CreatedAt.Format("2006-01-02 15:04:05"))
	for _, file := range agg.Files {
		if file.IsBinary {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %s (binary)\n", file.Kind, file.NewPath)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %s (+%d -%d)\n", file.Kind, file.NewPath, file.LinesAdded, file.LinesDeleted)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d files changed, %d insertions(+), %d deletions(-)\n",
		agg.FileCount, agg.LinesAdded, agg.LinesDeleted)

	return nil
}

// handleList implements the list command logic
func handleList(cmd *cobra.Command) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	svc, err := gitrepo.NewService(rt.logger)
	if err != nil {
		return err
	}

	_, meta, err := svc.Open(rt.repoPath(cmd))
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

	aggs, err := storage.GetAggregatesByRepository(meta.Path)
	if err != nil {
		return err
	}

	if len(aggs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No stored aggregates for %s\n", filepath.Base(meta.Path))
		return nil
	}

	for _, agg := range aggs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s..%s  %d files  +%d -%d  %s\n",
			agg.ID,
			agg.OldRevision,
			agg.NewRevision,
			agg.FileCount,
			agg.LinesAdded,
			agg.LinesDeleted,
			agg.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}
