package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/diffscope/internal/diff"
)

// newShowCmd creates the show command
func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [revision]",
		Short: "Aggregate a revision's diff and print the result",
		Long: `Aggregate the diff of a revision against its first parent (or against
--base when given) and print the classified file lists, per-file line
counters and totals. With --patch the reconstructed patch text is printed
as well.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			base, _ := cmd.Flags().GetString("base")
			showPatch, _ := cmd.Flags().GetBool("patch")
			return handleShow(cmd, rev, base, showPatch)
		},
	}

	cmd.Flags().String("base", "", "base revision to diff against (defaults to the revision's first parent)")
	cmd.Flags().Bool("patch", false, "print the reconstructed patch text")

	return cmd
}

// handleShow implements the show command logic
func handleShow(cmd *cobra.Command, rev, base string, showPatch bool) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	result, _, err := rt.aggregateRevision(cmd.Context(), rt.repoPath(cmd), base, rev)
	if err != nil {
		return err
	}

	printKind(cmd, "Added", result.Added())
	printKind(cmd, "Deleted", result.Deleted())
	printKind(cmd, "Modified", result.Modified())
	printKind(cmd, "Type changed", result.TypeChanged())

	for _, st := range result.Stats() {
		if st.Binary {
			fmt.Fprintf(cmd.OutOrStdout(), " %s (binary)\n", st.Path)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), " %s (+%d -%d)\n", st.Path, st.Additions, st.Deletions)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d files changed, %d insertions(+), %d deletions(-)\n",
		result.Len(), result.TotalLinesAdded(), result.TotalLinesDeleted())

	if showPatch {
		fmt.Fprint(cmd.OutOrStdout(), result.Patch())
	}

	return nil
}

// printKind prints the file names of one classified sequence
func printKind(cmd *cobra.Command, label string, recs []*diff.ChangeRecord) {
	if len(recs) == 0 {
		return
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", label)
	for _, rec := range recs {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", rec.NewPath)
	}
}
