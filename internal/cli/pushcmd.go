package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/diffscope/internal/gitrepo"
	"github.com/stwalsh4118/diffscope/internal/push"
)

// newPushCmd creates the push command
func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push [refspec...]",
		Short: "Push refs to a remote and report per-reference failures",
		Long: `Push the given refspecs (or the configured defaults) to a remote.
Transport failures abort the push; references the remote rejects are
reported individually without failing the rest of the push.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, _ := cmd.Flags().GetString("remote")
			return handlePush(cmd, remote, args)
		},
	}

	cmd.Flags().String("remote", "", "remote name (defaults to configured remote)")

	return cmd
}

// handlePush implements the push command logic
func handlePush(cmd *cobra.Command, remote string, refspecs []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	if remote == "" {
		remote = rt.cfg.Push.Remote
	}
	if len(refspecs) == 0 {
		refspecs = rt.cfg.Push.RefSpecs
	}
	if len(refspecs) == 0 {
		return fmt.Errorf("no refspecs given and none configured")
	}

	svc, err := gitrepo.NewService(rt.logger)
	if err != nil {
		return err
	}

	repo, _, err := svc.Open(rt.repoPath(cmd))
	if err != nil {
		return err
	}

	pusher, err := push.NewPusher(rt.logger)
	if err != nil {
		return err
	}

	failures, err := pusher.Push(cmd.Context(), repo, remote, refspecs)
	if err != nil {
		return err
	}

	if len(failures) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d refspec(s) to %s\n", len(refspecs), remote)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Push completed with %d rejected reference(s):\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", f.Ref, f.Message)
	}
	return nil
}
