package cli

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/diffscope/internal/config"
	"github.com/stwalsh4118/diffscope/internal/diff"
	"github.com/stwalsh4118/diffscope/internal/gitrepo"
	"github.com/stwalsh4118/diffscope/internal/logging"
)

// runtime bundles what every command needs after startup
type runtime struct {
	cfg    *config.Config
	logger logging.Logger
}

// newRuntime loads configuration and builds the logger
func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Repository != "" {
		if err := config.ValidatePath(cfg.Repository); err != nil {
			return nil, fmt.Errorf("invalid configured repository: %w", err)
		}
	}

	logger, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger}, nil
}

// repoPath resolves the repository path: --repo flag, then configured
// repository, then the working directory (empty string)
func (rt *runtime) repoPath(cmd *cobra.Command) string {
	if flag, _ := cmd.Flags().GetString("repo"); flag != "" {
		return flag
	}
	return rt.cfg.Repository
}

// aggregateRevision streams the patch for a revision (against base when
// given, otherwise against the revision's first parent) through an
// aggregator and returns the finalized result
func (rt *runtime) aggregateRevision(ctx context.Context, repoPath, base, rev string) (*diff.Result, *gitrepo.Repository, error) {
	svc, err := gitrepo.NewService(rt.logger)
	if err != nil {
		return nil, nil, err
	}

	repo, meta, err := svc.Open(repoPath)
	if err != nil {
		return nil, nil, err
	}

	patch, err := rt.buildPatch(ctx, svc, repo, base, rev)
	if err != nil {
		return nil, nil, err
	}

	agg, err := diff.NewAggregator(rt.logger)
	if err != nil {
		return nil, nil, err
	}

	if err := diff.StreamPatch(ctx, patch, agg); err != nil {
		return nil, nil, fmt.Errorf("failed to aggregate diff: %w", err)
	}

	result, err := agg.Finalize()
	if err != nil {
		return nil, nil, err
	}

	return result, meta, nil
}

// buildPatch produces the go-git patch for the requested revision pair
func (rt *runtime) buildPatch(ctx context.Context, svc gitrepo.Service, repo *git.Repository, base, rev string) (*object.Patch, error) {
	if base != "" {
		return svc.PatchBetween(ctx, repo, base, rev)
	}

	commit, err := svc.ResolveCommit(repo, rev)
	if err != nil {
		return nil, err
	}
	return svc.CommitPatch(ctx, repo, commit)
}
