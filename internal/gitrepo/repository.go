package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stwalsh4118/diffscope/internal/logging"
)

// Repository describes an opened git repository
type Repository struct {
	Path       string // Repository root path
	Name       string // Repository name (derived from directory name)
	GitDir     string // Path to .git directory (resolved for worktrees)
	IsWorktree bool   // Whether this is a git worktree
}

// Service provides repository access: opening, revision resolution, and
// patch production against go-git
type Service interface {
	Open(path string) (*git.Repository, *Repository, error)
	ResolveCommit(repo *git.Repository, revision string) (*object.Commit, error)
	CommitPatch(ctx context.Context, repo *git.Repository, commit *object.Commit) (*object.Patch, error)
	PatchBetween(ctx context.Context, repo *git.Repository, oldRev, newRev string) (*object.Patch, error)
}

// service implements Service
type service struct {
	logger logging.Logger
}

// NewService creates a new repository service instance
func NewService(logger logging.Logger) (Service, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &service{
		logger: logger.With("component", "gitrepo"),
	}, nil
}

// Open opens the repository at path (or the working directory when path is
// empty) and describes it, resolving worktree .git files to the real git
// directory
func (s *service) Open(path string) (*git.Repository, *Repository, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = wd
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	repo, err := git.PlainOpen(absPath)
	if err != nil {
		s.logger.Error("failed to open repository", "path", absPath, "error", err)
		return nil, nil, fmt.Errorf("failed to open repository at %s: %w", absPath, err)
	}

	meta, err := s.describe(absPath)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("opened repository", "path", meta.Path, "name", meta.Name, "is_worktree", meta.IsWorktree)
	return repo, meta, nil
}

// describe builds Repository metadata for an already validated root path
func (s *service) describe(repoRoot string) (*Repository, error) {
	gitPath := filepath.Join(repoRoot, ".git")

	info, err := os.Stat(gitPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat .git entry: %w", err)
	}

	if info.IsDir() {
		return &Repository{
			Path:   repoRoot,
			Name:   filepath.Base(repoRoot),
			GitDir: gitPath,
		}, nil
	}

	// .git is a file: worktree checkout pointing at the real git directory
	gitDir, err := s.resolveWorktreeGitDir(repoRoot, gitPath)
	if err != nil {
		return nil, err
	}

	return &Repository{
		Path:       repoRoot,
		Name:       filepath.Base(repoRoot),
		GitDir:     gitDir,
		IsWorktree: true,
	}, nil
}

// resolveWorktreeGitDir parses a worktree .git file ("gitdir: <path>") and
// resolves the referenced git directory
func (s *service) resolveWorktreeGitDir(repoRoot, gitFile string) (string, error) {
	content, err := os.ReadFile(gitFile)
	if err != nil {
		return "", fmt.Errorf("failed to read .git file: %w", err)
	}

	contentStr := strings.TrimSpace(string(content))
	if !strings.HasPrefix(contentStr, "gitdir: ") {
		return "", fmt.Errorf("invalid .git file format: expected 'gitdir: <path>' prefix")
	}

	gitDirPath := strings.TrimSpace(strings.TrimPrefix(contentStr, "gitdir: "))
	if gitDirPath == "" {
		return "", fmt.Errorf("empty git directory path in .git file")
	}

	// Worktree .git files often contain relative paths
	if !filepath.IsAbs(gitDirPath) {
		gitDirPath = filepath.Join(repoRoot, gitDirPath)
	}

	resolved, err := filepath.EvalSymlinks(gitDirPath)
	if err != nil {
		s.logger.Debug("failed to resolve symlinks for git directory, using path as-is", "git_dir_path", gitDirPath, "error", err)
		resolved = filepath.Clean(gitDirPath)
	}

	return resolved, nil
}

// ResolveCommit resolves a revision expression (hash, ref name, HEAD~n, ...)
// to its commit object
func (s *service) ResolveCommit(repo *git.Repository, revision string) (*object.Commit, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	if revision == "" {
		revision = "HEAD"
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		s.logger.Error("failed to resolve revision", "revision", revision, "error", err)
		return nil, fmt.Errorf("failed to resolve revision %q: %w", revision, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object for %s: %w", hash, err)
	}

	s.logger.Debug("resolved revision", "revision", revision, "commit", commit.Hash.String())
	return commit, nil
}

// CommitPatch produces the patch for a commit against its first parent, or
// against the empty tree for a root commit
func (s *service) CommitPatch(ctx context.Context, repo *git.Repository, commit *object.Commit) (*object.Patch, error) {
	if commit == nil {
		return nil, fmt.Errorf("commit cannot be nil")
	}

	commitTree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get commit tree: %w", err)
	}

	var parentTree *object.Tree
	parentIter := commit.Parents()
	defer parentIter.Close()

	parent, err := parentIter.Next()
	if err != nil {
		// Root commit: diff against the empty tree
		if err != object.ErrParentNotFound && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to get parent commit: %w", err)
		}
	} else {
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to get parent tree: %w", err)
		}
	}

	return s.treePatch(ctx, parentTree, commitTree)
}

// PatchBetween produces the patch between two revisions
func (s *service) PatchBetween(ctx context.Context, repo *git.Repository, oldRev, newRev string) (*object.Patch, error) {
	oldCommit, err := s.ResolveCommit(repo, oldRev)
	if err != nil {
		return nil, err
	}
	newCommit, err := s.ResolveCommit(repo, newRev)
	if err != nil {
		return nil, err
	}

	oldTree, err := oldCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get old tree: %w", err)
	}
	newTree, err := newCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get new tree: %w", err)
	}

	return s.treePatch(ctx, oldTree, newTree)
}

// treePatch diffs two trees (nil means the empty tree) and generates the patch
func (s *service) treePatch(ctx context.Context, oldTree, newTree *object.Tree) (*object.Patch, error) {
	changes, err := object.DiffTreeWithOptions(ctx, oldTree, newTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate patch: %w", err)
	}

	s.logger.Debug("generated patch", "file_count", len(patch.FilePatches()))
	return patch, nil
}
