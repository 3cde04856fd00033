package push

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp"
	"github.com/stwalsh4118/diffscope/internal/logging"
)

func strPtr(s string) *string {
	return &s
}

func TestCollect_FiltersFailures(t *testing.T) {
	updates := []RefUpdate{
		{Ref: strPtr("refs/heads/a"), Message: nil},
		{Ref: strPtr("refs/heads/b"), Message: strPtr("rejected")},
	}

	failures, err := Collect(updates)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Ref != "refs/heads/b" || failures[0].Message != "rejected" {
		t.Errorf("unexpected failure %+v", failures[0])
	}
}

func TestCollect_AllSuccessful(t *testing.T) {
	updates := []RefUpdate{
		{Ref: strPtr("refs/heads/a")},
		{Ref: strPtr("refs/heads/b")},
	}

	failures, err := Collect(updates)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("expected no failures, got %v", failures)
	}
}

func TestCollect_MissingRefIsFatal(t *testing.T) {
	updates := []RefUpdate{
		{Ref: nil, Message: strPtr("rejected")},
	}

	if _, err := Collect(updates); !errors.Is(err, ErrMissingRef) {
		t.Fatalf("expected ErrMissingRef, got %v", err)
	}
}

func TestFromReportStatus(t *testing.T) {
	rs := &packp.ReportStatus{
		CommandStatuses: []*packp.CommandStatus{
			{ReferenceName: plumbing.ReferenceName("refs/heads/a"), Status: "ok"},
			{ReferenceName: plumbing.ReferenceName("refs/heads/b"), Status: "non-fast-forward"},
		},
	}

	failures, err := Collect(FromReportStatus(rs))
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Ref != "refs/heads/b" || failures[0].Message != "non-fast-forward" {
		t.Errorf("unexpected failure %+v", failures[0])
	}
}

func TestFromReportStatus_Nil(t *testing.T) {
	if updates := FromReportStatus(nil); updates != nil {
		t.Errorf("expected nil updates, got %v", updates)
	}
}

func TestNewPusher_NilLogger(t *testing.T) {
	if _, err := NewPusher(nil); err == nil {
		t.Fatal("expected error when logger is nil")
	}
}

// commitFile writes one file, stages it and commits
func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("failed to add %s: %v", name, err)
	}
	if _, err := worktree.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  time.Now(),
		},
	}); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func TestPush_RejectedRefReturnsDataNotError(t *testing.T) {
	base := t.TempDir()

	bareDir := filepath.Join(base, "remote.git")
	if _, err := git.PlainInit(bareDir, true); err != nil {
		t.Fatalf("failed to init bare remote: %v", err)
	}

	seedDir := filepath.Join(base, "seed")
	seed, err := git.PlainInit(seedDir, false)
	if err != nil {
		t.Fatalf("failed to init seed repo: %v", err)
	}
	if _, err := seed.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{bareDir},
	}); err != nil {
		t.Fatalf("failed to create remote: %v", err)
	}
	commitFile(t, seed, seedDir, "a.txt", "one\n")
	if err := seed.Push(&git.PushOptions{RemoteName: "origin"}); err != nil {
		t.Fatalf("failed to seed remote: %v", err)
	}

	behindDir := filepath.Join(base, "behind")
	behind, err := git.PlainClone(behindDir, false, &git.CloneOptions{URL: bareDir})
	if err != nil {
		t.Fatalf("failed to clone: %v", err)
	}

	// Advance the remote from the seed repo so the clone is behind
	commitFile(t, seed, seedDir, "a.txt", "two\n")
	if err := seed.Push(&git.PushOptions{RemoteName: "origin"}); err != nil {
		t.Fatalf("failed to advance remote: %v", err)
	}
	if err := behind.Fetch(&git.FetchOptions{RemoteName: "origin"}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		t.Fatalf("failed to fetch: %v", err)
	}

	// Diverge the clone and push without merging
	commitFile(t, behind, behindDir, "a.txt", "three\n")

	pusher, err := NewPusher(logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("failed to create pusher: %v", err)
	}

	failures, err := pusher.Push(context.Background(), behind, "origin",
		[]string{"refs/heads/master:refs/heads/master"})
	if err != nil {
		t.Fatalf("expected rejection as data, got error: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 rejected reference, got %d", len(failures))
	}
	if failures[0].Ref != "refs/heads/master" {
		t.Errorf("unexpected rejected ref %q", failures[0].Ref)
	}
	if !strings.Contains(failures[0].Message, "non-fast-forward") {
		t.Errorf("unexpected rejection message %q", failures[0].Message)
	}
}

func TestRejectionFromError(t *testing.T) {
	updates := rejectionFromError(errors.New("non-fast-forward update: refs/heads/main"))
	if len(updates) != 1 || *updates[0].Ref != "refs/heads/main" || *updates[0].Message != "non-fast-forward" {
		t.Errorf("unexpected updates %+v", updates)
	}

	updates = rejectionFromError(errors.New("command error on refs/heads/main: pre-receive hook declined"))
	if len(updates) != 1 || *updates[0].Ref != "refs/heads/main" || *updates[0].Message != "pre-receive hook declined" {
		t.Errorf("unexpected updates %+v", updates)
	}

	if updates := rejectionFromError(errors.New("unpack error: index-pack failed")); updates != nil {
		t.Errorf("expected nil for unpack error, got %+v", updates)
	}
}

func TestPush_InvalidRefspec(t *testing.T) {
	repoPath := filepath.Join(t.TempDir(), "test-repo")
	repo, err := git.PlainInit(repoPath, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	pusher, err := NewPusher(logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("failed to create pusher: %v", err)
	}

	if _, err := pusher.Push(context.Background(), repo, "origin", []string{"not a refspec"}); err == nil {
		t.Fatal("expected error for invalid refspec")
	}
}

func TestPush_NilRepository(t *testing.T) {
	pusher, err := NewPusher(logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("failed to create pusher: %v", err)
	}

	if _, err := pusher.Push(context.Background(), nil, "origin", nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}
