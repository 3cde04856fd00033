package push

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp"
	"github.com/stwalsh4118/diffscope/internal/logging"
)

// ErrMissingRef indicates the transport reported a status entry without a
// reference name, which violates the transport contract
var ErrMissingRef = errors.New("push status entry has no reference name")

// RefUpdate is one per-reference status entry from the transport. A nil
// Message means the reference was updated successfully.
type RefUpdate struct {
	Ref     *string
	Message *string
}

// RefFailure is a reference the remote rejected, with the remote's message
type RefFailure struct {
	Ref     string
	Message string
}

// Collect filters a transport status stream down to the failed references.
// Entries without a message denote success and are dropped; an entry with no
// reference name is a fatal transport-contract violation.
func Collect(updates []RefUpdate) ([]RefFailure, error) {
	var failures []RefFailure
	for _, u := range updates {
		if u.Ref == nil {
			return nil, ErrMissingRef
		}
		if u.Message == nil {
			continue
		}
		failures = append(failures, RefFailure{Ref: *u.Ref, Message: *u.Message})
	}
	return failures, nil
}

// FromReportStatus converts a git report-status response into the update
// stream consumed by Collect. The "ok" status marks success; anything else
// is the remote's rejection message.
func FromReportStatus(rs *packp.ReportStatus) []RefUpdate {
	if rs == nil {
		return nil
	}

	updates := make([]RefUpdate, 0, len(rs.CommandStatuses))
	for _, cs := range rs.CommandStatuses {
		var update RefUpdate
		if cs.ReferenceName != "" {
			name := cs.ReferenceName.String()
			update.Ref = &name
		}
		if cs.Status != "ok" {
			msg := cs.Status
			update.Message = &msg
		}
		updates = append(updates, update)
	}
	return updates
}

// Pusher sends refspecs to a remote and reports per-reference failures
type Pusher interface {
	Push(ctx context.Context, repo *git.Repository, remote string, refspecs []string) ([]RefFailure, error)
}

// pusher implements Pusher over go-git
type pusher struct {
	logger logging.Logger
}

// NewPusher creates a new pusher instance
func NewPusher(logger logging.Logger) (Pusher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &pusher{
		logger: logger.With("component", "push"),
	}, nil
}

// Push sends the given refspecs to the remote. A transport or unpack
// failure is returned as an error; per-reference rejections are business
// outcomes and come back as data. An up-to-date remote is a success with no
// failures.
func (p *pusher) Push(ctx context.Context, repo *git.Repository, remote string, refspecs []string) ([]RefFailure, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	if remote == "" {
		remote = "origin"
	}

	specs := make([]gitconfig.RefSpec, 0, len(refspecs))
	for _, rs := range refspecs {
		spec := gitconfig.RefSpec(rs)
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid refspec %q: %w", rs, err)
		}
		specs = append(specs, spec)
	}

	p.logger.Debug("pushing refspecs", "remote", remote, "refspec_count", len(specs))

	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   specs,
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			p.logger.Info("remote already up to date", "remote", remote)
			return nil, nil
		}
		if updates := rejectionFromError(err); updates != nil {
			failures, cerr := Collect(updates)
			if cerr != nil {
				return nil, cerr
			}
			p.logger.Warn("push completed with rejected references", "remote", remote, "rejected_count", len(failures))
			return failures, nil
		}
		p.logger.Error("push failed", "remote", remote, "error", err)
		return nil, fmt.Errorf("failed to push to %s: %w", remote, err)
	}

	p.logger.Info("push completed", "remote", remote, "refspec_count", len(specs))
	return nil, nil
}

// rejectionFromError maps the per-reference rejection errors a push raises
// onto the update stream, so rejections come back as data instead of
// aborting the push. Returns nil when the error is not a per-reference
// rejection (unpack and transport failures stay errors).
func rejectionFromError(err error) []RefUpdate {
	msg := err.Error()

	if ref, ok := strings.CutPrefix(msg, "non-fast-forward update: "); ok {
		reason := "non-fast-forward"
		return []RefUpdate{{Ref: &ref, Message: &reason}}
	}

	// Report-status command errors from the remote, e.g. a pre-receive hook
	if rest, ok := strings.CutPrefix(msg, "command error on "); ok {
		if ref, reason, found := strings.Cut(rest, ": "); found {
			return []RefUpdate{{Ref: &ref, Message: &reason}}
		}
	}

	return nil
}
