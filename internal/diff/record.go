package diff

import (
	"bytes"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// ChangeKind classifies a file-level change. The set is closed: every
// record carries exactly one of these four kinds.
type ChangeKind byte

const (
	Added ChangeKind = iota
	Deleted
	Modified
	TypeChanged
)

// String returns the kind name used in logs and storage
func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	case TypeChanged:
		return "typechange"
	default:
		return "unknown"
	}
}

// ChangeRecord describes one changed file: paths, modes and blob hashes on
// both sides, the classified kind, line counters, and the patch fragment
// for this file. A record is created on its file header event, mutated only
// while its diff is being aggregated, and frozen once the stream ends.
type ChangeRecord struct {
	NewPath string
	OldPath string
	NewMode filemode.FileMode
	OldMode filemode.FileMode
	NewHash plumbing.Hash
	OldHash plumbing.Hash
	Kind    ChangeKind
	Binary  bool

	LinesAdded   int
	LinesDeleted int

	patch bytes.Buffer
}

// Patch returns the patch text accumulated for this file, in emission order
func (r *ChangeRecord) Patch() string {
	return r.patch.String()
}

// newRecord builds a ChangeRecord from header-event metadata. An untracked
// raw status normalizes to Added; any status outside the closed kind set is
// rejected as an upstream contract violation.
func newRecord(d Delta) (*ChangeRecord, error) {
	var kind ChangeKind
	switch d.Status {
	case StatusAdded, StatusUntracked:
		kind = Added
	case StatusDeleted:
		kind = Deleted
	case StatusModified:
		kind = Modified
	case StatusTypeChanged:
		kind = TypeChanged
	default:
		return nil, fmt.Errorf("%w: %s for %s", ErrUnknownStatus, d.Status, d.NewPath)
	}

	return &ChangeRecord{
		NewPath: d.NewPath,
		OldPath: d.OldPath,
		NewMode: d.NewMode,
		OldMode: d.OldMode,
		NewHash: d.NewHash,
		OldHash: d.OldHash,
		Kind:    kind,
		Binary:  d.Binary,
	}, nil
}
