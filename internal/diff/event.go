package diff

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// LineOrigin tags what an event's text fragment represents
type LineOrigin byte

const (
	// OriginFileHeader marks the first event for a file; its fragment is the
	// unified-diff file header block and its delta metadata is authoritative
	OriginFileHeader LineOrigin = 'F'
	// OriginHunkHeader carries a "@@ ... @@" hunk header line
	OriginHunkHeader LineOrigin = 'H'
	// OriginContext carries an unchanged line
	OriginContext LineOrigin = ' '
	// OriginAddition carries an added line
	OriginAddition LineOrigin = '+'
	// OriginDeletion carries a deleted line
	OriginDeletion LineOrigin = '-'
	// OriginBinaryMarker carries the "Binary files ... differ" notice
	OriginBinaryMarker LineOrigin = 'B'
)

// RawStatus is the file-level change status reported by the diff engine,
// before normalization into a ChangeKind
type RawStatus byte

const (
	StatusUnspecified RawStatus = iota
	StatusAdded
	StatusDeleted
	StatusModified
	StatusTypeChanged
	StatusUntracked
)

// String returns the status name used in logs and storage
func (s RawStatus) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusModified:
		return "modified"
	case StatusTypeChanged:
		return "typechange"
	case StatusUntracked:
		return "untracked"
	default:
		return "unspecified"
	}
}

// Delta carries file-level metadata for a changed file. The header fields
// are only meaningful on an OriginFileHeader event; non-header events only
// need NewPath populated so the event can be routed to its record.
type Delta struct {
	NewPath string
	OldPath string
	NewMode filemode.FileMode
	OldMode filemode.FileMode
	NewHash plumbing.Hash // zero hash means the blob does not exist on this side
	OldHash plumbing.Hash
	Status  RawStatus
	Binary  bool
}

// Event is one element of the ordered diff event stream: a file header
// followed by zero or more line events carrying patch text
type Event struct {
	Delta  Delta
	Origin LineOrigin
	Text   string
}
