package diff

import (
	"context"
	"fmt"
	"strings"

	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// StreamPatch drives an aggregator from a go-git patch, synthesizing the
// diff event stream: one file header event per file patch, an optional
// binary marker or hunk header, then one event per patch line with its
// +/-/space prefix included in the text fragment. Cancellation is observed
// between events only; a cancelled stream leaves the aggregator partial and
// unfinalizable as complete.
func StreamPatch(ctx context.Context, patch *object.Patch, agg *Aggregator) error {
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		if from == nil && to == nil {
			continue
		}

		delta := newDelta(from, to, fp.IsBinary())
		if err := emit(ctx, agg, Event{Delta: delta, Origin: OriginFileHeader, Text: fileHeader(delta)}); err != nil {
			return err
		}

		// Non-header events only need the routing path
		route := Delta{NewPath: delta.NewPath}

		if fp.IsBinary() {
			text := fmt.Sprintf("Binary files %s and %s differ\n", aPath(from, delta.OldPath), bPath(to, delta.NewPath))
			if err := emit(ctx, agg, Event{Delta: route, Origin: OriginBinaryMarker, Text: text}); err != nil {
				return err
			}
			continue
		}

		chunks := fp.Chunks()
		if len(chunks) == 0 {
			continue
		}

		if err := emit(ctx, agg, Event{Delta: route, Origin: OriginHunkHeader, Text: hunkHeader(chunks)}); err != nil {
			return err
		}

		for _, chunk := range chunks {
			origin, prefix := chunkOrigin(chunk.Type())
			for _, line := range splitLines(chunk.Content()) {
				text := prefix + line
				noNewline := !strings.HasSuffix(line, "\n")
				if noNewline {
					text += "\n"
				}
				if err := emit(ctx, agg, Event{Delta: route, Origin: origin, Text: text}); err != nil {
					return err
				}
				if noNewline {
					if err := emit(ctx, agg, Event{Delta: route, Origin: OriginContext, Text: "\\ No newline at end of file\n"}); err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

// emit feeds one event, checking for cancellation at the event boundary
func emit(ctx context.Context, agg *Aggregator, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return agg.Feed(ev)
}

// newDelta derives file-level metadata from a go-git file patch pair. A nil
// from side means the file is new to the diff engine (untracked); a nil to
// side means it was deleted; a blob/symlink/submodule switch is a type
// change.
func newDelta(from, to fdiff.File, binary bool) Delta {
	var d Delta
	d.Binary = binary

	if from != nil {
		d.OldPath = from.Path()
		d.OldMode = from.Mode()
		d.OldHash = from.Hash()
	}
	if to != nil {
		d.NewPath = to.Path()
		d.NewMode = to.Mode()
		d.NewHash = to.Hash()
	}

	// Keep both paths populated so routing and display never see an empty
	// path on either side
	if to == nil {
		d.NewPath = d.OldPath
	}
	if from == nil {
		d.OldPath = d.NewPath
	}

	switch {
	case from == nil:
		d.Status = StatusUntracked
	case to == nil:
		d.Status = StatusDeleted
	case modeGroup(from.Mode()) != modeGroup(to.Mode()):
		d.Status = StatusTypeChanged
	default:
		d.Status = StatusModified
	}

	return d
}

// modeGroup collapses file modes into the object types git distinguishes
// for type changes; a regular/executable flip is a plain modification
func modeGroup(m filemode.FileMode) filemode.FileMode {
	switch m {
	case filemode.Regular, filemode.Executable, filemode.Deprecated:
		return filemode.Regular
	default:
		return m
	}
}

// fileHeader renders the unified-diff header block for a delta
func fileHeader(d Delta) string {
	var b strings.Builder

	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", d.OldPath, d.NewPath)

	switch d.Status {
	case StatusUntracked, StatusAdded:
		fmt.Fprintf(&b, "new file mode %o\n", uint32(d.NewMode))
	case StatusDeleted:
		fmt.Fprintf(&b, "deleted file mode %o\n", uint32(d.OldMode))
	default:
		if d.OldMode != d.NewMode {
			fmt.Fprintf(&b, "old mode %o\n", uint32(d.OldMode))
			fmt.Fprintf(&b, "new mode %o\n", uint32(d.NewMode))
		}
	}

	fmt.Fprintf(&b, "index %s..%s", d.OldHash, d.NewHash)
	if d.OldMode == d.NewMode && !d.OldHash.IsZero() && !d.NewHash.IsZero() {
		fmt.Fprintf(&b, " %o", uint32(d.NewMode))
	}
	b.WriteByte('\n')

	if !d.Binary {
		if d.OldHash.IsZero() {
			b.WriteString("--- /dev/null\n")
		} else {
			fmt.Fprintf(&b, "--- a/%s\n", d.OldPath)
		}
		if d.NewHash.IsZero() {
			b.WriteString("+++ /dev/null\n")
		} else {
			fmt.Fprintf(&b, "+++ b/%s\n", d.NewPath)
		}
	}

	return b.String()
}

// hunkHeader renders a single hunk header spanning the whole file patch.
// Chunks arrive as one contiguous sequence per file, so line counts come
// from summing each side.
func hunkHeader(chunks []fdiff.Chunk) string {
	var oldLines, newLines int
	for _, chunk := range chunks {
		n := len(splitLines(chunk.Content()))
		switch chunk.Type() {
		case fdiff.Equal:
			oldLines += n
			newLines += n
		case fdiff.Add:
			newLines += n
		case fdiff.Delete:
			oldLines += n
		}
	}

	oldStart, newStart := 1, 1
	if oldLines == 0 {
		oldStart = 0
	}
	if newLines == 0 {
		newStart = 0
	}
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", oldStart, oldLines, newStart, newLines)
}

// chunkOrigin maps a go-git chunk operation to a line origin and prefix
func chunkOrigin(op fdiff.Operation) (LineOrigin, string) {
	switch op {
	case fdiff.Add:
		return OriginAddition, "+"
	case fdiff.Delete:
		return OriginDeletion, "-"
	default:
		return OriginContext, " "
	}
}

// splitLines splits chunk content into lines, keeping each line's trailing
// newline; a final line without one is returned as-is
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// aPath and bPath render the old/new side of a binary notice the way git
// does, using /dev/null for a missing side
func aPath(from fdiff.File, fallback string) string {
	if from == nil {
		return "/dev/null"
	}
	return "a/" + fallback
}

func bPath(to fdiff.File, fallback string) string {
	if to == nil {
		return "/dev/null"
	}
	return "b/" + fallback
}
