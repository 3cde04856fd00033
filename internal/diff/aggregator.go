package diff

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/stwalsh4118/diffscope/internal/logging"
)

var (
	// ErrUnknownPath indicates a line event arrived before its file's header
	// event. The stream is malformed and aggregation must stop.
	ErrUnknownPath = errors.New("diff event references unknown path")
	// ErrDuplicatePath indicates two header events carried the same new path
	ErrDuplicatePath = errors.New("duplicate file header in diff stream")
	// ErrUnknownStatus indicates a header event carried a raw status outside
	// the closed change-kind set
	ErrUnknownStatus = errors.New("unknown change status")
	// ErrFinalized indicates an event was fed after Finalize
	ErrFinalized = errors.New("aggregator already finalized")
)

// Aggregator consumes an ordered diff event stream and builds a Result:
// per-file change records classified by kind, aggregate line counters, and
// the reconstructed full patch text. One aggregator serves exactly one
// diff; it is not safe for concurrent use and does not need to be, since
// the stream is consumed single-threaded in emission order.
type Aggregator struct {
	logger logging.Logger

	index       map[string]*ChangeRecord
	added       []*ChangeRecord
	deleted     []*ChangeRecord
	modified    []*ChangeRecord
	typeChanged []*ChangeRecord

	linesAdded   int
	linesDeleted int
	full         bytes.Buffer

	result *Result
}

// NewAggregator creates an aggregator for a single diff event stream
func NewAggregator(logger logging.Logger) (*Aggregator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Aggregator{
		logger: logger.With("component", "diff_aggregator"),
		index:  make(map[string]*ChangeRecord),
	}, nil
}

// Feed processes one event: it resolves the record the event belongs to,
// classifying and indexing a new record on a header event, then appends the
// event's text to the record's patch and the full patch and bumps the line
// counters for additions and deletions. Events must be fed in emission
// order; every error is a contract violation and aborts the aggregation.
func (a *Aggregator) Feed(ev Event) error {
	if a.result != nil {
		return ErrFinalized
	}

	rec, err := a.resolve(ev)
	if err != nil {
		return err
	}

	a.accumulate(rec, ev)
	return nil
}

// resolve routes an event to its ChangeRecord. Header events create, index
// and classify a new record; all other events look the record up by the
// event's new path.
func (a *Aggregator) resolve(ev Event) (*ChangeRecord, error) {
	if ev.Origin != OriginFileHeader {
		rec, ok := a.index[ev.Delta.NewPath]
		if !ok {
			a.logger.Error("line event before file header", "path", ev.Delta.NewPath)
			return nil, fmt.Errorf("%w: %q", ErrUnknownPath, ev.Delta.NewPath)
		}
		return rec, nil
	}

	if _, ok := a.index[ev.Delta.NewPath]; ok {
		a.logger.Error("duplicate file header", "path", ev.Delta.NewPath)
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePath, ev.Delta.NewPath)
	}

	rec, err := newRecord(ev.Delta)
	if err != nil {
		return nil, err
	}

	a.index[rec.NewPath] = rec
	a.classify(rec)
	a.logger.Debug("created change record", "path", rec.NewPath, "kind", rec.Kind.String(), "binary", rec.Binary)
	return rec, nil
}

// classify files a freshly created record into the sequence matching its
// kind. The kind set is closed and newRecord already rejected anything
// outside it, so there is no fallback branch.
func (a *Aggregator) classify(rec *ChangeRecord) {
	switch rec.Kind {
	case Added:
		a.added = append(a.added, rec)
	case Deleted:
		a.deleted = append(a.deleted, rec)
	case Modified:
		a.modified = append(a.modified, rec)
	case TypeChanged:
		a.typeChanged = append(a.typeChanged, rec)
	}
}

// accumulate appends the event's text fragment to the record's patch and
// the full patch, and counts added/deleted lines. Text is appended for
// every event, header events included, so concatenation reconstructs the
// emitted patch byte-exactly.
func (a *Aggregator) accumulate(rec *ChangeRecord, ev Event) {
	rec.patch.WriteString(ev.Text)
	a.full.WriteString(ev.Text)

	switch ev.Origin {
	case OriginAddition:
		rec.LinesAdded++
		a.linesAdded++
	case OriginDeletion:
		rec.LinesDeleted++
		a.linesDeleted++
	}
}

// Finalize sorts each classified sequence by new path in byte-wise order
// and freezes the aggregate into an immutable Result. Calling Finalize
// again returns the same result; feeding further events fails with
// ErrFinalized.
func (a *Aggregator) Finalize() (*Result, error) {
	if a.result != nil {
		return a.result, nil
	}

	byPath := func(recs []*ChangeRecord) {
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].NewPath < recs[j].NewPath
		})
	}
	byPath(a.added)
	byPath(a.deleted)
	byPath(a.modified)
	byPath(a.typeChanged)

	a.result = &Result{
		index:        a.index,
		added:        a.added,
		deleted:      a.deleted,
		modified:     a.modified,
		typeChanged:  a.typeChanged,
		linesAdded:   a.linesAdded,
		linesDeleted: a.linesDeleted,
		patch:        a.full.String(),
	}

	a.logger.Info("finalized diff aggregate",
		"file_count", len(a.index),
		"lines_added", a.linesAdded,
		"lines_deleted", a.linesDeleted)
	return a.result, nil
}
