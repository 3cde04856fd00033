package diff

import "sort"

// Result is the finalized diff aggregate. It is read-only: the classified
// sequences are returned as copies and the per-file records are no longer
// mutated once the result exists.
type Result struct {
	index        map[string]*ChangeRecord
	added        []*ChangeRecord
	deleted      []*ChangeRecord
	modified     []*ChangeRecord
	typeChanged  []*ChangeRecord
	linesAdded   int
	linesDeleted int
	patch        string
}

// FileStat is a per-file summary row for display and storage
type FileStat struct {
	Path      string
	Kind      ChangeKind
	Binary    bool
	Additions int
	Deletions int
}

// File looks up the record for a new-file path
func (r *Result) File(path string) (*ChangeRecord, bool) {
	rec, ok := r.index[path]
	return rec, ok
}

// Len returns the number of changed files
func (r *Result) Len() int {
	return len(r.index)
}

// Added returns the added records, sorted by new path
func (r *Result) Added() []*ChangeRecord { return copyRecords(r.added) }

// Deleted returns the deleted records, sorted by new path
func (r *Result) Deleted() []*ChangeRecord { return copyRecords(r.deleted) }

// Modified returns the modified records, sorted by new path
func (r *Result) Modified() []*ChangeRecord { return copyRecords(r.modified) }

// TypeChanged returns the type-changed records, sorted by new path
func (r *Result) TypeChanged() []*ChangeRecord { return copyRecords(r.typeChanged) }

// Files returns every record, sorted by new path across all kinds
func (r *Result) Files() []*ChangeRecord {
	all := make([]*ChangeRecord, 0, len(r.index))
	for _, rec := range r.index {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].NewPath < all[j].NewPath
	})
	return all
}

// TotalLinesAdded returns the sum of added lines across all files
func (r *Result) TotalLinesAdded() int { return r.linesAdded }

// TotalLinesDeleted returns the sum of deleted lines across all files
func (r *Result) TotalLinesDeleted() int { return r.linesDeleted }

// Patch returns the full reconstructed patch text: the concatenation, in
// event order, of every event's text fragment across all files
func (r *Result) Patch() string { return r.patch }

// Stats returns a per-file summary, sorted by path
func (r *Result) Stats() []FileStat {
	files := r.Files()
	stats := make([]FileStat, 0, len(files))
	for _, rec := range files {
		stats = append(stats, FileStat{
			Path:      rec.NewPath,
			Kind:      rec.Kind,
			Binary:    rec.Binary,
			Additions: rec.LinesAdded,
			Deletions: rec.LinesDeleted,
		})
	}
	return stats
}

func copyRecords(recs []*ChangeRecord) []*ChangeRecord {
	out := make([]*ChangeRecord, len(recs))
	copy(out, recs)
	return out
}
