package diff

import (
	"errors"
	"testing"

	"github.com/stwalsh4118/diffscope/internal/logging"
)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("failed to create aggregator: %v", err)
	}
	return agg
}

func headerEvent(path string, status RawStatus, binary bool, text string) Event {
	return Event{
		Delta: Delta{
			NewPath: path,
			OldPath: path,
			Status:  status,
			Binary:  binary,
		},
		Origin: OriginFileHeader,
		Text:   text,
	}
}

func lineEvent(path string, origin LineOrigin, text string) Event {
	return Event{
		Delta:  Delta{NewPath: path},
		Origin: origin,
		Text:   text,
	}
}

func feedAll(t *testing.T, agg *Aggregator, events []Event) {
	t.Helper()
	for i, ev := range events {
		if err := agg.Feed(ev); err != nil {
			t.Fatalf("Feed failed on event %d: %v", i, err)
		}
	}
}

func TestNewAggregator_NilLogger(t *testing.T) {
	if _, err := NewAggregator(nil); err == nil {
		t.Fatal("expected error when logger is nil")
	}
}

func TestAggregator_ClassifiesAndCounts(t *testing.T) {
	agg := newTestAggregator(t)

	events := []Event{
		headerEvent("a.txt", StatusModified, false, "diff --git a/a.txt b/a.txt\n"),
		lineEvent("a.txt", OriginAddition, "+hello\n"),
		lineEvent("a.txt", OriginDeletion, "-world\n"),
		headerEvent("b.txt", StatusAdded, true, "diff --git a/b.txt b/b.txt\n"),
	}
	feedAll(t, agg, events)

	result, err := agg.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	modified := result.Modified()
	if len(modified) != 1 || modified[0].NewPath != "a.txt" {
		t.Errorf("expected Modified = [a.txt], got %v", paths(modified))
	}

	added := result.Added()
	if len(added) != 1 || added[0].NewPath != "b.txt" {
		t.Errorf("expected Added = [b.txt], got %v", paths(added))
	}
	if !added[0].Binary {
		t.Error("expected b.txt to be binary")
	}

	if result.TotalLinesAdded() != 1 {
		t.Errorf("expected TotalLinesAdded 1, got %d", result.TotalLinesAdded())
	}
	if result.TotalLinesDeleted() != 1 {
		t.Errorf("expected TotalLinesDeleted 1, got %d", result.TotalLinesDeleted())
	}

	rec, ok := result.File("a.txt")
	if !ok {
		t.Fatal("expected a.txt in index")
	}
	wantPatch := "diff --git a/a.txt b/a.txt\n+hello\n-world\n"
	if rec.Patch() != wantPatch {
		t.Errorf("expected a.txt patch %q, got %q", wantPatch, rec.Patch())
	}
}

func TestAggregator_FullPatchIsConcatenationInEventOrder(t *testing.T) {
	agg := newTestAggregator(t)

	events := []Event{
		headerEvent("a.txt", StatusModified, false, "HEADER-A"),
		lineEvent("a.txt", OriginHunkHeader, "@@ -1,1 +1,1 @@\n"),
		lineEvent("a.txt", OriginDeletion, "-old\n"),
		lineEvent("a.txt", OriginAddition, "+new\n"),
		headerEvent("b.dat", StatusAdded, true, "HEADER-B"),
		lineEvent("b.dat", OriginBinaryMarker, "Binary files /dev/null and b/b.dat differ\n"),
	}
	feedAll(t, agg, events)

	result, err := agg.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	var want string
	for _, ev := range events {
		want += ev.Text
	}
	if result.Patch() != want {
		t.Errorf("full patch does not round-trip event text:\nwant %q\ngot  %q", want, result.Patch())
	}
}

func TestAggregator_NormalizesUntrackedToAdded(t *testing.T) {
	agg := newTestAggregator(t)

	if err := agg.Feed(headerEvent("new.txt", StatusUntracked, false, "diff --git a/new.txt b/new.txt\n")); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	result, err := agg.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	added := result.Added()
	if len(added) != 1 || added[0].NewPath != "new.txt" {
		t.Fatalf("expected Added = [new.txt], got %v", paths(added))
	}
	if added[0].Kind != Added {
		t.Errorf("expected kind %v, got %v", Added, added[0].Kind)
	}
	if added[0].LinesAdded != 0 {
		t.Errorf("expected 0 added lines, got %d", added[0].LinesAdded)
	}
}

func TestAggregator_LineEventBeforeHeaderFails(t *testing.T) {
	agg := newTestAggregator(t)

	err := agg.Feed(lineEvent("never-seen.txt", OriginAddition, "+x\n"))
	if !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("expected ErrUnknownPath, got %v", err)
	}
}

func TestAggregator_DuplicateHeaderFails(t *testing.T) {
	agg := newTestAggregator(t)

	if err := agg.Feed(headerEvent("a.txt", StatusModified, false, "h1")); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	err := agg.Feed(headerEvent("a.txt", StatusModified, false, "h2"))
	if !errors.Is(err, ErrDuplicatePath) {
		t.Fatalf("expected ErrDuplicatePath, got %v", err)
	}
}

func TestAggregator_UnknownStatusFails(t *testing.T) {
	agg := newTestAggregator(t)

	err := agg.Feed(headerEvent("a.txt", StatusUnspecified, false, "h"))
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestAggregator_FeedAfterFinalizeFails(t *testing.T) {
	agg := newTestAggregator(t)

	first, err := agg.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if err := agg.Feed(headerEvent("a.txt", StatusModified, false, "h")); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}

	// Finalizing again is a no-op returning the same result
	second, err := agg.Finalize()
	if err != nil {
		t.Fatalf("second Finalize failed: %v", err)
	}
	if first != second {
		t.Error("expected repeated Finalize to return the same result")
	}
}

func TestAggregator_SortsByteWise(t *testing.T) {
	agg := newTestAggregator(t)

	// Fed out of order; byte-wise order is Z.txt < a.txt < a/b.txt ('.' < '/')
	for _, path := range []string{"a/b.txt", "Z.txt", "a.txt"} {
		if err := agg.Feed(headerEvent(path, StatusModified, false, "h:"+path)); err != nil {
			t.Fatalf("Feed failed for %s: %v", path, err)
		}
	}

	result, err := agg.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	got := paths(result.Modified())
	want := []string{"Z.txt", "a.txt", "a/b.txt"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestAggregator_SequencesPartitionIndexAndTotalsMatch(t *testing.T) {
	agg := newTestAggregator(t)

	events := []Event{
		headerEvent("m.txt", StatusModified, false, "hm"),
		lineEvent("m.txt", OriginAddition, "+1\n"),
		lineEvent("m.txt", OriginAddition, "+2\n"),
		lineEvent("m.txt", OriginDeletion, "-1\n"),
		headerEvent("d.txt", StatusDeleted, false, "hd"),
		lineEvent("d.txt", OriginDeletion, "-gone\n"),
		headerEvent("n.txt", StatusUntracked, false, "hn"),
		lineEvent("n.txt", OriginAddition, "+new\n"),
		headerEvent("t.txt", StatusTypeChanged, false, "ht"),
	}
	feedAll(t, agg, events)

	result, err := agg.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// Every indexed record appears in exactly one classified sequence
	classified := map[string]int{}
	for _, recs := range [][]*ChangeRecord{result.Added(), result.Deleted(), result.Modified(), result.TypeChanged()} {
		for _, rec := range recs {
			classified[rec.NewPath]++
		}
	}
	if len(classified) != result.Len() {
		t.Errorf("expected %d classified records, got %d", result.Len(), len(classified))
	}
	for path, count := range classified {
		if count != 1 {
			t.Errorf("record %s appears in %d sequences", path, count)
		}
		if _, ok := result.File(path); !ok {
			t.Errorf("classified record %s missing from index", path)
		}
	}

	// Totals equal the per-record sums
	var sumAdded, sumDeleted int
	for _, rec := range result.Files() {
		sumAdded += rec.LinesAdded
		sumDeleted += rec.LinesDeleted
	}
	if result.TotalLinesAdded() != sumAdded {
		t.Errorf("TotalLinesAdded %d != sum %d", result.TotalLinesAdded(), sumAdded)
	}
	if result.TotalLinesDeleted() != sumDeleted {
		t.Errorf("TotalLinesDeleted %d != sum %d", result.TotalLinesDeleted(), sumDeleted)
	}

	// The stat rows mirror the records, in path order
	stats := result.Stats()
	if len(stats) != result.Len() {
		t.Fatalf("expected %d stat rows, got %d", result.Len(), len(stats))
	}
	for i, rec := range result.Files() {
		if stats[i].Path != rec.NewPath || stats[i].Kind != rec.Kind || stats[i].Binary != rec.Binary ||
			stats[i].Additions != rec.LinesAdded || stats[i].Deletions != rec.LinesDeleted {
			t.Errorf("stat row %d does not match record %s", i, rec.NewPath)
		}
	}
}

func TestAggregator_NonCountingOriginsLeaveCountersUnchanged(t *testing.T) {
	agg := newTestAggregator(t)

	events := []Event{
		headerEvent("a.txt", StatusModified, false, "h"),
		lineEvent("a.txt", OriginHunkHeader, "@@ -1,2 +1,2 @@\n"),
		lineEvent("a.txt", OriginContext, " same\n"),
		lineEvent("a.txt", OriginBinaryMarker, "Binary files differ\n"),
	}
	feedAll(t, agg, events)

	result, err := agg.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if result.TotalLinesAdded() != 0 || result.TotalLinesDeleted() != 0 {
		t.Errorf("expected zero counters, got +%d -%d", result.TotalLinesAdded(), result.TotalLinesDeleted())
	}

	rec, _ := result.File("a.txt")
	want := "h@@ -1,2 +1,2 @@\n same\nBinary files differ\n"
	if rec.Patch() != want {
		t.Errorf("expected patch %q, got %q", want, rec.Patch())
	}
}

func paths(recs []*ChangeRecord) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.NewPath
	}
	return out
}
