package review_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/heartmarshall/aaed-cleaner/internal/adapter/sqlite"
	"github.com/heartmarshall/aaed-cleaner/internal/adapter/sqlite/records"
	"github.com/heartmarshall/aaed-cleaner/internal/config"
	"github.com/heartmarshall/aaed-cleaner/internal/domain"
	"github.com/heartmarshall/aaed-cleaner/internal/service/review"
)

// newTestService wires a review service to a real in-memory store; the
// store is cheap enough that mocking it would test less for more code.
func newTestService(t *testing.T) *review.Service {
	t.Helper()

	db, err := sqlite.Open(context.Background())
	if err != nil {
		t.Fatalf("open session database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return review.NewService(logger, records.New(db), config.ReviewConfig{
		MaxManualGroups: 5,
		MaxUploadBytes:  1 << 20,
	})
}

// fiveRecords: word "a" once, "b" three times, "c" once.
func fiveRecords() []domain.Record {
	return []domain.Record{
		{Index: "1", SubIndex: 1, Entry: "a-entry", Gloss: "first", Word: "a", Position: 0},
		{Index: "2", SubIndex: 1, Entry: "b-entry-1", Gloss: "second", Word: "b", Position: 1},
		{Index: "2", SubIndex: 2, Entry: "b-entry-2", Gloss: "third", Word: "b", Position: 2},
		{Index: "3", SubIndex: 1, Entry: "c-entry", Gloss: "fourth", Word: "c", Position: 3},
		{Index: "4", SubIndex: 1, Entry: "b-entry-3", Gloss: "fifth", Word: "b", Position: 4},
	}
}

func mustLoad(t *testing.T, svc *review.Service, name string, recs []domain.Record) *review.SessionView {
	t.Helper()
	view, err := svc.Load(context.Background(), review.LoadInput{FileName: name, Records: recs})
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return view
}

func labelOf(t *testing.T, recs []domain.Record, key domain.RecordKey) *int {
	t.Helper()
	for i := range recs {
		if recs[i].Key() == key {
			return recs[i].Homophone
		}
	}
	t.Fatalf("record %s not found", key)
	return nil
}

func TestLoad_SingletonsResolvedDuplicatesPending(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	view := mustLoad(t, svc, "data.xlsx", fiveRecords())

	if view.State != review.StatePresenting {
		t.Fatalf("state: got %q, want presenting", view.State)
	}
	if view.Current == nil || view.Current.Word != "b" {
		t.Fatalf("current group: got %+v, want word b", view.Current)
	}
	if view.Current.Size() != 3 {
		t.Errorf("group size: got %d, want 3", view.Current.Size())
	}
	if view.PendingGroups != 1 {
		t.Errorf("pending groups: got %d, want 1", view.PendingGroups)
	}
	if view.Progress.Resolved != 2 || view.Progress.Total != 5 {
		t.Errorf("progress: got %d/%d, want 2/5", view.Progress.Resolved, view.Progress.Total)
	}
}

func TestResolveDistinct_LabelsInRowOrder(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	mustLoad(t, svc, "data.xlsx", fiveRecords())

	view, err := svc.ResolveDistinct(ctx)
	if err != nil {
		t.Fatalf("resolve distinct: %v", err)
	}
	if view.State != review.StateAllResolved {
		t.Fatalf("state: got %q, want all_resolved", view.State)
	}

	res, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	want := map[domain.RecordKey]int{
		{Index: "1", SubIndex: 1}: 1, // singleton "a"
		{Index: "2", SubIndex: 1}: 1, // "b" in row order
		{Index: "2", SubIndex: 2}: 2,
		{Index: "3", SubIndex: 1}: 1, // singleton "c"
		{Index: "4", SubIndex: 1}: 3,
	}
	for key, wantLabel := range want {
		got := labelOf(t, res.Records, key)
		if got == nil || *got != wantLabel {
			t.Errorf("%s: got %v, want %d", key, got, wantLabel)
		}
	}
}

func TestResolveUniform_AllMembersLabelOne(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	mustLoad(t, svc, "data.xlsx", fiveRecords())

	if _, err := svc.ResolveUniform(ctx); err != nil {
		t.Fatalf("resolve uniform: %v", err)
	}

	res, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, rec := range res.Records {
		if rec.Homophone == nil || *rec.Homophone != 1 {
			t.Errorf("%s: got %v, want 1", rec.Key(), rec.Homophone)
		}
	}
}

func TestLoad_SameFileNamePreservesProgress(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	first := mustLoad(t, svc, "data.xlsx", fiveRecords())
	if _, err := svc.ResolveUniform(ctx); err != nil {
		t.Fatalf("resolve uniform: %v", err)
	}

	// Same identity, unlabeled content: must be a no-op.
	again := mustLoad(t, svc, "data.xlsx", fiveRecords())

	if again.SessionID != first.SessionID {
		t.Errorf("session replaced on same-name reload")
	}
	if again.State != review.StateAllResolved {
		t.Errorf("state: got %q, want all_resolved", again.State)
	}
	if again.Progress.Resolved != 5 {
		t.Errorf("progress lost on reload: got %d/5 resolved", again.Progress.Resolved)
	}
}

func TestLoad_DifferentFileNameReplaces(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	first := mustLoad(t, svc, "data.xlsx", fiveRecords())
	if _, err := svc.ResolveUniform(ctx); err != nil {
		t.Fatalf("resolve uniform: %v", err)
	}

	other := mustLoad(t, svc, "other.xlsx", fiveRecords())

	if other.SessionID == first.SessionID {
		t.Errorf("session not replaced for a new file identity")
	}
	if other.State != review.StatePresenting {
		t.Errorf("state: got %q, want presenting", other.State)
	}
	if other.Progress.Resolved != 2 {
		t.Errorf("progress: got %d resolved, want 2 (singletons only)", other.Progress.Resolved)
	}
}

func TestSkip_RotatesQueueWithoutMutatingRecords(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	recs := []domain.Record{
		{Index: "1", SubIndex: 1, Word: "x", Position: 0},
		{Index: "2", SubIndex: 1, Word: "y", Position: 1},
		{Index: "3", SubIndex: 1, Word: "x", Position: 2},
		{Index: "4", SubIndex: 1, Word: "y", Position: 3},
	}
	view := mustLoad(t, svc, "data.xlsx", recs)
	if view.Current.Word != "x" {
		t.Fatalf("current: got %q, want x", view.Current.Word)
	}

	view, err := svc.Skip(ctx)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if view.Current.Word != "y" {
		t.Errorf("after skip: got %q, want y", view.Current.Word)
	}
	if view.PendingGroups != 2 {
		t.Errorf("pending: got %d, want 2 (skip resolves nothing)", view.PendingGroups)
	}

	res, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, rec := range res.Records {
		if rec.Homophone != nil {
			t.Errorf("%s: skip mutated a record", rec.Key())
		}
	}

	// Wraps back around.
	view, err = svc.Skip(ctx)
	if err != nil {
		t.Fatalf("second skip: %v", err)
	}
	if view.Current.Word != "x" {
		t.Errorf("after second skip: got %q, want x", view.Current.Word)
	}
}

func TestSkip_SinglePendingGroupIsNoOp(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	mustLoad(t, svc, "data.xlsx", fiveRecords())

	for i := 0; i < 3; i++ {
		view, err := svc.Skip(ctx)
		if err != nil {
			t.Fatalf("skip %d: %v", i, err)
		}
		if view.State != review.StatePresenting || view.Current.Word != "b" {
			t.Fatalf("skip %d: state %q current %v", i, view.State, view.Current)
		}
	}
}

func TestManualFlow_PartialChoicesDefaultToOne(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	mustLoad(t, svc, "data.xlsx", fiveRecords())

	view, err := svc.BeginManual(ctx)
	if err != nil {
		t.Fatalf("begin manual: %v", err)
	}
	if view.State != review.StateAwaitingManual {
		t.Fatalf("state: got %q, want awaiting_manual", view.State)
	}

	// Entering manual mode must not touch any record.
	res, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if got := labelOf(t, res.Records, domain.RecordKey{Index: "2", SubIndex: 1}); got != nil {
		t.Fatalf("record labeled before submission")
	}

	// Choose a sub-group for one member only; the rest default to 1.
	view, err = svc.SubmitManual(ctx, review.ManualInput{Choices: []review.ManualChoice{
		{Key: domain.RecordKey{Index: "2", SubIndex: 2}, Group: 2},
	}})
	if err != nil {
		t.Fatalf("submit manual: %v", err)
	}
	if view.State != review.StateAllResolved {
		t.Errorf("state: got %q, want all_resolved", view.State)
	}

	res, err = svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := map[domain.RecordKey]int{
		{Index: "2", SubIndex: 1}: 1,
		{Index: "2", SubIndex: 2}: 2,
		{Index: "4", SubIndex: 1}: 1,
	}
	for key, wantLabel := range want {
		got := labelOf(t, res.Records, key)
		if got == nil || *got != wantLabel {
			t.Errorf("%s: got %v, want %d", key, got, wantLabel)
		}
	}
}

func TestSubmitManual_InvalidChoiceLeavesGroupUntouched(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	mustLoad(t, svc, "data.xlsx", fiveRecords())

	if _, err := svc.BeginManual(ctx); err != nil {
		t.Fatalf("begin manual: %v", err)
	}

	// Group "b" has 3 members; sub-group 4 exceeds min(5, 3).
	_, err := svc.SubmitManual(ctx, review.ManualInput{Choices: []review.ManualChoice{
		{Key: domain.RecordKey{Index: "2", SubIndex: 1}, Group: 4},
	}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error: got %v, want ErrValidation", err)
	}

	res, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, key := range []domain.RecordKey{{Index: "2", SubIndex: 1}, {Index: "2", SubIndex: 2}, {Index: "4", SubIndex: 1}} {
		if labelOf(t, res.Records, key) != nil {
			t.Errorf("%s: labeled despite rejected submission", key)
		}
	}
}

func TestOperations_WrongStateConflicts(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	// Nothing loaded yet.
	if _, err := svc.ResolveUniform(ctx); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("resolve before load: got %v, want ErrConflict", err)
	}
	if _, err := svc.Export(ctx); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("export before load: got %v, want ErrConflict", err)
	}

	mustLoad(t, svc, "data.xlsx", fiveRecords())

	// Submitting without entering manual mode.
	if _, err := svc.SubmitManual(ctx, review.ManualInput{}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("submit in presenting: got %v, want ErrConflict", err)
	}

	if _, err := svc.BeginManual(ctx); err != nil {
		t.Fatalf("begin manual: %v", err)
	}
	if _, err := svc.Skip(ctx); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("skip in awaiting_manual: got %v, want ErrConflict", err)
	}
	if _, err := svc.CancelManual(ctx); err != nil {
		t.Fatalf("cancel manual: %v", err)
	}

	if _, err := svc.ResolveDistinct(ctx); err != nil {
		t.Fatalf("resolve distinct: %v", err)
	}
	// Everything resolved now.
	if _, err := svc.Skip(ctx); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("skip in all_resolved: got %v, want ErrConflict", err)
	}
	if _, err := svc.BeginManual(ctx); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("begin manual in all_resolved: got %v, want ErrConflict", err)
	}
}

func TestExport_IncludesUnresolvedRows(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	mustLoad(t, svc, "data.xlsx", fiveRecords())

	res, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.FileName != "data.xlsx" {
		t.Errorf("file name: got %q, want data.xlsx", res.FileName)
	}
	if len(res.Records) != 5 {
		t.Fatalf("records: got %d, want 5", len(res.Records))
	}

	unresolved := 0
	for _, rec := range res.Records {
		if rec.Homophone == nil {
			unresolved++
		}
	}
	if unresolved != 3 {
		t.Errorf("unresolved rows: got %d, want 3", unresolved)
	}
}

func TestLoad_EmptyDatasetRejected(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.Load(context.Background(), review.LoadInput{FileName: "data.xlsx"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error: got %v, want ErrValidation", err)
	}
}
