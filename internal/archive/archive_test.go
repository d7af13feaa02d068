package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openeurope/energyaudit/pkg/types"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func openTemp(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func run(id string, finished time.Time) *types.Run {
	return &types.Run{
		ID:         id,
		Input:      "/data/" + id + ".csv",
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: finished,
		Stats:      types.Stats{Ingested: 2, Dropped: 1, Used: 1},
		Summary:    types.Summary{BaselineAvg: 100, NewAvg: 80, SavingsAbs: 20, SavingsPct: 20, Rows: 1},
		Trail: types.Trail{
			types.NewEntry(types.StepIngestion, finished, "Loaded 2 rows from x"),
		},
	}
}

func TestSaveAndRecent(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	for i, id := range []string{"old", "mid", "new"} {
		if err := a.Save(ctx, run(id, base.Add(time.Duration(i)*time.Hour)), nil); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	runs, err := a.Recent(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Fatalf("Recent: got %d runs", len(runs))
	}
	got := runs[0]
	if got.Summary.SavingsPct != 20 || got.Stats.Dropped != 1 || len(got.Trail) != 1 {
		t.Errorf("round-tripped run: %+v", got)
	}
	if !got.FinishedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("finished_at: got %v", got.FinishedAt)
	}
}

func TestSave_Replaces(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	r := run("r", base)
	a.Save(ctx, r, nil) //nolint:errcheck
	r.Summary.SavingsPct = 42
	if err := a.Save(ctx, r, nil); err != nil {
		t.Fatal(err)
	}

	runs, err := a.Recent(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Summary.SavingsPct != 42 {
		t.Errorf("runs: %+v", runs)
	}
}

func TestReport(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()
	md := []byte("# Energy Audit Report\n\n**Input file:** site.csv\n")

	if err := a.Save(ctx, run("with", base), md); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(ctx, run("without", base), nil); err != nil {
		t.Fatal(err)
	}

	got, err := a.Report(ctx, "with")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if string(got) != string(md) {
		t.Errorf("Report: got %q, want %q", got, md)
	}

	if _, err := a.Report(ctx, "without"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report(without): got %v, want ErrNotFound", err)
	}
	if _, err := a.Report(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report(unknown): got %v, want ErrNotFound", err)
	}
}

func TestDeleteBefore(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	a.Save(ctx, run("old", base.Add(-48*time.Hour)), nil) //nolint:errcheck
	a.Save(ctx, run("new", base), nil)                    //nolint:errcheck

	n, err := a.DeleteBefore(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted: got %d, want 1", n)
	}
	runs, _ := a.Recent(ctx, time.Time{})
	if len(runs) != 1 || runs[0].ID != "new" {
		t.Errorf("remaining: %+v", runs)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	a, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Save(ctx, run("persisted", base), []byte("report")); err != nil {
		t.Fatal(err)
	}
	a.Close()

	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	runs, err := b.Recent(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "persisted" {
		t.Errorf("after reopen: %+v", runs)
	}
}
