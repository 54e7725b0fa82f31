package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"platen/internal/jobs"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func terminalJob(id string, status jobs.Status, completedAt time.Time) *jobs.Job {
	started := completedAt.Add(-30 * time.Second)
	score := 92.0
	job := &jobs.Job{
		ID:           id,
		InputPath:    "/docs/" + id + ".tex",
		OutputDir:    "/out/" + id,
		Status:       status,
		CreatedAt:    started.Add(-time.Second),
		StartedAt:    &started,
		CompletedAt:  &completedAt,
		OutputFiles:  []string{"doc.html"},
		Assets:       []string{"fig1.svg", "fig2.svg"},
		QualityScore: &score,
		Stages: []*jobs.StageRecord{
			{Name: "compile", Status: jobs.StageStatusCompleted},
			{Name: "markup", Status: jobs.StageStatusCompleted},
		},
	}
	if status == jobs.StatusFailed {
		job.ErrorMessage = "markup failed"
	}
	return job
}

func TestRecordRefusesNonTerminalJob(t *testing.T) {
	store := openStore(t)
	job := &jobs.Job{ID: "j1", Status: jobs.StatusRunning}
	if err := store.Record(context.Background(), job); err == nil {
		t.Fatal("expected refusal for non-terminal job")
	}
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Record(ctx, terminalJob("older", jobs.StatusCompleted, now.Add(-time.Hour))); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, terminalJob("newer", jobs.StatusFailed, now)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d", len(entries))
	}
	if entries[0].JobID != "newer" || entries[1].JobID != "older" {
		t.Fatalf("order = %s,%s", entries[0].JobID, entries[1].JobID)
	}

	entry := entries[0]
	if entry.Status != jobs.StatusFailed || entry.ErrorMessage != "markup failed" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.OutputCount != 1 || entry.AssetCount != 2 {
		t.Fatalf("counts = %d,%d", entry.OutputCount, entry.AssetCount)
	}
	if entry.QualityScore == nil || *entry.QualityScore != 92.0 {
		t.Fatalf("quality = %v", entry.QualityScore)
	}
	if entry.Duration != 30*time.Second {
		t.Fatalf("duration = %s", entry.Duration)
	}
}

func TestRecordReplacesExistingRow(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Record(ctx, terminalJob("j1", jobs.StatusFailed, now)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, terminalJob("j1", jobs.StatusCompleted, now)); err != nil {
		t.Fatalf("re-Record: %v", err)
	}

	entries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != jobs.StatusCompleted {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, status := range []jobs.Status{jobs.StatusCompleted, jobs.StatusCompleted, jobs.StatusFailed} {
		job := terminalJob(string(rune('a'+i)), status, now)
		if err := store.Record(ctx, job); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[jobs.StatusCompleted] != 2 || stats[jobs.StatusFailed] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestListLimitDefault(t *testing.T) {
	store := openStore(t)
	entries, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected empty list, got %v", entries)
	}
}
