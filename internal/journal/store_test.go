package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"ytbatch/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return NewStore(db)
}

func threeSpecs() []TaskSpec {
	return []TaskSpec{
		{SourceRef: "PL-one", SourceTitle: "First"},
		{SourceRef: "PL-two", SourceTitle: "Second", VideoIDs: []string{"v1", "v2"}},
		{SourceRef: "PL-three", SourceTitle: "Third"},
	}
}

func TestStore_CreateBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch, err := store.CreateBatch(ctx, "weekly-sync", BatchOpts{DryRun: true, Dedup: true}, threeSpecs())
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if batch.Total != 3 {
		t.Errorf("batch total = %d, want 3", batch.Total)
	}

	// The boolean flags survive the integer column round trip.
	stored, err := store.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if !stored.DryRun || !stored.Dedup {
		t.Errorf("stored flags = dryRun %v / dedup %v, want both true", stored.DryRun, stored.Dedup)
	}

	tasks, err := store.TasksForBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("TasksForBatch() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("task count = %d, want 3", len(tasks))
	}
	for i, task := range tasks {
		if task.Seq != i {
			t.Errorf("task[%d].Seq = %d", i, task.Seq)
		}
		if task.Status != StatusPending {
			t.Errorf("task[%d].Status = %s, want pending", i, task.Status)
		}
	}
	if got := tasks[1].VideoIDs; len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
		t.Errorf("task[1].VideoIDs = %v, want [v1 v2]", got)
	}

	if _, err := store.CreateBatch(ctx, "empty", BatchOpts{}, nil); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("CreateBatch(empty) error = %v, want ErrInvalidInput", err)
	}
}

func TestStore_UpdateTaskAndCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch, err := store.CreateBatch(ctx, "counters", BatchOpts{}, threeSpecs())
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	tasks, err := store.TasksForBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("TasksForBatch() error = %v", err)
	}

	tasks[0].Status = StatusCompleted
	tasks[0].Identity = "primary"
	tasks[0].Units = 550
	tasks[0].TargetRef = "PL-new"
	if err := store.UpdateTask(ctx, tasks[0]); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	tasks[1].Status = StatusSkipped
	tasks[1].Verdict = "skip"
	if err := store.UpdateTask(ctx, tasks[1]); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	got, err := store.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if got.Completed != 1 || got.Skipped != 1 || got.Failed != 0 {
		t.Errorf("counters = %d/%d/%d, want 1/1/0", got.Completed, got.Skipped, got.Failed)
	}
	if !got.CompletedAt.IsZero() {
		t.Error("batch should not be stamped complete with a pending task")
	}

	// Re-applying the same terminal state must not double-count.
	if err := store.UpdateTask(ctx, tasks[0]); err != nil {
		t.Fatalf("UpdateTask() repeat error = %v", err)
	}
	got, _ = store.GetBatch(ctx, batch.ID)
	if got.Completed != 1 {
		t.Errorf("repeated update changed completed to %d", got.Completed)
	}

	tasks[2].Status = StatusFailedTerminal
	tasks[2].ErrorClass = "not_found"
	tasks[2].ErrorMessage = "playlist gone"
	if err := store.UpdateTask(ctx, tasks[2]); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	got, _ = store.GetBatch(ctx, batch.ID)
	if got.Failed != 1 {
		t.Errorf("failed counter = %d, want 1", got.Failed)
	}
	if got.CompletedAt.IsZero() {
		t.Error("batch should be stamped complete once all tasks are terminal")
	}

	reloaded, err := store.TasksForBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("TasksForBatch() error = %v", err)
	}
	if reloaded[0].Identity != "primary" || reloaded[0].Units != 550 {
		t.Errorf("task[0] persisted = %+v", reloaded[0])
	}
	if reloaded[2].ErrorClass != "not_found" {
		t.Errorf("task[2].ErrorClass = %s", reloaded[2].ErrorClass)
	}
}

func TestStore_ResumableTasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch, err := store.CreateBatch(ctx, "resume", BatchOpts{}, threeSpecs())
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	tasks, _ := store.TasksForBatch(ctx, batch.ID)

	// First task finished, second left in_progress by a simulated crash.
	tasks[0].Status = StatusCompleted
	if err := store.UpdateTask(ctx, tasks[0]); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	tasks[1].Status = StatusInProgress
	if err := store.UpdateTask(ctx, tasks[1]); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	resumable, err := store.ResumableTasks(ctx, batch.ID)
	if err != nil {
		t.Fatalf("ResumableTasks() error = %v", err)
	}
	if len(resumable) != 2 {
		t.Fatalf("resumable count = %d, want 2", len(resumable))
	}
	if resumable[0].ID != tasks[1].ID {
		t.Error("in_progress task should lead the resume pass in seq order")
	}
	if resumable[0].StartedAt.IsZero() {
		t.Error("in_progress task should have a start timestamp")
	}
	if resumable[1].ID != tasks[2].ID {
		t.Error("pending task should follow in seq order")
	}

	tasks[1].Status = StatusFailedRetry
	if err := store.UpdateTask(ctx, tasks[1]); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	resumable, _ = store.ResumableTasks(ctx, batch.ID)
	if len(resumable) != 2 {
		t.Errorf("failed_retryable should stay resumable, got %d tasks", len(resumable))
	}
}

func TestStore_PauseResume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch, err := store.CreateBatch(ctx, "pausable", BatchOpts{}, threeSpecs())
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	if err := store.PauseBatch(ctx, batch.ID, "quota exhausted"); err != nil {
		t.Fatalf("PauseBatch() error = %v", err)
	}
	got, _ := store.GetBatch(ctx, batch.ID)
	if !got.Paused() || got.PauseReason != "quota exhausted" {
		t.Errorf("batch pause state = %+v", got)
	}
	if got.PausedAt.IsZero() {
		t.Error("paused batch should carry a pause timestamp")
	}

	if err := store.ResumeBatch(ctx, batch.ID); err != nil {
		t.Fatalf("ResumeBatch() error = %v", err)
	}
	got, _ = store.GetBatch(ctx, batch.ID)
	if got.Paused() {
		t.Error("resumed batch should not be paused")
	}
	if got.ResumedAt.IsZero() {
		t.Error("resumed batch should carry a resume timestamp")
	}

	if err := store.PauseBatch(ctx, "missing", "x"); !errors.Is(err, shared.ErrBatchNotFound) {
		t.Errorf("PauseBatch(missing) error = %v, want ErrBatchNotFound", err)
	}
}

func TestStore_Cleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-40 * 24 * time.Hour)
	store.WithClock(func() time.Time { return past })

	old, err := store.CreateBatch(ctx, "old", BatchOpts{}, []TaskSpec{{SourceRef: "PL-old"}})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	tasks, _ := store.TasksForBatch(ctx, old.ID)
	tasks[0].Status = StatusCompleted
	if err := store.UpdateTask(ctx, tasks[0]); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	store.WithClock(time.Now)
	fresh, err := store.CreateBatch(ctx, "fresh", BatchOpts{}, []TaskSpec{{SourceRef: "PL-fresh"}})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	removed, err := store.Cleanup(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() removed %d batches, want 1", removed)
	}

	if _, err := store.GetBatch(ctx, old.ID); !errors.Is(err, shared.ErrBatchNotFound) {
		t.Errorf("old batch should be purged, got %v", err)
	}
	if _, err := store.GetBatch(ctx, fresh.ID); err != nil {
		t.Errorf("fresh batch should survive cleanup: %v", err)
	}

	// Cascade removes the purged batch's tasks.
	orphans, err := store.TasksForBatch(ctx, old.ID)
	if err != nil {
		t.Fatalf("TasksForBatch() error = %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("purged batch still has %d tasks", len(orphans))
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:        false,
		StatusInProgress:     false,
		StatusCompleted:      true,
		StatusSkipped:        true,
		StatusFailedRetry:    false,
		StatusFailedTerminal: true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
