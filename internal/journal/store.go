package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ytbatch/internal/shared"
)

// Store persists batches and tasks. All writes happen inside transactions
// so a batch and its counters can never disagree on disk.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a journal store over an already-migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the store's clock. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

const batchColumns = "id, name, dry_run, dedup, total, completed, failed, skipped, pause_reason, created_at, paused_at, resumed_at, completed_at"

const taskColumns = "id, batch_id, seq, source_ref, source_title, target_ref, target_title, video_ids, status, verdict, error_class, error_message, retry_count, identity, units, created_at, started_at, completed_at"

// CreateBatch journals a batch and all of its tasks in pending status before
// any remote work begins. A crash right after this call leaves a fully
// resumable record.
func (s *Store) CreateBatch(ctx context.Context, name string, opts BatchOpts, specs []TaskSpec) (*Batch, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: batch has no tasks", shared.ErrInvalidInput)
	}

	now := s.now().UTC()
	batch := &Batch{
		ID:        shared.GenerateID(),
		Name:      name,
		DryRun:    opts.DryRun,
		Dedup:     opts.Dedup,
		Total:     len(specs),
		CreatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, name, dry_run, dedup, total, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.Name, boolToInt(batch.DryRun), boolToInt(batch.Dedup),
		batch.Total, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	for seq, spec := range specs {
		videoIDs, err := encodeVideoIDs(spec.VideoIDs)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tasks (id, batch_id, seq, source_ref, source_title, target_ref, target_title, video_ids, status, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			shared.GenerateID(), batch.ID, seq,
			spec.SourceRef, nullableString(spec.SourceTitle),
			nullableString(spec.TargetRef), nullableString(spec.TargetTitle),
			videoIDs, StatusPending.String(), formatTime(now),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert task %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return batch, nil
}

// GetBatch loads one batch by ID.
func (s *Store) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE id = ?`, batchID)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrBatchNotFound, batchID)
	}
	return batch, err
}

// ListBatches returns all batches, newest first.
func (s *Store) ListBatches(ctx context.Context) ([]*Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// TasksForBatch returns every task of a batch in creation order.
func (s *Store) TasksForBatch(ctx context.Context, batchID string) ([]*Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE batch_id = ? ORDER BY seq`, batchID)
}

// ResumableTasks returns the batch's tasks not yet in a terminal status, in
// creation order. Tasks left in_progress by a crash are included so the next
// run re-attempts them.
func (s *Store) ResumableTasks(ctx context.Context, batchID string) ([]*Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
         WHERE batch_id = ? AND status NOT IN (?, ?, ?)
         ORDER BY seq`,
		batchID, StatusCompleted.String(), StatusSkipped.String(), StatusFailedTerminal.String())
}

// UpdateTask writes a task's mutable fields and recomputes the parent
// batch's counters in the same transaction. Safe to call repeatedly with
// the same terminal state.
func (s *Store) UpdateTask(ctx context.Context, task *Task) error {
	now := s.now().UTC()
	if task.Status == StatusInProgress && task.StartedAt.IsZero() {
		task.StartedAt = now
	}
	if task.Status.Terminal() && task.CompletedAt.IsZero() {
		task.CompletedAt = now
	}

	videoIDs, err := encodeVideoIDs(task.VideoIDs)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET
            target_ref = ?, target_title = ?, video_ids = ?, status = ?,
            verdict = ?, error_class = ?, error_message = ?, retry_count = ?,
            identity = ?, units = ?, started_at = ?, completed_at = ?
         WHERE id = ?`,
		nullableString(task.TargetRef), nullableString(task.TargetTitle),
		videoIDs, task.Status.String(),
		nullableString(task.Verdict), nullableString(task.ErrorClass),
		nullableString(task.ErrorMessage), task.RetryCount,
		nullableString(task.Identity), task.Units,
		nullableTime(task.StartedAt), nullableTime(task.CompletedAt),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check task update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, task.ID)
	}

	if err := s.recomputeCounters(ctx, tx, task.BatchID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task update: %w", err)
	}
	return nil
}

// PauseBatch records a pause reason. Resumable tasks of a paused batch are
// not processed until ResumeBatch clears the reason.
func (s *Store) PauseBatch(ctx context.Context, batchID, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET pause_reason = ?, paused_at = ? WHERE id = ?`,
		reason, formatTime(s.now().UTC()), batchID)
	if err != nil {
		return fmt.Errorf("failed to pause batch: %w", err)
	}
	return checkBatchAffected(res, batchID)
}

// ResumeBatch clears the pause flag.
func (s *Store) ResumeBatch(ctx context.Context, batchID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET pause_reason = NULL, resumed_at = ? WHERE id = ?`,
		formatTime(s.now().UTC()), batchID)
	if err != nil {
		return fmt.Errorf("failed to resume batch: %w", err)
	}
	return checkBatchAffected(res, batchID)
}

// Cleanup purges batches whose tasks are all terminal and whose completion
// predates the cutoff. Tasks go with their batch via the cascade. Returns
// the number of batches removed.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-olderThan)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM batches
         WHERE completed_at IS NOT NULL AND completed_at < ?
           AND NOT EXISTS (
               SELECT 1 FROM tasks
               WHERE tasks.batch_id = batches.id AND tasks.status NOT IN (?, ?, ?)
           )`,
		formatTime(cutoff),
		StatusCompleted.String(), StatusSkipped.String(), StatusFailedTerminal.String())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up batches: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleaned batches: %w", err)
	}
	return int(affected), nil
}

// recomputeCounters derives the batch counters from its task statuses so
// they can never drift, and stamps completed_at once every task is terminal.
func (s *Store) recomputeCounters(ctx context.Context, tx *sql.Tx, batchID string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE batches SET
            completed = (SELECT COUNT(*) FROM tasks WHERE batch_id = ? AND status = ?),
            skipped   = (SELECT COUNT(*) FROM tasks WHERE batch_id = ? AND status = ?),
            failed    = (SELECT COUNT(*) FROM tasks WHERE batch_id = ? AND status = ?)
         WHERE id = ?`,
		batchID, StatusCompleted.String(),
		batchID, StatusSkipped.String(),
		batchID, StatusFailedTerminal.String(),
		batchID,
	)
	if err != nil {
		return fmt.Errorf("failed to recompute batch counters: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE batches SET completed_at = COALESCE(completed_at, ?)
         WHERE id = ? AND NOT EXISTS (
             SELECT 1 FROM tasks
             WHERE batch_id = ? AND status NOT IN (?, ?, ?)
         )`,
		formatTime(now), batchID, batchID,
		StatusCompleted.String(), StatusSkipped.String(), StatusFailedTerminal.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to stamp batch completion: %w", err)
	}
	return nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func checkBatchAffected(res sql.Result, batchID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check batch update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", shared.ErrBatchNotFound, batchID)
	}
	return nil
}
