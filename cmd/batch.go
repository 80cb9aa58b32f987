package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"ytbatch/internal/formatter"
	"ytbatch/internal/journal"
	"ytbatch/internal/shared"
	"ytbatch/internal/tasks"
)

// BatchCopy journals one copy task per source playlist and runs the batch
// unless --plan is set.
func (r *Runner) BatchCopy(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.Args().Slice()
	if len(refs) == 0 {
		return fmt.Errorf("%w: at least one source playlist is required", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(); err != nil {
		return err
	}

	specs, err := r.engine.PlanCopy(ctx, refs)
	if err != nil {
		return fmt.Errorf("failed to plan copy: %w", err)
	}

	return r.createAndMaybeRun(ctx, cmd, batchName(cmd, fmt.Sprintf("copy %d playlists", len(refs))), specs)
}

// BatchMerge journals a single task concatenating several sources into one
// target playlist.
func (r *Runner) BatchMerge(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.Args().Slice()
	if len(refs) < 2 {
		return fmt.Errorf("%w: merge needs at least two source playlists", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(); err != nil {
		return err
	}

	specs, err := r.engine.PlanMerge(ctx, refs, cmd.String("title"))
	if err != nil {
		return fmt.Errorf("failed to plan merge: %w", err)
	}

	return r.createAndMaybeRun(ctx, cmd, batchName(cmd, "merge "+specs[0].TargetTitle), specs)
}

// BatchSplit journals one task per chunk of the source playlist.
func (r *Runner) BatchSplit(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("source")
	if ref == "" {
		return fmt.Errorf("%w: source playlist is required", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(); err != nil {
		return err
	}

	specs, err := r.engine.PlanSplit(ctx, ref, cmd.Int("chunk-size"))
	if err != nil {
		return fmt.Errorf("failed to plan split: %w", err)
	}

	return r.createAndMaybeRun(ctx, cmd, batchName(cmd, fmt.Sprintf("split %s into %d", ref, len(specs))), specs)
}

// BatchResume clears a batch's pause marker and drains its remaining tasks.
func (r *Runner) BatchResume(ctx context.Context, cmd *cli.Command) error {
	batchID := cmd.StringArg("id")
	if batchID == "" {
		return fmt.Errorf("%w: batch id is required", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(); err != nil {
		return err
	}

	return r.runBatch(ctx, cmd, batchID, true)
}

// BatchStatus prints a batch's counters and per-task journal entries.
func (r *Runner) BatchStatus(ctx context.Context, cmd *cli.Command) error {
	batchID := cmd.StringArg("id")
	if batchID == "" {
		return fmt.Errorf("%w: batch id is required", shared.ErrMissingArgument)
	}

	if err := r.bootstrap(); err != nil {
		return err
	}

	batch, err := r.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	items, err := r.store.TasksForBatch(ctx, batchID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Batch *journal.Batch  `json:"batch"`
			Tasks []*journal.Task `json:"tasks"`
		}{Batch: batch, Tasks: items}, cmd.Bool("pretty"))
	}

	r.writePlain("%s", formatter.BatchTable([]*journal.Batch{batch}))
	r.writePlain("%s", formatter.TaskTable(items))
	return nil
}

// BatchList prints every journaled batch, newest first.
func (r *Runner) BatchList(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	batches, err := r.store.ListBatches(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(batches, cmd.Bool("pretty"))
	}
	if len(batches) == 0 {
		return r.writePlain("No journaled batches.\n")
	}
	return r.writePlain("%s", formatter.BatchTable(batches))
}

// BatchCleanup deletes finished batches past the configured retention window.
func (r *Runner) BatchCleanup(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(); err != nil {
		return err
	}

	days := cmd.Int("days")
	if days <= 0 {
		days = r.config.Journal.RetentionDays
	}

	removed, err := r.store.Cleanup(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to clean up journal: %w", err)
	}

	r.logger.Info("journal cleanup complete", "removed", removed, "retention_days", days)
	return r.writePlain("Removed %d finished batches older than %d days.\n", removed, days)
}

// createAndMaybeRun journals a new batch from the planned task specs, then
// immediately runs it unless --plan was given.
func (r *Runner) createAndMaybeRun(ctx context.Context, cmd *cli.Command, name string, specs []journal.TaskSpec) error {
	opts := journal.BatchOpts{
		DryRun: cmd.Bool("dry-run"),
		Dedup:  !cmd.Bool("no-dedup"),
	}

	batch, err := r.store.CreateBatch(ctx, name, opts, specs)
	if err != nil {
		return fmt.Errorf("failed to journal batch: %w", err)
	}
	r.logger.Info("batch journaled", "id", batch.ID, "name", batch.Name, "tasks", batch.Total)

	if cmd.Bool("plan") {
		r.writePlain("Journaled batch %s with %d tasks.\n", batch.ID, batch.Total)
		r.writePlain("Run it with: ytbatch batch resume %s\n", batch.ID)
		return nil
	}

	return r.runBatch(ctx, cmd, batch.ID, false)
}

// runBatch drives the engine over a journaled batch, streaming progress to
// the logger and printing the final summary.
func (r *Runner) runBatch(ctx context.Context, cmd *cli.Command, batchID string, resume bool) error {
	progress := make(chan tasks.ProgressUpdate, 64)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String(), "step", update.Step, "total", update.Total)
		}
	}()

	opts := runOptsFromFlags(cmd)

	var summary *tasks.Summary
	var err error
	if resume {
		summary, err = r.engine.Resume(ctx, batchID, opts, progress)
	} else {
		summary, err = r.engine.Run(ctx, batchID, opts, progress)
	}
	close(progress)
	<-drained

	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	if path := cmd.String("summary-file"); path != "" {
		if err := formatter.WriteSummaryJSON(summary, path); err != nil {
			return err
		}
		r.logger.Info("summary written", "path", path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.Summary(summary))
}

func batchName(cmd *cli.Command, fallback string) string {
	if name := cmd.String("name"); name != "" {
		return name
	}
	return fallback
}
