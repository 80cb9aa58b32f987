// package tasks orchestrates quota-aware playlist batch runs with real-time
// progress reporting.
//
// The core abstraction is Engine, which drains a journaled batch task by
// task: resolve the source, classify against the target, pick an identity
// that can afford the write, execute it through the retry policy, and
// journal the outcome before moving on. Operations emit progress updates
// via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"ytbatch/internal/dedup"
	"ytbatch/internal/identity"
	"ytbatch/internal/journal"
	"ytbatch/internal/quota"
	"ytbatch/internal/retry"
	"ytbatch/internal/services"
	"ytbatch/internal/shared"
)

// QuotaPauseReason is recorded on a batch halted by group-wide exhaustion.
const QuotaPauseReason = "quota exhausted"

// Engine drains journaled batches against the remote write API.
type Engine struct {
	extractor services.Extractor
	writer    services.WriteClient
	ledger    *quota.Ledger
	pool      *identity.Pool
	store     *journal.Store
	retryOpts retry.PolicyOpts
}

// EngineOpts contains the engine's collaborators.
type EngineOpts struct {
	Extractor services.Extractor
	Writer    services.WriteClient
	Ledger    *quota.Ledger
	Pool      *identity.Pool
	Journal   *journal.Store
	Retry     retry.PolicyOpts
}

// NewEngine creates an engine from its collaborators.
func NewEngine(opts EngineOpts) *Engine {
	return &Engine{
		extractor: opts.Extractor,
		writer:    opts.Writer,
		ledger:    opts.Ledger,
		pool:      opts.Pool,
		store:     opts.Journal,
		retryOpts: opts.Retry,
	}
}

// RunOpts are the per-run routing options. The batch itself carries dry-run
// and dedup flags from creation time.
type RunOpts struct {
	Group       string
	Environment string
	// Identity forces a specific identity, bypassing group filters.
	Identity string
	// Strict deletes target videos absent from the source when amending
	// an existing playlist, making the target an exact mirror.
	Strict bool
}

// Summary reports a run's outcome to the caller.
type Summary struct {
	BatchID      string
	Name         string
	Total        int
	Completed    int
	Skipped      int
	Failed       int
	UnitsSpent   int
	PausedReason string
	DryRun       bool
}

// runState carries per-run bookkeeping shared by the task loop and the
// retry policy's attempt callback.
type runState struct {
	opts     RunOpts
	progress chan<- ProgressUpdate
	policy   *retry.Policy
	task     *journal.Task // task currently in flight, for the attempt hook
	step     int
	total    int
	units    int
}

// Run processes every resumable task of a batch in creation order. Tasks are
// journaled through each transition, so the run can be interrupted at any
// point and picked up later. A paused or unknown batch is an error; use
// [Engine.Resume] to clear a pause first.
func (e *Engine) Run(ctx context.Context, batchID string, opts RunOpts, progress chan<- ProgressUpdate) (*Summary, error) {
	batch, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Paused() {
		return nil, fmt.Errorf("%w: %s (%s)", shared.ErrBatchPaused, batch.Name, batch.PauseReason)
	}

	pending, err := e.store.ResumableTasks(ctx, batch.ID)
	if err != nil {
		return nil, err
	}

	rs := &runState{opts: opts, progress: progress, total: batch.Total}
	rs.policy = e.buildPolicy(ctx, rs)

	done := batch.Total - len(pending)
	for i, task := range pending {
		if err := ctx.Err(); err != nil {
			// The journal already reflects everything finished so far.
			return nil, err
		}
		rs.step = done + i + 1

		paused, err := e.processTask(ctx, rs, batch, task)
		if err != nil {
			return nil, err
		}
		if paused {
			break
		}
	}

	return e.summarize(ctx, batch.ID, rs.units)
}

// Resume clears a batch's pause flag and runs its remaining tasks.
func (e *Engine) Resume(ctx context.Context, batchID string, opts RunOpts, progress chan<- ProgressUpdate) (*Summary, error) {
	batch, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Paused() {
		if err := e.store.ResumeBatch(ctx, batch.ID); err != nil {
			return nil, err
		}
	}
	return e.Run(ctx, batchID, opts, progress)
}

// buildPolicy wires the configured retry schedules to this run's progress
// channel and journal. The policy itself never prints; the engine surfaces
// its events.
func (e *Engine) buildPolicy(ctx context.Context, rs *runState) *retry.Policy {
	opts := e.retryOpts
	userHook := opts.OnAttempt
	opts.OnAttempt = func(a retry.Attempt) {
		if userHook != nil {
			userHook(a)
		}
		if task := rs.task; task != nil {
			// Journal the transient state before the wait, which can last
			// minutes, so a status query shows a retrying task rather than
			// one stuck in_progress. Best effort; the attempt outcome is
			// journaled authoritatively once the call resolves.
			status, count := task.Status, task.RetryCount
			task.Status = journal.StatusFailedRetry
			task.RetryCount = count + a.Number
			_ = e.store.UpdateTask(ctx, task)
			task.Status, task.RetryCount = status, count
		}
		e.send(rs, retryWaitUpdate(rs.step, rs.total, a))
	}
	return retry.NewPolicy(opts)
}

// processTask runs a single task to a terminal status, or pauses the batch
// when its identity group cannot afford the write. A returned error is an
// infrastructure failure that aborts the run; remote-call failures are
// journaled on the task instead.
func (e *Engine) processTask(ctx context.Context, rs *runState, batch *journal.Batch, task *journal.Task) (bool, error) {
	// A task found in_progress or mid-retry was in flight when a previous
	// run died, so its target must be re-verified with a fresh read before
	// any insert.
	resuming := task.Status == journal.StatusInProgress || task.Status == journal.StatusFailedRetry

	task.Status = journal.StatusInProgress
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return false, err
	}
	rs.task = task
	defer func() { rs.task = nil }()

	videoIDs, ok, err := e.resolveSource(ctx, rs, task)
	if err != nil || !ok {
		return false, err
	}

	plan, ok, err := e.classify(ctx, rs, batch, task, videoIDs, resuming)
	if err != nil || !ok {
		return false, err
	}

	if batch.DryRun {
		// Record the intended action without touching the remote side.
		task.Status = journal.StatusCompleted
		task.Units = 0
		if err := e.store.UpdateTask(ctx, task); err != nil {
			return false, err
		}
		e.send(rs, taskDoneUpdate(rs.step, rs.total, task))
		return false, nil
	}

	ident, paused, err := e.selectIdentity(ctx, rs, task, plan.totalCost())
	if err != nil || paused {
		return paused, err
	}

	return e.executePlan(ctx, rs, batch, task, ident, plan)
}

// writePlan is the set of remote calls one task has left to perform.
type writePlan struct {
	verdict     dedup.Verdict
	title       string
	description string
	insert      []string
	remove      []string
	retitle     bool
}

func (p *writePlan) totalCost() int {
	cost := 0
	if p.verdict == dedup.VerdictCreate {
		cost += quota.Cost(quota.OpCreate)
	}
	cost += len(p.insert) * quota.Cost(quota.OpInsert)
	cost += len(p.remove) * quota.Cost(quota.OpDelete)
	if p.retitle {
		cost += quota.Cost(quota.OpUpdate)
	}
	return cost
}

// resolveSource returns the task's planned video list, fetching the source
// playlist unless the plan pinned one at batch creation. ok=false means the
// task reached a terminal status here.
func (e *Engine) resolveSource(ctx context.Context, rs *runState, task *journal.Task) ([]string, bool, error) {
	e.send(rs, fetchSourceUpdate(rs.step, rs.total, task.SourceRef))

	videoIDs := task.VideoIDs
	if len(videoIDs) == 0 {
		export, err := e.extractor.FetchPlaylist(ctx, task.SourceRef, true)
		if err != nil {
			return nil, false, e.failTask(ctx, rs, task, err)
		}
		videoIDs = export.VideoIDs
		if task.SourceTitle == "" {
			task.SourceTitle = export.Playlist.Title
		}
	}

	if len(videoIDs) == 0 {
		task.Status = journal.StatusSkipped
		task.Verdict = dedup.VerdictSkip.String()
		task.ErrorMessage = "source playlist is empty"
		if err := e.store.UpdateTask(ctx, task); err != nil {
			return nil, false, err
		}
		e.send(rs, taskDoneUpdate(rs.step, rs.total, task))
		return nil, false, nil
	}
	return videoIDs, true, nil
}

// classify builds the task's write plan, consulting the dedup engine when a
// target is designated. ok=false means the task reached a terminal status.
func (e *Engine) classify(ctx context.Context, rs *runState, batch *journal.Batch, task *journal.Task, videoIDs []string, resuming bool) (*writePlan, bool, error) {
	plan := &writePlan{
		verdict:     dedup.VerdictCreate,
		title:       task.TargetTitle,
		description: fmt.Sprintf("Copied from %s", taskLabel(task)),
		insert:      videoIDs,
	}
	if plan.title == "" {
		plan.title = task.SourceTitle
	}

	if task.TargetRef == "" || (!batch.Dedup && !resuming) {
		task.Verdict = plan.verdict.String()
		return plan, true, nil
	}

	// Crash recovery must see the target's real current state, not a
	// cached snapshot that predates the interrupted write.
	target, err := e.extractor.FetchPlaylist(ctx, task.TargetRef, !resuming)
	if err != nil {
		if retry.Classify(err) == retry.ClassNotFound {
			// Designated target is gone; fall through to a fresh create.
			task.TargetRef = ""
			task.Verdict = plan.verdict.String()
			return plan, true, nil
		}
		return nil, false, e.failTask(ctx, rs, task, err)
	}

	decision := dedup.Classify(videoIDs, target.VideoIDs)
	task.Verdict = decision.Verdict.String()
	e.send(rs, classifyUpdate(rs.step, rs.total, task.Verdict, decision.MatchRatio))

	switch decision.Verdict {
	case dedup.VerdictSkip:
		task.Status = journal.StatusSkipped
		if err := e.store.UpdateTask(ctx, task); err != nil {
			return nil, false, err
		}
		e.send(rs, taskDoneUpdate(rs.step, rs.total, task))
		return nil, false, nil

	case dedup.VerdictUpdate:
		plan.verdict = dedup.VerdictUpdate
		plan.insert = decision.Missing
		plan.retitle = task.TargetTitle != "" && task.TargetTitle != target.Playlist.Title
		if rs.opts.Strict {
			plan.remove = extraVideos(videoIDs, target.VideoIDs)
		}
		return plan, true, nil

	default:
		// Below the overlap threshold the existing target is unrelated;
		// write a fresh playlist and leave it alone.
		task.TargetRef = ""
		return plan, true, nil
	}
}

// selectIdentity picks a writer that can afford the whole plan, pausing the
// batch when the group is spent.
func (e *Engine) selectIdentity(ctx context.Context, rs *runState, task *journal.Task, cost int) (*identity.Identity, bool, error) {
	ident, err := e.pool.SelectForWrite(rs.opts.Group, rs.opts.Environment, rs.opts.Identity, cost)
	if errors.Is(err, shared.ErrNoAvailableIdentity) {
		return nil, true, e.pause(ctx, rs, task.BatchID)
	}
	if err != nil {
		return nil, false, err
	}

	// A forced identity skips the pool's quota filter, so check it here
	// and fail over inside its group if it cannot afford the plan.
	if !e.ledger.CanSpend(ident.Name, cost) {
		switched, next := e.pool.OnExhausted(ident, cost)
		if !switched {
			return nil, true, e.pause(ctx, rs, task.BatchID)
		}
		e.send(rs, rotateIdentityUpdate(rs.step, rs.total, ident.Name, next.Name))
		ident = next
	}

	e.send(rs, selectIdentityUpdate(rs.step, rs.total, ident.Name))
	return ident, false, nil
}

// executePlan performs the plan's remote calls in order, journaling after
// every accounted call so an interruption never repeats a finished write.
func (e *Engine) executePlan(ctx context.Context, rs *runState, batch *journal.Batch, task *journal.Task, ident *identity.Identity, plan *writePlan) (bool, error) {
	e.send(rs, writeUpdate(rs.step, rs.total, plan.title, len(plan.insert)))

	if plan.verdict == dedup.VerdictCreate {
		spec := services.PlaylistSpec{
			Title:       plan.title,
			Description: plan.description,
			Privacy:     "private",
		}
		paused, err := e.step(ctx, rs, task, &ident, quota.Cost(quota.OpCreate), func(name string) error {
			ref, err := e.writer.CreatePlaylist(ctx, name, spec)
			if err == nil {
				task.TargetRef = ref
				task.TargetTitle = plan.title
			}
			return err
		})
		if paused || err != nil {
			return paused, err
		}
		if task.Status.Terminal() {
			return false, nil
		}
	}

	if len(plan.insert) > 0 {
		cost := len(plan.insert) * quota.Cost(quota.OpInsert)
		paused, err := e.step(ctx, rs, task, &ident, cost, func(name string) error {
			return e.writer.InsertItems(ctx, name, task.TargetRef, plan.insert)
		})
		if paused || err != nil {
			return paused, err
		}
		if task.Status.Terminal() {
			return false, nil
		}
	}

	if len(plan.remove) > 0 {
		cost := len(plan.remove) * quota.Cost(quota.OpDelete)
		paused, err := e.step(ctx, rs, task, &ident, cost, func(name string) error {
			return e.writer.DeleteItems(ctx, name, task.TargetRef, plan.remove)
		})
		if paused || err != nil {
			return paused, err
		}
		if task.Status.Terminal() {
			return false, nil
		}
	}

	if plan.retitle {
		spec := services.PlaylistSpec{Title: task.TargetTitle}
		paused, err := e.step(ctx, rs, task, &ident, quota.Cost(quota.OpUpdate), func(name string) error {
			return e.writer.UpdatePlaylist(ctx, name, task.TargetRef, spec)
		})
		if paused || err != nil {
			return paused, err
		}
		if task.Status.Terminal() {
			return false, nil
		}
	}

	task.Status = journal.StatusCompleted
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return false, err
	}
	e.send(rs, taskDoneUpdate(rs.step, rs.total, task))
	return false, nil
}

// step executes one remote call through the retry policy, accounts its cost
// on success, and journals the task's progress. Budget exhaustion fails over
// within the identity's group and pauses the batch when none is left; other
// terminal errors finish the task as failed_terminal.
func (e *Engine) step(ctx context.Context, rs *runState, task *journal.Task, ident **identity.Identity, cost int, call func(identityName string) error) (bool, error) {
	for {
		retries, err := rs.policy.Execute(ctx, func() error {
			return call((*ident).Name)
		})
		task.RetryCount += retries

		if err == nil {
			if rerr := e.ledger.Record((*ident).Name, cost); rerr != nil {
				return false, rerr
			}
			rs.units += cost
			task.Identity = (*ident).Name
			task.Units += cost
			return false, e.store.UpdateTask(ctx, task)
		}

		if ctx.Err() != nil {
			// Persist the attempt count, then surface the cancellation.
			// The run context is already dead, so the write needs its own.
			if uerr := e.store.UpdateTask(context.WithoutCancel(ctx), task); uerr != nil {
				return false, uerr
			}
			return false, err
		}

		if retry.Classify(err) == retry.ClassBudgetExhausted {
			switched, next := e.pool.OnExhausted(*ident, cost)
			if switched {
				e.send(rs, rotateIdentityUpdate(rs.step, rs.total, (*ident).Name, next.Name))
				*ident = next
				continue
			}
			if uerr := e.store.UpdateTask(ctx, task); uerr != nil {
				return false, uerr
			}
			return true, e.pause(ctx, rs, task.BatchID)
		}

		return false, e.failTask(ctx, rs, task, err)
	}
}

// failTask records a terminal failure on the task. The batch carries on; a
// single playlist's failure must not abort the rest.
func (e *Engine) failTask(ctx context.Context, rs *runState, task *journal.Task, cause error) error {
	task.Status = journal.StatusFailedTerminal
	task.ErrorClass = retry.Classify(cause).String()
	task.ErrorMessage = cause.Error()
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return err
	}
	e.send(rs, taskDoneUpdate(rs.step, rs.total, task))
	return nil
}

func (e *Engine) pause(ctx context.Context, rs *runState, batchID string) error {
	if err := e.store.PauseBatch(ctx, batchID, QuotaPauseReason); err != nil {
		return err
	}
	e.send(rs, pauseUpdate(rs.step, rs.total, QuotaPauseReason))
	return nil
}

func (e *Engine) summarize(ctx context.Context, batchID string, units int) (*Summary, error) {
	batch, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		BatchID:      batch.ID,
		Name:         batch.Name,
		Total:        batch.Total,
		Completed:    batch.Completed,
		Skipped:      batch.Skipped,
		Failed:       batch.Failed,
		UnitsSpent:   units,
		PausedReason: batch.PauseReason,
		DryRun:       batch.DryRun,
	}, nil
}

// send delivers a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls execution.
func (e *Engine) send(rs *runState, update ProgressUpdate) {
	if rs.progress == nil {
		return
	}
	select {
	case rs.progress <- update:
	default:
	}
}

// extraVideos returns the target videos absent from the source, in target
// order, for strict-mode pruning.
func extraVideos(source, target []string) []string {
	sourceSet := make(map[string]struct{}, len(source))
	for _, id := range source {
		sourceSet[id] = struct{}{}
	}
	var extras []string
	for _, id := range target {
		if _, ok := sourceSet[id]; !ok {
			extras = append(extras, id)
		}
	}
	return extras
}
