// package journal persists batches and their tasks in SQLite so that a run
// interrupted at any point can be resumed without re-executing finished work.
//
// Every task transition is written before the orchestrator moves on. The
// journal is write-ahead with respect to remote calls: a task is marked
// in_progress before its write is dispatched and terminal only after the
// outcome is known.
package journal

import "time"

// Status represents the lifecycle of a journaled task.
type Status string

const (
	StatusPending        Status = "pending"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusSkipped        Status = "skipped"
	StatusFailedRetry    Status = "failed_retryable"
	StatusFailedTerminal Status = "failed_terminal"
)

var terminalStatuses = map[Status]struct{}{
	StatusCompleted:      {},
	StatusSkipped:        {},
	StatusFailedTerminal: {},
}

// Terminal reports whether a task in this status is finished for good.
// failed_retryable is not terminal; the orchestrator re-queues it until the
// retry budget runs out.
func (s Status) Terminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// String returns the status name for rows and logs.
func (s Status) String() string {
	return string(s)
}

// Task is one unit of work within a batch: copy one source playlist into a
// new or existing target.
type Task struct {
	ID          string
	BatchID     string
	Seq         int
	SourceRef   string
	SourceTitle string
	TargetRef   string
	TargetTitle string
	// VideoIDs pins the planned content at batch creation time so merge
	// and split tasks survive a restart without re-planning. Empty means
	// the task copies whatever the source holds at execution time.
	VideoIDs     []string
	Status       Status
	Verdict      string
	ErrorClass   string
	ErrorMessage string
	RetryCount   int
	Identity     string
	Units        int
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
}

// TaskSpec describes a task to be journaled when a batch is created.
type TaskSpec struct {
	SourceRef   string
	SourceTitle string
	TargetRef   string
	TargetTitle string
	VideoIDs    []string
}

// Batch is a named collection of tasks sharing one set of run options.
type Batch struct {
	ID          string
	Name        string
	DryRun      bool
	Dedup       bool
	Total       int
	Completed   int
	Failed      int
	Skipped     int
	PauseReason string
	CreatedAt   time.Time
	PausedAt    time.Time
	ResumedAt   time.Time
	CompletedAt time.Time
}

// Paused reports whether the batch is currently paused.
func (b *Batch) Paused() bool {
	return b.PauseReason != ""
}

// Done reports whether every task reached a terminal status.
func (b *Batch) Done() bool {
	return b.Completed+b.Failed+b.Skipped >= b.Total
}

// BatchOpts carries the run options recorded with a new batch.
type BatchOpts struct {
	DryRun bool
	Dedup  bool
}
