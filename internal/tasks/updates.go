package tasks

import (
	"fmt"
	"time"

	"ytbatch/internal/journal"
	"ytbatch/internal/retry"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current task number within the batch
	Total   int    // Total tasks in the batch
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PlanBatch Phase = iota
	FetchSource
	ClassifyTarget
	SelectIdentity
	WriteTarget
	RetryWait
	RotateIdentity
	TaskDone
	PauseBatch
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case PlanBatch:
		return "plan_batch"
	case FetchSource:
		return "fetch_source"
	case ClassifyTarget:
		return "classify_target"
	case SelectIdentity:
		return "select_identity"
	case WriteTarget:
		return "write_target"
	case RetryWait:
		return "retry_wait"
	case RotateIdentity:
		return "rotate_identity"
	case TaskDone:
		return "task_done"
	case PauseBatch:
		return "pause_batch"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func fetchSourceUpdate(step, total int, ref string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching source playlist %s...", step, total, ref),
	}
}

func classifyUpdate(step, total int, verdict string, ratio float64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClassifyTarget,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Target overlap %.0f%%, verdict: %s", step, total, ratio*100, verdict),
	}
}

func selectIdentityUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SelectIdentity,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Writing as %s", step, total, name),
	}
}

func writeUpdate(step, total int, title string, videos int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTarget,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Writing %s (%d videos)...", step, total, title, videos),
	}
}

func retryWaitUpdate(step, total int, attempt retry.Attempt) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RetryWait,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s, retry %d in %s", step, total, attempt.Class, attempt.Number, attempt.Delay.Round(time.Millisecond)),
		Data:    attempt,
	}
}

func rotateIdentityUpdate(step, total int, from, to string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RotateIdentity,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Identity %s exhausted, switching to %s", step, total, from, to),
	}
}

func taskDoneUpdate(step, total int, task *journal.Task) ProgressUpdate {
	var msg string
	switch task.Status {
	case journal.StatusCompleted:
		msg = fmt.Sprintf("[%d/%d] ✓ %s (%d units)", step, total, taskLabel(task), task.Units)
	case journal.StatusSkipped:
		msg = fmt.Sprintf("[%d/%d] ~ %s skipped", step, total, taskLabel(task))
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, taskLabel(task), task.ErrorMessage)
	}
	return ProgressUpdate{
		Phase:   TaskDone,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    task,
	}
}

func pauseUpdate(step, total int, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PauseBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Batch paused: %s", reason),
	}
}

func exportingUpdate(step, total int, ref string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting %s...", step, total, ref),
	}
}

func exportDoneUpdate(step, total int, title string, videos int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d videos)", step, total, title, videos),
	}
}

func exportFailedUpdate(step, total int, ref string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, ref, err),
	}
}

func taskLabel(task *journal.Task) string {
	if task.SourceTitle != "" {
		return task.SourceTitle
	}
	return task.SourceRef
}
