package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"ytbatch/internal/journal"
)

var _ list.Item = batchItem{}

// batchItem wraps [journal.Batch] to implement [list.Item].
type batchItem struct {
	batch *journal.Batch
}

func (i batchItem) FilterValue() string { return i.batch.Name }
func (i batchItem) Title() string       { return i.batch.Name }
func (i batchItem) Description() string {
	done := i.batch.Completed + i.batch.Skipped + i.batch.Failed
	desc := fmt.Sprintf("%d/%d tasks", done, i.batch.Total)
	switch {
	case i.batch.Paused():
		desc = fmt.Sprintf("%s • paused: %s", desc, i.batch.PauseReason)
	case !i.batch.CompletedAt.IsZero():
		desc = fmt.Sprintf("%s • done", desc)
	}
	if i.batch.DryRun {
		desc += " • dry run"
	}
	return desc
}
