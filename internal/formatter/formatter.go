// package formatter renders batch summaries, task tables, and quota reports
// for terminal output and file export.
package formatter

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"ytbatch/internal/journal"
	"ytbatch/internal/quota"
	"ytbatch/internal/shared"
	"ytbatch/internal/tasks"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Italic(true)
)

// Summary renders a run summary block.
func Summary(s *tasks.Summary) string {
	var b strings.Builder

	header := s.Name
	if s.DryRun {
		header += " (dry run)"
	}
	b.WriteString(titleStyle.Render(header) + "\n")
	b.WriteString(fmt.Sprintf("  Total:     %d\n", s.Total))
	b.WriteString(fmt.Sprintf("  Completed: %s\n", okStyle.Render(fmt.Sprintf("%d", s.Completed))))
	b.WriteString(fmt.Sprintf("  Skipped:   %d\n", s.Skipped))
	if s.Failed > 0 {
		b.WriteString(fmt.Sprintf("  Failed:    %s\n", errStyle.Render(fmt.Sprintf("%d", s.Failed))))
	} else {
		b.WriteString(fmt.Sprintf("  Failed:    %d\n", s.Failed))
	}
	b.WriteString(fmt.Sprintf("  Units:     %d\n", s.UnitsSpent))

	if s.PausedReason != "" {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  Paused: %s", s.PausedReason)) + "\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  Resume with: ytbatch batch resume %s", s.BatchID)) + "\n")
	}
	return b.String()
}

// BatchTable renders one line per batch, newest first.
func BatchTable(batches []*journal.Batch) string {
	if len(batches) == 0 {
		return dimStyle.Render("No batches journaled.") + "\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-36s  %-20s  %-9s  %s\n", "ID", "NAME", "PROGRESS", "STATE"))
	for _, batch := range batches {
		state := batchState(batch)
		progress := fmt.Sprintf("%d/%d", batch.Completed+batch.Skipped+batch.Failed, batch.Total)
		b.WriteString(fmt.Sprintf("%-36s  %-20s  %-9s  %s\n", batch.ID, truncate(batch.Name, 20), progress, state))
	}
	return b.String()
}

// TaskTable renders one line per task in batch order.
func TaskTable(items []*journal.Task) string {
	if len(items) == 0 {
		return dimStyle.Render("No tasks.") + "\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-4s  %-24s  %-16s  %-8s  %-6s  %s\n", "SEQ", "SOURCE", "STATUS", "VERDICT", "UNITS", "DETAIL"))
	for _, task := range items {
		source := task.SourceTitle
		if source == "" {
			source = task.SourceRef
		}
		detail := task.ErrorMessage
		if detail == "" && task.Identity != "" {
			detail = "via " + task.Identity
		}
		b.WriteString(fmt.Sprintf("%-4d  %-24s  %-16s  %-8s  %-6d  %s\n",
			task.Seq, truncate(source, 24), renderStatus(task.Status), task.Verdict, task.Units, detail))
	}
	return b.String()
}

// QuotaReport renders per-identity budget consumption with threshold
// warnings at 80% and 95%, plus the shared time until the daily reset.
func QuotaReport(states []quota.State, untilReset time.Duration) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Quota") + "\n")
	b.WriteString(fmt.Sprintf("%-16s  %-18s  %s\n", "IDENTITY", "CONSUMED", "REMAINING"))

	for _, state := range states {
		consumed := fmt.Sprintf("%d / %d", state.Consumed, state.Allocated)
		remaining := fmt.Sprintf("%d", state.Remaining())

		used := 0.0
		if state.Allocated > 0 {
			used = float64(state.Consumed) / float64(state.Allocated)
		}
		line := fmt.Sprintf("%-16s  %-18s  %s", state.Identity, consumed, remaining)
		switch {
		case used >= 0.95:
			line = errStyle.Render(line + "  (over 95% spent)")
		case used >= 0.80:
			line = warnStyle.Render(line + "  (over 80% spent)")
		}
		b.WriteString(line + "\n")
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("Daily reset in %s", shared.FormatDuration(untilReset))) + "\n")
	return b.String()
}

// ExportReport renders a bulk export result.
func ExportReport(result *tasks.BulkExportResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Export") + "\n")
	b.WriteString(fmt.Sprintf("  Playlists: %d\n", result.TotalPlaylists))
	b.WriteString(fmt.Sprintf("  Exported:  %s\n", okStyle.Render(fmt.Sprintf("%d", result.SuccessfulExports))))
	if result.FailedExports > 0 {
		b.WriteString(fmt.Sprintf("  Failed:    %s\n", errStyle.Render(fmt.Sprintf("%d", result.FailedExports))))
		for _, res := range result.Results {
			if !res.Success {
				b.WriteString(dimStyle.Render(fmt.Sprintf("    %s: %s", res.Ref, res.Error)) + "\n")
			}
		}
	}
	b.WriteString(fmt.Sprintf("  Directory: %s\n", result.OutputDirectory))
	return b.String()
}

// WriteSummaryJSON exports a run summary as pretty JSON for scripting.
func WriteSummaryJSON(s *tasks.Summary, path string) error {
	data, err := shared.MarshalJSON(s, true)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

func renderStatus(status journal.Status) string {
	switch status {
	case journal.StatusCompleted:
		return okStyle.Render(status.String())
	case journal.StatusFailedTerminal:
		return errStyle.Render(status.String())
	case journal.StatusSkipped, journal.StatusFailedRetry:
		return warnStyle.Render(status.String())
	default:
		return status.String()
	}
}

func batchState(batch *journal.Batch) string {
	switch {
	case batch.Paused():
		return warnStyle.Render("paused: " + batch.PauseReason)
	case !batch.CompletedAt.IsZero() && batch.Failed > 0:
		return errStyle.Render("done with failures")
	case !batch.CompletedAt.IsZero():
		return okStyle.Render("done")
	default:
		return "running"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
