// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a compact workflow for supervising batch runs:
//  1. [BatchListView] : Browse journaled batches and their states
//  2. [RunView] : Watch a running batch with live task progress and retry events
//  3. [ResultView] : Display the run summary, including pause remediation
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the batch engine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
// Quitting mid-run cancels the engine's context; the journal keeps everything already finished.
package ui
