package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"ytbatch/internal/formatter"
	"ytbatch/internal/journal"
	"ytbatch/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BatchListView ViewState = iota
	RunView
	ResultView
)

// maxLogLines bounds the rolling progress log shown during a run.
const maxLogLines = 8

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	engine *tasks.Engine
	store  *journal.Store
	opts   tasks.RunOpts

	view      ViewState
	batchList list.Model
	spin      spinner.Model
	bar       progress.Model
	help      help.Model
	keys      keyMap

	progressChan chan tasks.ProgressUpdate
	doneChan     chan runOutcome
	messages     []string
	current      tasks.ProgressUpdate
	summary      *tasks.Summary
	err          error
	width        int
	height       int
}

type runOutcome struct {
	summary *tasks.Summary
	err     error
}

type batchesLoadedMsg struct {
	batches []*journal.Batch
	err     error
}

type progressMsg tasks.ProgressUpdate

type progressClosedMsg struct{}

type runDoneMsg runOutcome

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.Engine, store *journal.Store, opts tasks.RunOpts) *Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.title

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Journaled batches"
	l.SetShowHelp(false)

	return &Model{
		ctx:       ctx,
		engine:    engine,
		store:     store,
		opts:      opts,
		view:      BatchListView,
		batchList: l,
		spin:      spin,
		bar:       progress.New(progress.WithDefaultGradient()),
		help:      help.New(),
		keys:      newKeyMap(),
		doneChan:  make(chan runOutcome, 1),
	}
}

// Init initializes the TUI by loading the journaled batches.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadBatches())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.batchList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case batchesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.batches))
		for _, batch := range msg.batches {
			items = append(items, batchItem{batch: batch})
		}
		m.batchList.SetItems(items)
		return m, nil

	case progressMsg:
		m.current = tasks.ProgressUpdate(msg)
		m.messages = append(m.messages, m.current.Message)
		if len(m.messages) > maxLogLines {
			m.messages = m.messages[len(m.messages)-maxLogLines:]
		}
		return m, m.waitForProgress()

	case progressClosedMsg:
		return m, nil

	case runDoneMsg:
		m.summary = msg.summary
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		if m.cancel != nil {
			// The engine persists journal state at its next checkpoint.
			m.cancel()
		}
		return m, tea.Quit
	}

	switch m.view {
	case BatchListView:
		if key.Matches(msg, m.keys.enter) {
			if item, ok := m.batchList.SelectedItem().(batchItem); ok {
				return m, m.startRun(item.batch.ID)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.batchList, cmd = m.batchList.Update(msg)
		return m, cmd

	case ResultView:
		if key.Matches(msg, m.keys.back) {
			m.view = BatchListView
			m.summary = nil
			m.err = nil
			m.messages = nil
			return m, m.loadBatches()
		}
	}
	return m, nil
}

// View renders the current view state.
func (m *Model) View() string {
	switch m.view {
	case RunView:
		return m.runView()
	case ResultView:
		return m.resultView()
	default:
		return m.listView()
	}
}

func (m *Model) listView() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	return m.batchList.View() + "\n" + m.help.View(m.keys)
}

func (m *Model) runView() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Running batch") + "\n")
	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spin.View(), m.current.Message))

	if m.current.Total > 0 {
		pct := float64(m.current.Step) / float64(m.current.Total)
		b.WriteString(m.bar.ViewAs(pct) + "\n\n")
	}

	for _, line := range m.messages {
		b.WriteString(styles.help.Render(line) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) resultView() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Run failed: %v", m.err)) + "\n")
	}
	if m.summary != nil {
		b.WriteString(formatter.Summary(m.summary))
	}
	b.WriteString(styles.help.Render("esc to go back, q to quit") + "\n")
	return b.String()
}

func (m *Model) loadBatches() tea.Cmd {
	return func() tea.Msg {
		batches, err := m.store.ListBatches(m.ctx)
		return batchesLoadedMsg{batches: batches, err: err}
	}
}

// startRun launches the engine in a goroutine and begins pumping its
// progress channel into the update loop.
func (m *Model) startRun(batchID string) tea.Cmd {
	m.view = RunView
	m.messages = nil
	m.current = tasks.ProgressUpdate{Message: "Starting..."}
	m.progressChan = make(chan tasks.ProgressUpdate, 64)

	runCtx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel

	progressChan := m.progressChan
	go func() {
		summary, err := m.engine.Resume(runCtx, batchID, m.opts, progressChan)
		close(progressChan)
		m.doneChan <- runOutcome{summary: summary, err: err}
	}()

	return tea.Batch(m.waitForProgress(), m.waitForDone(), m.spin.Tick)
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			return progressClosedMsg{}
		}
		return progressMsg(update)
	}
}

func (m *Model) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return runDoneMsg(<-m.doneChan)
	}
}
