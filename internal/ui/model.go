package ui

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"ghsearch/internal/config"
	"ghsearch/internal/search"
	"ghsearch/internal/ui/viewmodels"
	"ghsearch/internal/ui/views"
)

// SearchController is the part of the search controller the UI drives
type SearchController interface {
	OnInputChange(text string)
	DismissAlert()
	Snapshot() search.Snapshot
}

// Model represents the UI state
type Model struct {
	ctrl   SearchController
	config *config.Config
	logger *slog.Logger

	width  int
	height int

	input   textinput.Model
	spinner spinner.Model
	table   table.Model
	help    help.Model
	keys    keyMap

	renderer     *views.Renderer
	viewModel    *viewmodels.ViewModel
	helpRenderer *HelpRenderer
	helpOps      *HelpOps

	showHelp       bool // inline help popup, used when the pager is unavailable
	inPagerMode    bool // tracks if we're currently in pager mode
	lastGeneration uint64

	// Program reference for terminal management
	program *tea.Program
}

// NewModel creates a new UI model
func NewModel(ctrl SearchController, cfg *config.Config, logger *slog.Logger) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	renderer := views.NewRenderer()

	ti := textinput.New()
	ti.Placeholder = cfg.UI.Placeholder
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = renderer.Styles().Loading

	tbl := table.New(
		table.WithColumns(views.UserColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(renderer.Styles().TableStyles()),
	)

	m := &Model{
		ctrl:         ctrl,
		config:       cfg,
		logger:       logger,
		input:        ti,
		spinner:      sp,
		table:        tbl,
		help:         help.New(),
		keys:         defaultKeyMap(),
		renderer:     renderer,
		viewModel:    viewmodels.NewViewModel(cfg),
		helpRenderer: NewHelpRenderer(cfg.UI.Title),
	}
	m.applySnapshot(ctrl.Snapshot())
	return m
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
	m.helpOps = NewHelpOps(p)
}

// SetQuery pre-fills the input and starts a search for it
func (m *Model) SetQuery(q string) {
	m.input.SetValue(q)
	m.input.CursorEnd()
	m.viewModel.SetRawInput(q)
	if q != "" {
		m.ctrl.OnInputChange(q)
	}
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-12)
		m.table.SetColumns(views.UserColumns(msg.Width))
		// Title, input box, count line and help bar
		m.table.SetHeight(max(3, msg.Height-14))
		m.viewModel.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case helpPagerMsg:
		if msg.err != nil {
			// Pager failed, fall back to popup
			m.logger.Warn("help pager failed", slog.String("error", msg.err.Error()))
			m.showHelp = true
		}
		return m, nil

	case pauseRenderingMsg:
		m.inPagerMode = true
		return m, nil

	case resumeRenderingMsg:
		m.inPagerMode = false
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc", "?", "q":
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Dismiss):
		// Off the update loop: the controller republishes synchronously
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctrl.DismissAlert()
			return nil
		}

	case key.Matches(msg, m.keys.Help):
		if m.program != nil {
			return m, m.fetchHelpPager(m.helpRenderer.RenderHelpContent())
		}
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Up, m.keys.Down):
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.viewModel.SetRawInput(after)
		m.ctrl.OnInputChange(after)
	}
	return m, cmd
}

// applySnapshot renders s unless a newer snapshot is already shown
func (m *Model) applySnapshot(s search.Snapshot) {
	if !m.viewModel.Apply(s) {
		m.logger.Debug("stale snapshot dropped", slog.Uint64("version", s.Version))
		return
	}
	m.table.SetRows(views.UserRows(s.Users))
	if s.Generation != m.lastGeneration {
		m.lastGeneration = s.Generation
		m.table.GotoTop()
	}
}

// fetchHelpPager returns a command that shows help using ov pager
func (m *Model) fetchHelpPager(helpContent string) tea.Cmd {
	program, ops := m.program, m.helpOps
	return func() tea.Msg {
		// Send pause message to stop rendering
		program.Send(pauseRenderingMsg{})

		err := ops.ShowHelpInPager(helpContent)

		// Send resume message to restart rendering
		program.Send(resumeRenderingMsg{})

		return helpPagerMsg{err: err}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.inPagerMode {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	state := m.viewModel.BuildViewState(viewmodels.Widgets{
		Input:   m.input.View(),
		Spinner: m.spinner.View(),
		Table:   m.table.View(),
		Help:    m.help,
		Keys:    m.keys,
	}, m.showHelp, m.helpRenderer.RenderHelpContent())
	return m.renderer.Render(state)
}

// Forward returns a snapshot subscriber that delivers snapshots to p
func Forward(p *tea.Program) func(search.Snapshot) {
	return func(s search.Snapshot) {
		p.Send(SnapshotMsg{Snapshot: s})
	}
}
