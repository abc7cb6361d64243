// Package tui provides a live pattern editor for battito
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/battito/pkg/export"
	"github.com/james-see/battito/pkg/pattern"
)

// Acid-inspired color scheme
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2)

	hitStyle  = lipgloss.NewStyle().Foreground(acidGreen)
	restStyle = lipgloss.NewStyle().Foreground(darkGray)
)

// MaxSubdivision bounds the grid size the editor will draw
const MaxSubdivision = 128

// State represents the current TUI state
type State int

const (
	StateEditing State = iota
	StateExporting
	StateResult
)

// Model represents the TUI model
type Model struct {
	state       State
	input       textinput.Model
	spinner     spinner.Model
	subdivision int
	compiled    pattern.Pattern
	summary     pattern.Summary
	outputFile  string
	exported    string
	err         error
	width       int
	height      int
}

// exportDoneMsg signals export completion
type exportDoneMsg struct {
	outputFile string
	err        error
}

// New creates a new TUI model compiling onto subdivision steps and
// exporting to outputFile
func New(subdivision int, outputFile string) Model {
	if subdivision <= 0 {
		subdivision = pattern.DefaultSubdivision
	}
	if subdivision > MaxSubdivision {
		subdivision = MaxSubdivision
	}
	if outputFile == "" {
		outputFile = "pattern.mid"
	}

	ti := textinput.New()
	ti.Placeholder = "x . x60:50 . x(3,8)"
	ti.Prompt = "▸ "
	ti.CharLimit = 512
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(acidGreen)

	m := Model{
		state:       StateEditing,
		input:       ti,
		spinner:     s,
		subdivision: subdivision,
		outputFile:  outputFile,
	}
	m.recompile()
	return m
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Pattern returns the pattern compiled from the current text
func (m Model) Pattern() pattern.Pattern {
	return m.compiled
}

// Subdivision returns the current grid size
func (m Model) Subdivision() int {
	return m.subdivision
}

func (m *Model) recompile() {
	m.compiled, m.summary = pattern.Compile(m.input.Value(), m.subdivision, pattern.Options{})
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateEditing:
			return m.updateEditing(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case exportDoneMsg:
		m.state = StateResult
		m.exported = msg.outputFile
		m.err = msg.err
		return m, nil
	}

	if m.state == StateEditing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		return m, tea.Quit
	case "pgup", "ctrl+up":
		if m.subdivision < MaxSubdivision {
			m.subdivision++
			m.recompile()
		}
		return m, nil
	case "pgdown", "ctrl+down":
		if m.subdivision > 1 {
			m.subdivision--
			m.recompile()
		}
		return m, nil
	case "ctrl+s":
		m.state = StateExporting
		return m, tea.Batch(m.spinner.Tick, m.performExport())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.recompile()
	return m, cmd
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateEditing
		m.err = nil
		m.exported = ""
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performExport() tea.Cmd {
	p := m.compiled
	outputFile := m.outputFile
	return func() tea.Msg {
		if err := export.NewMIDIExporter().WriteMIDIFile(p, outputFile); err != nil {
			return exportDoneMsg{err: err}
		}
		return exportDoneMsg{outputFile: outputFile}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateEditing:
		s.WriteString(m.viewEditing())
	case StateExporting:
		s.WriteString(m.viewExporting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("type to edit • pgup/pgdn: subdivision • ctrl+s: export midi • esc: quit"))

	return s.String()
}

func (m Model) viewEditing() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" PATTERN · %d STEPS ", m.subdivision)))
	s.WriteString("\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n\n")
	s.WriteString(renderGrid(m.compiled))
	s.WriteString("\n\n")
	s.WriteString(labelStyle.Render("max: "))
	s.WriteString(m.compiled.MaxString())

	var status string
	switch {
	case m.summary.Truncated:
		status = fmt.Sprintf("%d steps used, input truncated", m.summary.Steps)
	case m.summary.Padded > 0:
		status = fmt.Sprintf("%d steps, %d rests padded", m.summary.Steps, m.summary.Padded)
	default:
		status = fmt.Sprintf("%d steps", m.summary.Steps)
	}
	s.WriteString("\n")
	s.WriteString(statusStyle.Render(status))

	return boxStyle.Render(s.String())
}

func (m Model) viewExporting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" EXPORTING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Writing %s...\n", m.spinner.View(), filepath.Base(m.outputFile)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Export failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Export complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Output: %s", filepath.Base(m.exported)))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

// cell picks a block glyph by probability
func cell(ev pattern.Event) string {
	switch {
	case ev.IsRest():
		return restStyle.Render("·")
	case ev.Probability == pattern.ProbabilityAlways:
		return hitStyle.Render("█")
	case ev.Probability >= 170:
		return hitStyle.Render("▓")
	case ev.Probability >= 85:
		return hitStyle.Render("▒")
	default:
		return hitStyle.Render("░")
	}
}

func renderGrid(p pattern.Pattern) string {
	var s strings.Builder
	for i, ev := range p.Events {
		if i > 0 && i%16 == 0 {
			s.WriteString("\n")
		} else if i > 0 && i%4 == 0 {
			s.WriteString(" ")
		}
		s.WriteString(cell(ev))
	}
	return s.String()
}

func asciiLogo() string {
	logo := `
  ┏┓ ┏━┓╺┳╸╺┳╸╻╺┳╸┏━┓
  ┣┻┓┣━┫ ┃  ┃ ┃ ┃ ┃ ┃
  ┗━┛╹ ╹ ╹  ╹ ╹ ╹ ┗━┛
`
	return lipgloss.NewStyle().Foreground(acidGreen).Render(logo)
}

// Run starts the TUI application
func Run(subdivision int, outputFile string) error {
	p := tea.NewProgram(New(subdivision, outputFile), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
