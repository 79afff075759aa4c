// Package tui provides a terminal user interface for browsing Octatrack files
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dijksterhuis/octatools/pkg/fileio"
	"github.com/dijksterhuis/octatools/pkg/midiexport"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// Amber on charcoal, like the hardware's screen
var (
	amber      = lipgloss.Color("#FFB000")
	paleAmber  = lipgloss.Color("#FFE0A0")
	silverGray = lipgloss.Color("#C0C0C0")
	charcoal   = lipgloss.Color("#2A2A2A")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			Background(charcoal).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(paleAmber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	trigStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateLoading
	StateResult
)

// Action is what a menu item does with the picked file
type Action int

const (
	ActionAttributes Action = iota
	ActionProject
	ActionBank
	ActionMIDI
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
	Extensions  []string
}

var menuItems = []MenuItem{
	{Title: "Sample attributes", Description: "Inspect an .ot file's settings and slices", Action: ActionAttributes, Extensions: []string{".ot"}},
	{Title: "Project slots", Description: "Browse a project's static, flex and recorder slots", Action: ActionProject, Extensions: []string{".work", ".strd"}},
	{Title: "Bank patterns", Description: "View the trig grid of a bank's patterns", Action: ActionBank, Extensions: []string{".work", ".strd"}},
	{Title: "Pattern → MIDI", Description: "Export every pattern of a bank to MIDI files", Action: ActionMIDI, Extensions: []string{".work", ".strd"}},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	item         MenuItem
	result       loadedMsg
	slots        table.Model
	pattern      int
	err          error
	width        int
	height       int
}

// loadedMsg carries a decoded file back to the model
type loadedMsg struct {
	attrs   *octatrack.SampleAttributes
	slots   []octatrack.SampleSlot
	bank    *octatrack.Bank
	outputs []string
	err     error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New() Model {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(amber)

	return Model{
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the file picker needs every message while it is open
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateLoading
			return m, tea.Batch(m.spinner.Tick, load(m.item.Action, path))
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.state = StateResult
		m.result = msg
		m.err = msg.err
		m.pattern = 0
		if msg.slots != nil {
			m.slots = newSlotTable(msg.slots, m.height)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		m.item = menuItems[m.menuIndex]
		if m.item.Action == ActionExit {
			return m, tea.Quit
		}
		m.state = StateFilePicker
		m.filePicker.AllowedTypes = m.item.Extensions
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.result = loadedMsg{}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		if m.result.bank != nil && m.pattern > 0 {
			m.pattern--
		}
		return m, nil
	case "right", "l":
		if m.result.bank != nil && m.pattern < octatrack.PatternsPerBank-1 {
			m.pattern++
		}
		return m, nil
	}
	if m.result.slots != nil {
		var cmd tea.Cmd
		m.slots, cmd = m.slots.Update(msg)
		return m, cmd
	}
	return m, nil
}

// load decodes path for action off the UI goroutine
func load(action Action, path string) tea.Cmd {
	return func() tea.Msg {
		switch action {
		case ActionAttributes:
			a, err := octatrack.ReadSampleAttributesFile(path)
			return loadedMsg{attrs: a, err: err}
		case ActionProject:
			p, err := octatrack.ReadProjectFile(path)
			if err != nil {
				return loadedMsg{err: err}
			}
			slots, err := p.Slots()
			if slots == nil {
				slots = []octatrack.SampleSlot{}
			}
			return loadedMsg{slots: slots, err: err}
		case ActionBank:
			b, err := octatrack.ReadBankFile(path)
			return loadedMsg{bank: b, err: err}
		case ActionMIDI:
			outputs, err := exportBank(path)
			return loadedMsg{outputs: outputs, err: err}
		}
		return loadedMsg{err: fmt.Errorf("unknown action %d", action)}
	}
}

// exportBank writes {bank}-pNN.mid next to the bank for every pattern with trigs
func exportBank(path string) ([]string, error) {
	b, err := octatrack.ReadBankFile(path)
	if err != nil {
		return nil, err
	}
	e := midiexport.NewExporter()
	base := strings.TrimSuffix(path, filepath.Ext(path))
	var outputs []string
	for i := range b.Patterns {
		p := &b.Patterns[i]
		if !hasTrigs(p) {
			continue
		}
		data, err := e.Export(p, &b.Parts[int(p.PartAssignment)%octatrack.PartsPerBank])
		if err != nil {
			return outputs, fmt.Errorf("failed to export pattern %d: %w", i+1, err)
		}
		out := fmt.Sprintf("%s-p%02d.mid", base, i+1)
		if err := fileio.WriteFile(out, data, 0644); err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func hasTrigs(p *octatrack.Pattern) bool {
	for i := range p.AudioTracks {
		if p.AudioTracks[i].Masks.Trigger != (octatrack.TrigMask{}) || p.MidiTracks[i].Masks.Trigger != (octatrack.TrigMask{}) {
			return true
		}
	}
	return false
}

func newSlotTable(slots []octatrack.SampleSlot, height int) table.Model {
	columns := []table.Column{
		{Title: "Type", Width: 8},
		{Title: "ID", Width: 4},
		{Title: "Path", Width: 32},
		{Title: "Stretch", Width: 8},
		{Title: "Loop", Width: 9},
		{Title: "Gain", Width: 7},
		{Title: "Quant", Width: 8},
	}
	h := height - 14
	if h < 5 {
		h = 10
	}
	return table.New(
		table.WithColumns(columns),
		table.WithRows(slotRows(slots)),
		table.WithFocused(true),
		table.WithHeight(h),
	)
}

func slotRows(slots []octatrack.SampleSlot) []table.Row {
	rows := make([]table.Row, len(slots))
	for i, s := range slots {
		path := s.Path
		if path == "" {
			path = "-"
		}
		rows[i] = table.Row{
			s.Class.String(),
			fmt.Sprint(s.ID),
			path,
			s.Stretch.String(),
			s.Loop.String(),
			fmt.Sprintf("%+.1f", octatrack.DecodeGain(s.Gain)),
			s.Quantization.String(),
		}
	}
	return rows
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateLoading:
		s.WriteString(m.viewLoading())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(paleAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s ", strings.ToUpper(m.item.Title))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewLoading() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" LOADING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Reading %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render("  " + m.item.Title))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	switch {
	case m.err != nil:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	case m.result.attrs != nil:
		s.WriteString(titleStyle.Render(" " + filepath.Base(m.selectedFile) + " "))
		s.WriteString("\n\n")
		s.WriteString(renderAttributes(m.result.attrs))
	case m.result.slots != nil:
		s.WriteString(titleStyle.Render(fmt.Sprintf(" %d SLOTS ", len(m.result.slots))))
		s.WriteString("\n\n")
		s.WriteString(m.slots.View())
	case m.result.bank != nil:
		s.WriteString(titleStyle.Render(fmt.Sprintf(" PATTERN %d ", m.pattern+1)))
		s.WriteString("\n\n")
		s.WriteString(renderTrigGrid(&m.result.bank.Patterns[m.pattern]))
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("←/→: previous/next pattern"))
	default:
		s.WriteString(titleStyle.Render(" EXPORTED "))
		s.WriteString("\n\n")
		if len(m.result.outputs) == 0 {
			s.WriteString("No pattern has trigs")
		}
		for _, o := range m.result.outputs {
			s.WriteString(fmt.Sprintf("✓ %s\n", filepath.Base(o)))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func renderAttributes(a *octatrack.SampleAttributes) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Tempo:        %.2f BPM\n", a.BPM())
	fmt.Fprintf(&s, "Gain:         %+.1f dB\n", a.GainDB())
	fmt.Fprintf(&s, "Timestretch:  %s\n", a.Stretch)
	fmt.Fprintf(&s, "Loop:         %s\n", a.Loop)
	fmt.Fprintf(&s, "Quantization: %s\n", a.Quantization)
	fmt.Fprintf(&s, "Trim:         %d..%d\n", a.TrimStart, a.TrimEnd)
	checksum := "ok"
	if !a.ChecksumValid() {
		checksum = "mismatch"
	}
	fmt.Fprintf(&s, "Checksum:     %s\n", checksum)
	slices := a.ActiveSlices()
	fmt.Fprintf(&s, "Slices:       %d\n", len(slices))
	for i, sl := range slices {
		loop := "-"
		if sl.LoopStart != octatrack.LoopDisabled {
			loop = fmt.Sprint(sl.LoopStart)
		}
		fmt.Fprintf(&s, "  %2d  %8d  %8d  loop %s\n", i+1, sl.TrimStart, sl.TrimEnd, loop)
	}
	return s.String()
}

// renderTrigGrid draws one row per track over the pattern's master length
func renderTrigGrid(p *octatrack.Pattern) string {
	steps := int(p.Scale.MasterLength)
	if steps <= 0 || steps > octatrack.Steps {
		steps = 16
	}
	var s strings.Builder
	fmt.Fprintf(&s, "%.1f BPM, %d steps, part %d\n\n", p.BPM(), steps, int(p.PartAssignment)+1)
	row := func(label string, mask octatrack.TrigMask) {
		s.WriteString(label)
		for i := 0; i < steps; i++ {
			if i%16 == 0 {
				s.WriteString(" ")
			}
			if mask.Step(i) {
				s.WriteString(trigStyle.Render("■"))
			} else {
				s.WriteString("·")
			}
		}
		s.WriteString("\n")
	}
	for t := range p.AudioTracks {
		row(fmt.Sprintf("T%d", t+1), p.AudioTracks[t].Masks.Trigger)
	}
	for t := range p.MidiTracks {
		row(fmt.Sprintf("M%d", t+1), p.MidiTracks[t].Masks.Trigger)
	}
	return s.String()
}

func asciiLogo() string {
	logo := `
   ___   ____ _____  _  _____ ___   ___  _     ____
  / _ \ / ___|_   _|/ \|_   _/ _ \ / _ \| |   / ___|
 | | | | |     | | / _ \ | || | | | | | | |   \___ \
 | |_| | |___  | |/ ___ \| || |_| | |_| | |___ ___) |
  \___/ \____| |_/_/   \_\_| \___/ \___/|_____|____/
`
	return lipgloss.NewStyle().Foreground(amber).Render(logo)
}

// Run starts the TUI application
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
