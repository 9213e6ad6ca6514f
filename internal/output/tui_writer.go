package output

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"dam-testbed/internal/process"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

type statusMsg struct{ process.StatusRow }
type alertMsg struct{ process.AlertRow }

const (
	maxLogLines   = 500
	maxAlertLines = 5
)

var (
	onStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUIWriter renders dam status using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the UI interrupts the process.
func NewTUIWriter(title string, params process.Params) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(title, params), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteStatus implements StatusWriter.
func (w *TUIWriter) WriteStatus(row process.StatusRow) error {
	w.program.Send(statusMsg{row})
	return nil
}

// WriteAlert implements AlertWriter.
func (w *TUIWriter) WriteAlert(row process.AlertRow) error {
	w.program.Send(alertMsg{row})
	return nil
}

// Close stops the program and waits for it to exit.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	title      string
	params     process.Params
	table      table.Model
	vp         viewport.Model
	logs       []string
	alerts     []string
	last       process.StatusRow
	haveStatus bool
	ticks      int
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newTUIModel(title string, p process.Params) tuiModel {
	cols := []table.Column{
		{Title: "Parameter", Width: 16},
		{Title: "Value", Width: 8},
		{Title: "Parameter", Width: 16},
		{Title: "Value", Width: 8},
	}
	alert := "off"
	if p.AlertThreshold > 0 {
		alert = fmt.Sprint(p.AlertThreshold)
	}
	rows := []table.Row{
		{"Pump delta", fmt.Sprintf("+%d", p.PumpDelta), "Gate delta", fmt.Sprintf("-%d", p.GateDelta)},
		{"Low threshold", fmt.Sprint(p.LowThreshold), "High threshold", fmt.Sprint(p.HighThreshold)},
		{"Alert threshold", alert, "Initial level", fmt.Sprint(p.InitialLevel)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		title:      title,
		params:     p,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case statusMsg:
		m.last = msg.StatusRow
		m.haveStatus = true
		m.ticks++
		m.logs = append(m.logs, FormatStatus(msg.StatusRow))
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case alertMsg:
		line := fmt.Sprintf("%s %s (water level: %d)", stamp(msg.Timestamp), msg.Message, msg.Level)
		m.alerts = append(m.alerts, line)
		if len(m.alerts) > maxAlertLines {
			m.alerts = m.alerts[len(m.alerts)-maxAlertLines:]
		}
		m.updateViewportHeight()
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderGauge()) +
		lipgloss.Height(m.renderAlerts()) + 5
	h := m.height - used
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	divider := dimStyle.Render(strings.Repeat("─", m.width))
	return strings.Join([]string{
		m.renderHeader(),
		divider,
		m.renderGauge(),
		divider,
		m.vp.View(),
		divider,
		m.renderAlerts(),
		m.renderHelp(),
	}, "\n")
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render(m.title)
	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View())
}

func (m tuiModel) renderGauge() string {
	if !m.haveStatus {
		return dimStyle.Render("waiting for first tick...")
	}
	pump := offStyle.Render("off")
	if m.last.Pump {
		pump = onStyle.Render("on")
	}
	gate := offStyle.Render("closed")
	if m.last.Gate {
		gate = onStyle.Render("open")
	}
	state := fmt.Sprintf("pump: %s  gate: %s  level: %d  ticks: %d", pump, gate, m.last.Level, m.ticks)
	return lipgloss.JoinVertical(lipgloss.Left, state, m.levelBar(m.width-2))
}

// levelBar draws the level against a scale reaching past the high threshold,
// marking the low and high thresholds.
func (m tuiModel) levelBar(width int) string {
	if width < 10 {
		width = 10
	}
	scale := m.params.HighThreshold + m.params.HighThreshold/4
	if m.params.AlertThreshold > scale {
		scale = m.params.AlertThreshold + m.params.AlertThreshold/10
	}
	if scale <= 0 {
		scale = process.MaxLevel
	}
	pos := func(v int) int {
		p := v * width / scale
		if p < 0 {
			return 0
		}
		if p >= width {
			return width - 1
		}
		return p
	}
	fill, low, high := pos(int(m.last.Level)), pos(m.params.LowThreshold), pos(m.params.HighThreshold)
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == low || i == high:
			b.WriteString("|")
		case i <= fill:
			b.WriteString("█")
		default:
			b.WriteString("░")
		}
	}
	style := onStyle
	if int(m.last.Level) > m.params.HighThreshold {
		style = alertStyle
	}
	return style.Render(b.String())
}

func (m tuiModel) renderAlerts() string {
	if len(m.alerts) == 0 {
		return "Alerts: none"
	}
	return "Alerts:\n" + alertStyle.Render(strings.Join(m.alerts, "\n"))
}

func (m tuiModel) renderHelp() string {
	return dimStyle.Render(fmt.Sprintf("q quit • w wrap (%v) • s autoscroll (%v) • ↑/↓ scroll", m.wrap, m.autoscroll))
}
