// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type manages a persistent timer status bar and an input
// prompt at the bottom of the terminal. All application output is
// printed above the rendered area via Program.Println / Printf,
// so concurrent writes from timer callbacks never garble the display.
package display

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/mise/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	timerRunStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	timerDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	timerPausedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#71717a")).
				Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

const (
	prompt      = "mise> "
	windowTitle = "mise"
)

// SnapshotFunc returns the live sessions to show in the timer bar.
type SnapshotFunc func(ctx context.Context) ([]domain.SessionSnapshot, error)

// LabelFunc names a step of a session's recipe for display ("Step 3").
type LabelFunc func(recipeID, stepID string) string

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may
// safely call [UI.Println], [UI.Printf], and read from
// [UI.InputChan] at any time after [UI.WaitReady] returns.
type UI struct {
	program   *tea.Program
	inputCh   chan string
	readyCh   chan struct{}
	quitCh    chan struct{}
	snapshots SnapshotFunc
	label     LabelFunc
	done      atomic.Bool
}

// NewUI creates the display. Call Run() to start. A nil label func
// shows raw step ids.
func NewUI(snapshots SnapshotFunc, label LabelFunc) *UI {
	if label == nil {
		label = func(_, stepID string) string { return stepID }
	}
	return &UI{
		snapshots: snapshots,
		label:     label,
		inputCh:   make(chan string, 16),
		readyCh:   make(chan struct{}),
		quitCh:    make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe.
// If the program hasn't started yet, falls back to fmt.Println.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt on its own line. Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────

// PrintChat prints a conversational line.
func (u *UI) PrintChat(text string) {
	u.Println(chatStyle.Render("  " + text))
}

// PrintStep prints a step header like "Step 2 (~5m)".
func (u *UI) PrintStep(text string) {
	u.Println(stepStyle.Render("  " + text))
}

// PrintInstruction prints a step's instruction text.
func (u *UI) PrintInstruction(text string) {
	u.Println(primaryStyle.Render("  " + text))
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an urgent/error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintBlock prints pre-rendered multi-line output as is.
func (u *UI) PrintBlock(block string) {
	u.Println(strings.TrimRight(block, "\n"))
}

// PrintVoice echoes a spoken command into the scrollback.
func (u *UI) PrintVoice(text string) {
	u.Println(secondaryStyle.Render("  [voice] ") + userInputEchoStyle.Render(text))
}

// PrintUserInput echoes the user's typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("mise") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// A plain-text prompt keeps the textinput width math correct; styled
	// prompts add ANSI bytes that break its offset calculations.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60 // updated on first WindowSizeMsg

	m := model{
		snapshots: u.snapshots,
		label:     u.label,
		input:     ti,
		inputCh:   u.inputCh,
		readyCh:   u.readyCh,
		echoFn:    u.PrintUserInput,
	}

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	snapshots SnapshotFunc
	label     LabelFunc
	input     textinput.Model
	inputCh   chan<- string
	readyCh   chan struct{}
	echoFn    func(string)
	timers    []timerInfo
	width     int
}

type timerInfo struct {
	label     string
	remaining time.Duration
	state     domain.TimerState
}

type tickMsg time.Time

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

// tickCmd refreshes the bar. It only reads snapshots; the session's own
// ticker drives the countdown.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				// Echo from a Cmd so Update never blocks on Println.
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case tickMsg:
		m.timers = collectTimers(context.Background(), m.snapshots, m.label)
		title := windowTitle
		if len(m.timers) > 0 {
			title = titleStr(m.timers)
		}
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(title))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// collectTimers flattens the timers of every live session, sorted by label.
func collectTimers(ctx context.Context, snapshots SnapshotFunc, label LabelFunc) []timerInfo {
	if snapshots == nil {
		return nil
	}
	snaps, err := snapshots(ctx)
	if err != nil {
		return nil
	}
	var out []timerInfo
	for _, s := range snaps {
		for id, t := range s.Timers {
			out = append(out, timerInfo{
				label:     label(s.RecipeID, id),
				remaining: t.Remaining(),
				state:     t.State(),
			})
		}
	}
	// Shorter labels first so "Step 9" sorts before "Step 10".
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].label) != len(out[j].label) {
			return len(out[i].label) < len(out[j].label)
		}
		return out[i].label < out[j].label
	})
	return out
}

func (t timerInfo) text() string {
	switch t.state {
	case domain.TimerExpired:
		return t.label + ": DONE!"
	case domain.TimerPaused:
		return t.label + ": paused " + fmtDuration(t.remaining)
	default:
		return t.label + ": " + fmtDuration(t.remaining)
	}
}

func titleStr(timers []timerInfo) string {
	p := make([]string, 0, len(timers))
	for _, t := range timers {
		p = append(p, t.text())
	}
	return windowTitle + ": " + strings.Join(p, " | ")
}

func (m model) View() string {
	var b strings.Builder

	if len(m.timers) > 0 {
		b.WriteString(renderBar(m.timers, m.width))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func renderBar(timers []timerInfo, width int) string {
	var parts []string
	for _, t := range timers {
		switch t.state {
		case domain.TimerExpired:
			parts = append(parts, timerDoneStyle.Render(t.text()))
		case domain.TimerPaused:
			parts = append(parts, timerPausedStyle.Render(t.text()))
		default:
			parts = append(parts,
				labelStyle.Render(t.label+": ")+
					timerRunStyle.Render(fmtDuration(t.remaining)))
		}
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

// ── Helpers ──────────────────────────────────────────────────────

func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
