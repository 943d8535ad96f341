// internal/tui/tui.go
//
// Terminal host for the screen machine (bubbletea).
// Responsibilities:
//   - Driving a fixed-rate frame tick that calls Machine.Update.
//   - Translating key presses into screens.Event values.
//   - Editing the guess through a bubbles textinput while playing.
//   - Drawing each screens.View with lipgloss.
//
// The machine is only touched from the bubbletea update loop, so no locking
// is needed.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/flagguessr/internal/game"
	"github.com/robalobadob/flagguessr/internal/screens"
)

type frameMsg time.Time

type model struct {
	ctx      context.Context
	machine  *screens.Machine
	interval time.Duration
	now      func() time.Time
	input    textinput.Model
	flags    *flagRenderer
}

func newModel(ctx context.Context, m *screens.Machine, interval time.Duration) model {
	ti := textinput.New()
	ti.Placeholder = "country name"
	ti.CharLimit = 64
	ti.Width = 32
	ti.Focus()
	return model{
		ctx:      ctx,
		machine:  m,
		interval: interval,
		now:      time.Now,
		input:    ti,
		flags:    &flagRenderer{},
	}
}

// Run blocks until the player quits or ctx is cancelled.
func Run(ctx context.Context, m *screens.Machine, interval time.Duration) error {
	p := tea.NewProgram(newModel(ctx, m, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m model) frame() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.frame())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	wasPlaying := m.machine.State() == screens.Playing
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case frameMsg:
		m.machine.Update(m.ctx, time.Time(msg))
		cmd = m.frame()
	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	default:
		m.input, cmd = m.input.Update(msg)
	}
	if !m.machine.Running() {
		return m, tea.Quit
	}
	// A guess never outlives the run it was typed for.
	if wasPlaying != (m.machine.State() == screens.Playing) {
		m.input.SetValue("")
	}
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	now := m.now()
	send := func(ev screens.Event) { m.machine.HandleInput(m.ctx, ev, now) }

	switch msg.Type {
	case tea.KeyCtrlC:
		send(screens.Event{Kind: screens.Quit})
		return nil
	case tea.KeyEsc:
		send(screens.Event{Kind: screens.Back})
		return nil
	}

	if m.machine.State() != screens.Playing {
		if msg.Type == tea.KeyRunes {
			send(screens.Event{Kind: screens.Choose, Key: strings.ToLower(msg.String())})
		}
		return nil
	}

	if msg.Type == tea.KeyEnter {
		send(screens.Event{Kind: screens.SetInput, Text: m.input.Value()})
		send(screens.Event{Kind: screens.Confirm})
		m.input.SetValue(m.machine.Render(now).Input)
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	send(screens.Event{Kind: screens.SetInput, Text: m.input.Value()})
	return cmd
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f5c542")).MarginBottom(1)
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61afef"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f848e"))
	activeStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	frameStyle  = lipgloss.NewStyle().Padding(1, 2)
)

func (m model) View() string {
	v := m.machine.Render(m.now())
	var parts []string
	if v.Title != "" {
		parts = append(parts, titleStyle.Render(v.Title))
	}

	switch v.Screen {
	case screens.ModeSelect:
		parts = append(parts, "Mode: "+activeStyle.Render(string(v.SelectedMode)))
	case screens.Playing:
		parts = append(parts, m.playing(v)...)
	case screens.GameOver, screens.Victory:
		parts = append(parts, summary(v)...)
	case screens.Rankings:
		parts = append(parts, rankings(v))
	}

	if v.Error != "" {
		parts = append(parts, errorStyle.Render(v.Error))
	}
	parts = append(parts, options(v.Options))
	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m model) playing(v screens.View) []string {
	status := fmt.Sprintf("%s · %s · score %d · lives %d/%d", v.Mode, v.MapName, v.Score, v.Lives, v.MaxLives)
	if v.Mode != game.ModeNormal {
		status += fmt.Sprintf(" · flags %d", v.FlagsShown)
	}
	if v.Timed {
		status += fmt.Sprintf(" · %ds left", int(v.Remaining.Round(time.Second)/time.Second))
	}
	return []string{
		dimStyle.Render(status),
		"",
		m.flags.render(v.Flag),
		"",
		m.input.View(),
	}
}

func summary(v screens.View) []string {
	out := []string{
		fmt.Sprintf("Score %d on %s (%s)", v.Score, v.MapName, v.Mode),
		dimStyle.Render(fmt.Sprintf("Flags shown: %d", v.FlagsShown)),
	}
	if len(v.Wrong) > 0 {
		out = append(out, "Missed: "+strings.Join(v.Wrong, ", "))
	}
	return out
}

func rankings(v screens.View) string {
	var sb strings.Builder
	sb.WriteString("Filter: " + activeStyle.Render(string(v.Filter)) + "\n\n")
	if len(v.Records) == 0 {
		sb.WriteString(dimStyle.Render("No runs yet."))
		return sb.String()
	}
	for i, r := range v.Records {
		fmt.Fprintf(&sb, "%2d. %4d  %-8s %s  %s\n", i+1, r.Score, r.Mode, r.PlayedAt.Local().Format("2006-01-02 15:04"), stat(r))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// stat is the per-mode figure shown next to a ranked run.
func stat(r game.RunRecord) string {
	switch r.Mode {
	case game.ModeBlitz:
		return fmt.Sprintf("%ds, %.2f flags/s", r.TimeTaken, r.FlagsPerSecond())
	case game.ModeEndless:
		return fmt.Sprintf("%d flags, %.1f per life", r.FlagsShown, r.AvgPerLife())
	default:
		return fmt.Sprintf("%.0f%% accuracy", r.Accuracy()*100)
	}
}

func options(opts []screens.Option) string {
	cells := make([]string, 0, len(opts))
	for _, o := range opts {
		cells = append(cells, keyStyle.Render("["+o.Key+"]")+" "+o.Label)
	}
	return lipgloss.NewStyle().MarginTop(1).Render(strings.Join(cells, "\n"))
}
