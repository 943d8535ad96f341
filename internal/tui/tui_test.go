package tui

import (
	"context"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/robalobadob/flagguessr/internal/game"
	"github.com/robalobadob/flagguessr/internal/scores"
	"github.com/robalobadob/flagguessr/internal/screens"
)

type oneFlag struct{}

func (oneFlag) Initialize(context.Context) error { return nil }

func (oneFlag) LoadCountries(context.Context, string) (map[string]string, error) {
	return map[string]string{"japan": "asia"}, nil
}

func (oneFlag) LoadFlagImages(_ context.Context, countries map[string]string, size image.Point) (map[string]image.Image, error) {
	out := map[string]image.Image{}
	for c := range countries {
		out[c] = image.NewRGBA(image.Rectangle{Max: size})
	}
	return out, nil
}

func testModel(t *testing.T) model {
	t.Helper()
	nop := zerolog.Nop()
	svc := game.NewService(scores.NewMemory(), oneFlag{}, game.DefaultConfig(), game.WithLogger(nop))
	m := screens.New(svc, screens.Options{
		Maps:     []string{"asia"},
		FlagSize: image.Pt(4, 4),
		MaxLives: 3,
		Logger:   &nop,
	})
	return newModel(context.Background(), m, time.Second/60)
}

func press(t *testing.T, m model, msg tea.KeyMsg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestKeysDriveMachine(t *testing.T) {
	m := testModel(t)

	m, _ = press(t, m, runes("p"))
	if got := m.machine.State(); got != screens.ModeSelect {
		t.Fatalf("expected mode select, got %s", got)
	}
	m, _ = press(t, m, runes("1"))
	if got := m.machine.State(); got != screens.Playing {
		t.Fatalf("expected playing, got %s", got)
	}

	for _, r := range "japan" {
		m, _ = press(t, m, runes(string(r)))
	}
	if got := m.machine.Render(time.Now()).Input; got != "japan" {
		t.Fatalf("expected typed guess to reach the machine, got %q", got)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.machine.Game().Session.Score != 1 {
		t.Errorf("expected a point for japan, got %d", m.machine.Game().Session.Score)
	}
	if m.input.Value() != "" {
		t.Errorf("expected input cleared after a hit, got %q", m.input.Value())
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if got := m.machine.State(); got != screens.Splash {
		t.Errorf("expected esc to return to the main menu, got %s", got)
	}
}

func TestTimedOutGuessDoesNotCarryOver(t *testing.T) {
	m := testModel(t)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	for _, k := range []string{"p", "b", "1", "j", "a", "p"} {
		m, _ = press(t, m, runes(k))
	}
	if got := m.input.Value(); got != "jap" {
		t.Fatalf("expected a half-typed guess, got %q", got)
	}

	next, _ := m.Update(frameMsg(start.Add(2 * time.Minute)))
	m = next.(model)
	if got := m.machine.State(); got != screens.GameOver {
		t.Fatalf("expected the blitz run to time out, got %s", got)
	}
	if got := m.input.Value(); got != "" {
		t.Errorf("expected the input cleared on game over, got %q", got)
	}

	for _, k := range []string{"m", "p", "1", "x"} {
		m, _ = press(t, m, runes(k))
	}
	if got := m.machine.State(); got != screens.Playing {
		t.Fatalf("expected a new run, got %s", got)
	}
	if got := m.machine.Render(start).Input; got != "x" {
		t.Errorf("expected the new run to start from a blank guess, got %q", got)
	}
	if got := m.input.Value(); got != "x" {
		t.Errorf("expected the input box to match, got %q", got)
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := testModel(t)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if m.machine.Running() {
		t.Fatal("expected the machine to stop")
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestViewShowsMenu(t *testing.T) {
	m := testModel(t)
	out := m.View()
	for _, want := range []string{"FlagGuessr", "Play", "Rankings", "Quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in splash view", want)
		}
	}
}

func TestHalfBlocks(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	out := halfBlocks(img)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines for 3 pixel rows, got %d", len(lines))
	}
	if n := strings.Count(lines[0], upperHalf); n != 3 {
		t.Errorf("expected 3 cells per line, got %d", n)
	}

	r := &flagRenderer{}
	if r.render(nil) != "" {
		t.Error("expected nothing for a nil flag")
	}
	first := r.render(img)
	if r.render(img) != first || r.last != image.Image(img) {
		t.Error("expected the cached rendering to be reused")
	}
}

func TestStatPerMode(t *testing.T) {
	cases := []struct {
		rec  game.RunRecord
		want string
	}{
		{game.RunRecord{Mode: game.ModeBlitz, Score: 30, TimeTaken: 60}, "60s, 0.50 flags/s"},
		{game.RunRecord{Mode: game.ModeEndless, FlagsShown: 9}, "9 flags, 3.0 per life"},
		{game.RunRecord{Mode: game.ModeNormal, Score: 3, Wrong: []string{"x"}}, "75% accuracy"},
	}
	for _, c := range cases {
		if got := stat(c.rec); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.rec.Mode, c.want, got)
		}
	}
}
