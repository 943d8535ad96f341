package screens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robalobadob/flagguessr/internal/game"
)

// Menu keys shared by several screens.
const (
	KeyPlay     = "p"
	KeyRankings = "r"
	KeyMainMenu = "m"
	KeyQuit     = "q"
	KeyBack     = "esc"
)

// modeKeys selects a mode on the mode select screen; filterKeys a ranking filter.
var (
	modeKeys   = map[string]game.Mode{"n": game.ModeNormal, "e": game.ModeEndless, "b": game.ModeBlitz}
	filterKeys = map[string]game.RankFilter{
		"a": game.FilterAll,
		"n": game.RankFilter(game.ModeNormal),
		"e": game.RankFilter(game.ModeEndless),
		"b": game.RankFilter(game.ModeBlitz),
	}
)

// mapOptions numbers the configured maps from 1.
func (m *Machine) mapOptions() []Option {
	out := make([]Option, 0, len(m.opts.Maps))
	for i, name := range m.opts.Maps {
		out = append(out, Option{Key: strconv.Itoa(i + 1), Label: name})
	}
	return out
}

// mapForKey resolves a numbered map option.
func (m *Machine) mapForKey(key string) (string, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 1 || i > len(m.opts.Maps) {
		return "", false
	}
	return m.opts.Maps[i-1], true
}

// ---- splash ----

type splashScreen struct{ m *Machine }

func (s *splashScreen) Name() string { return Splash }

func (s *splashScreen) Update(context.Context, time.Time) {}

func (s *splashScreen) Enter(context.Context) {
	s.m.discardGame()
	s.m.errMsg = ""
}

func (s *splashScreen) Render(time.Time) View {
	return View{
		Title: "FlagGuessr",
		Options: []Option{
			{Key: KeyPlay, Label: "Play"},
			{Key: KeyRankings, Label: "Rankings"},
			{Key: KeyQuit, Label: "Quit"},
		},
	}
}

func (s *splashScreen) HandleInput(ctx context.Context, ev Event, _ time.Time) {
	if ev.Kind != Choose {
		return
	}
	switch ev.Key {
	case KeyPlay:
		s.m.transition(ctx, evPlay)
	case KeyRankings:
		s.m.returnTo = evReturnMapSelect
		s.m.transition(ctx, evViewRankings)
	case KeyQuit:
		s.m.quit()
	}
}

// ---- mode select ----

type modeSelectScreen struct{ m *Machine }

func (s *modeSelectScreen) Name() string { return ModeSelect }

func (s *modeSelectScreen) Update(context.Context, time.Time) {}

func (s *modeSelectScreen) Enter(context.Context) {
	s.m.discardGame()
	s.m.errMsg = ""
}

func (s *modeSelectScreen) Render(time.Time) View {
	opts := []Option{
		{Key: "n", Label: "Normal: every flag once"},
		{Key: "e", Label: "Endless: until you run out of lives"},
		{Key: "b", Label: "Blitz: beat the clock"},
	}
	opts = append(opts, s.m.mapOptions()...)
	opts = append(opts, Option{Key: KeyBack, Label: "Back"})
	return View{Title: "Choose a mode and a map", Options: opts, SelectedMode: s.m.mode}
}

func (s *modeSelectScreen) HandleInput(ctx context.Context, ev Event, now time.Time) {
	if ev.Kind == Back || (ev.Kind == Choose && ev.Key == KeyBack) {
		s.m.transition(ctx, evMainMenu)
		return
	}
	if ev.Kind != Choose {
		return
	}
	if mode, ok := modeKeys[ev.Key]; ok {
		s.m.mode = mode
		return
	}
	mapName, ok := s.m.mapForKey(ev.Key)
	if !ok {
		return
	}
	s.start(ctx, string(s.m.mode), mapName, now)
}

func (s *modeSelectScreen) start(ctx context.Context, mode, mapName string, now time.Time) {
	s.m.input = ""
	s.m.errMsg = ""
	res := s.m.engine.StartGame(ctx, mode, mapName, s.m.opts.FlagSize, now)
	if !res.Success {
		s.m.errMsg = startError(res.Err)
		s.m.log.Warn().Err(res.Err).Str("mode", mode).Str("map", mapName).Msg("start game")
		return
	}
	s.m.game = res.Game
	s.m.transition(ctx, evStart)
}

// startError turns a start failure into the text shown on mode select.
func startError(err error) string {
	switch {
	case err == nil:
		return "Unable to start the game."
	case errors.Is(err, game.ErrCatalog):
		return "The flag catalog could not be read."
	case errors.Is(err, game.ErrUnsupportedMode),
		errors.Is(err, game.ErrNoCountries),
		errors.Is(err, game.ErrNoFlagImages),
		errors.Is(err, game.ErrNoInitialCountry):
		return capitalize(err.Error()) + "."
	default:
		return "Unable to start the game."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ---- playing ----

type playingScreen struct{ m *Machine }

func (s *playingScreen) Name() string { return Playing }

func (s *playingScreen) Enter(context.Context) {}

// Update polls the engine clock. Reaching Playing without a run redirects to
// mode select.
func (s *playingScreen) Update(ctx context.Context, now time.Time) {
	rg := s.m.game
	if rg == nil {
		s.m.log.Error().Msg("playing without a running game")
		s.m.transition(ctx, evAbort)
		s.m.errMsg = MsgNoGame
		return
	}
	if s.m.engine.TickGame(ctx, rg, now) {
		s.m.transition(ctx, evLose)
	}
}

func (s *playingScreen) Render(now time.Time) View {
	rg := s.m.game
	if rg == nil {
		return View{}
	}
	sess := rg.Session
	v := View{
		Mode:       sess.Mode,
		MapName:    sess.MapName,
		Score:      sess.Score,
		Lives:      sess.Lives,
		MaxLives:   s.m.opts.MaxLives,
		FlagsShown: sess.FlagsShownCount,
		Flag:       rg.CurrentFlag(),
		Input:      s.m.input,
		Options:    []Option{{Key: KeyBack, Label: "Main menu"}},
	}
	v.Remaining, v.Timed = s.m.engine.Remaining(rg, now)
	return v
}

func (s *playingScreen) HandleInput(ctx context.Context, ev Event, now time.Time) {
	rg := s.m.game
	if rg == nil {
		return
	}
	switch ev.Kind {
	case Type:
		s.m.input += ev.Text
	case SetInput:
		s.m.input = ev.Text
	case Backspace:
		if _, n := utf8.DecodeLastRuneInString(s.m.input); n > 0 {
			s.m.input = s.m.input[:len(s.m.input)-n]
		}
	case Back:
		s.m.transition(ctx, evMainMenu)
	case Choose:
		if ev.Key == KeyBack {
			s.m.transition(ctx, evMainMenu)
		}
	case Confirm:
		s.submit(ctx, now)
	}
}

func (s *playingScreen) submit(ctx context.Context, now time.Time) {
	out := s.m.engine.SubmitGuess(ctx, s.m.game, s.m.input, now)
	if out.ClearInput {
		s.m.input = ""
	}
	if out.ClearError {
		s.m.errMsg = ""
	} else if out.Message != "" {
		s.m.errMsg = out.Message
	}

	switch out.Status {
	case game.StatusVictory:
		s.m.transition(ctx, evWin)
	case game.StatusGameOver:
		s.m.transition(ctx, evLose)
	}
}

// ---- game over / victory ----

type endScreen struct {
	m    *Machine
	name string
}

func (s *endScreen) Name() string { return s.name }

func (s *endScreen) Enter(context.Context) {}

func (s *endScreen) Update(ctx context.Context, _ time.Time) {
	if s.m.game == nil {
		s.m.transition(ctx, evMainMenu)
	}
}

func (s *endScreen) Render(time.Time) View {
	rg := s.m.game
	if rg == nil {
		return View{}
	}
	sess := rg.Session
	title := "Game over"
	if s.name == Victory {
		title = "You made it!"
	}
	return View{
		Title:      title,
		Mode:       sess.Mode,
		MapName:    sess.MapName,
		Score:      sess.Score,
		Lives:      sess.Lives,
		MaxLives:   s.m.opts.MaxLives,
		FlagsShown: max(sess.FlagsShownCount, len(sess.Shown)),
		Wrong:      sess.Wrong,
		Options: []Option{
			{Key: KeyRankings, Label: "Rankings"},
			{Key: KeyMainMenu, Label: "Main menu"},
			{Key: KeyQuit, Label: "Quit"},
		},
	}
}

func (s *endScreen) HandleInput(ctx context.Context, ev Event, _ time.Time) {
	if s.m.game == nil {
		s.m.transition(ctx, evMainMenu)
		return
	}
	key := ev.Key
	if ev.Kind == Back {
		key = KeyMainMenu
	} else if ev.Kind != Choose {
		return
	}
	switch key {
	case KeyRankings:
		s.m.rankMap = s.m.game.Session.MapName
		s.m.returnTo = evReturnGameOver
		if s.name == Victory {
			s.m.returnTo = evReturnVictory
		}
		s.m.transition(ctx, evShowRankings)
	case KeyMainMenu:
		s.m.transition(ctx, evMainMenu)
	case KeyQuit:
		s.m.quit()
	}
}

// ---- rankings ----

type rankingsScreen struct{ m *Machine }

func (s *rankingsScreen) Name() string { return Rankings }

func (s *rankingsScreen) Update(context.Context, time.Time) {}

func (s *rankingsScreen) Enter(ctx context.Context) { s.load(ctx) }

func (s *rankingsScreen) load(ctx context.Context) {
	recs, err := s.m.engine.Rankings(ctx, s.m.rankMap, s.m.rankFilter, s.m.opts.RankingsLimit)
	if err != nil {
		s.m.log.Error().Err(err).Str("map", s.m.rankMap).Msg("load rankings")
		s.m.records = nil
		s.m.rankErr = MsgRankingsUnavailable
		return
	}
	s.m.records = recs
	s.m.rankErr = ""
}

func (s *rankingsScreen) Render(time.Time) View {
	return View{
		Title:   fmt.Sprintf("Rankings: %s", s.m.rankMap),
		Error:   s.m.rankErr,
		MapName: s.m.rankMap,
		Filter:  s.m.rankFilter,
		Records: s.m.records,
		Options: []Option{
			{Key: "a", Label: "All"},
			{Key: "n", Label: "Normal"},
			{Key: "e", Label: "Endless"},
			{Key: "b", Label: "Blitz"},
			{Key: KeyBack, Label: "Back"},
			{Key: KeyMainMenu, Label: "Main menu"},
		},
	}
}

func (s *rankingsScreen) HandleInput(ctx context.Context, ev Event, _ time.Time) {
	key := ev.Key
	if ev.Kind == Back {
		key = KeyBack
	} else if ev.Kind != Choose {
		return
	}
	if f, ok := filterKeys[key]; ok {
		if f != s.m.rankFilter {
			s.m.rankFilter = f
			s.load(ctx)
		}
		return
	}
	switch key {
	case KeyBack:
		back := s.m.returnTo
		if back == "" {
			back = evReturnMapSelect
		}
		s.m.transition(ctx, back)
	case KeyMainMenu:
		s.m.transition(ctx, evMainMenu)
	}
}

// ---- rankings map select ----

type mapSelectScreen struct{ m *Machine }

func (s *mapSelectScreen) Name() string { return RankingsMapSelect }

func (s *mapSelectScreen) Update(context.Context, time.Time) {}

func (s *mapSelectScreen) Enter(context.Context) { s.m.errMsg = "" }

func (s *mapSelectScreen) Render(time.Time) View {
	opts := append(s.m.mapOptions(), Option{Key: KeyBack, Label: "Back"})
	return View{Title: "Rankings: choose a map", Options: opts}
}

func (s *mapSelectScreen) HandleInput(ctx context.Context, ev Event, _ time.Time) {
	if ev.Kind == Back || (ev.Kind == Choose && ev.Key == KeyBack) {
		s.m.transition(ctx, evMainMenu)
		return
	}
	if ev.Kind != Choose {
		return
	}
	if mapName, ok := s.m.mapForKey(ev.Key); ok {
		s.m.rankMap = mapName
		s.m.returnTo = evReturnMapSelect
		s.m.transition(ctx, evShowRankings)
	}
}
