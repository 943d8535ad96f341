// internal/screens/machine.go
//
// Screen state machine: the presentation-facing controller of a game.
// Responsibilities:
//   - Holding the transition table between screens (looplab/fsm).
//   - Owning at most one live *game.RunningGame.
//   - Feeding frames (Update) and input (HandleInput) to the current screen,
//     which in turn calls the engine.
//
// Screens:
//   splash → mode_select → playing → game_over | victory → rankings → ...
//   splash → rankings_map_select → rankings
//
// The machine is single-threaded: one host loop calls Update, Render and
// HandleInput in turn. It never reads devices and never draws.

package screens

import (
	"context"
	"image"
	"time"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flagguessr/internal/game"
)

// Screen names, also the fsm states.
const (
	Splash            = "splash"
	ModeSelect        = "mode_select"
	Playing           = "playing"
	GameOver          = "game_over"
	Victory           = "victory"
	Rankings          = "rankings"
	RankingsMapSelect = "rankings_map_select"
)

// Transition names.
const (
	evPlay            = "play"
	evViewRankings    = "view_rankings"
	evStart           = "start"
	evMainMenu        = "main_menu"
	evLose            = "lose"
	evWin             = "win"
	evAbort           = "abort"
	evShowRankings    = "show_rankings"
	evReturnGameOver  = "return_game_over"
	evReturnVictory   = "return_victory"
	evReturnMapSelect = "return_map_select"
)

// MsgNoGame is shown when Playing is reached without a started run.
const MsgNoGame = "No game loaded. Returning to mode selection."

// MsgRankingsUnavailable is shown when the score store cannot be read.
const MsgRankingsUnavailable = "Rankings are unavailable."

// Engine is the part of *game.Service the screens drive.
type Engine interface {
	StartGame(ctx context.Context, modeValue, mapName string, size image.Point, now time.Time) game.StartOutcome
	TickGame(ctx context.Context, rg *game.RunningGame, now time.Time) bool
	SubmitGuess(ctx context.Context, rg *game.RunningGame, raw string, now time.Time) game.GuessOutcome
	Remaining(rg *game.RunningGame, now time.Time) (time.Duration, bool)
	Rankings(ctx context.Context, mapName string, filter game.RankFilter, limit int) ([]game.RunRecord, error)
}

// Screen is one state of the machine.
type Screen interface {
	Name() string
	Enter(ctx context.Context)
	Update(ctx context.Context, now time.Time)
	Render(now time.Time) View
	HandleInput(ctx context.Context, ev Event, now time.Time)
}

// Options configure a Machine.
type Options struct {
	Maps          []string    // selectable maps in menu order
	FlagSize      image.Point // size requested from the catalog
	MaxLives      int         // shown next to remaining lives
	RankingsLimit int
	Logger        *zerolog.Logger
}

// Machine routes frames and input to the current Screen.
type Machine struct {
	engine  Engine
	opts    Options
	log     zerolog.Logger
	fsm     *fsm.FSM
	screens map[string]Screen
	running bool

	game   *game.RunningGame
	input  string
	errMsg string
	mode   game.Mode

	rankMap    string
	rankFilter game.RankFilter
	records    []game.RunRecord
	rankErr    string
	returnTo   string
}

// New returns a running Machine on the splash screen.
func New(engine Engine, opts Options) *Machine {
	if opts.RankingsLimit <= 0 {
		opts.RankingsLimit = 10
	}
	m := &Machine{
		engine:     engine,
		opts:       opts,
		log:        log.Logger,
		running:    true,
		mode:       game.ModeNormal,
		rankFilter: game.FilterAll,
	}
	if opts.Logger != nil {
		m.log = *opts.Logger
	}

	m.fsm = fsm.NewFSM(
		Splash,
		fsm.Events{
			{Name: evPlay, Src: []string{Splash}, Dst: ModeSelect},
			{Name: evViewRankings, Src: []string{Splash}, Dst: RankingsMapSelect},
			{Name: evStart, Src: []string{ModeSelect}, Dst: Playing},
			{Name: evMainMenu, Src: []string{ModeSelect, Playing, GameOver, Victory, Rankings, RankingsMapSelect}, Dst: Splash},
			{Name: evLose, Src: []string{Playing}, Dst: GameOver},
			{Name: evWin, Src: []string{Playing}, Dst: Victory},
			{Name: evAbort, Src: []string{Playing}, Dst: ModeSelect},
			{Name: evShowRankings, Src: []string{GameOver, Victory, RankingsMapSelect}, Dst: Rankings},
			{Name: evReturnGameOver, Src: []string{Rankings}, Dst: GameOver},
			{Name: evReturnVictory, Src: []string{Rankings}, Dst: Victory},
			{Name: evReturnMapSelect, Src: []string{Rankings}, Dst: RankingsMapSelect},
		},
		fsm.Callbacks{},
	)

	m.screens = map[string]Screen{}
	for _, s := range []Screen{
		&splashScreen{m},
		&modeSelectScreen{m},
		&playingScreen{m},
		&endScreen{m: m, name: GameOver},
		&endScreen{m: m, name: Victory},
		&rankingsScreen{m},
		&mapSelectScreen{m},
	} {
		m.screens[s.Name()] = s
	}
	return m
}

// Running is false once the player quit.
func (m *Machine) Running() bool { return m.running }

// State is the name of the current screen.
func (m *Machine) State() string { return m.fsm.Current() }

// Game is the live run, if any.
func (m *Machine) Game() *game.RunningGame { return m.game }

func (m *Machine) current() Screen { return m.screens[m.fsm.Current()] }

// Update advances the current screen by one frame.
func (m *Machine) Update(ctx context.Context, now time.Time) {
	if !m.running {
		return
	}
	m.current().Update(ctx, now)
}

// Render describes the current frame.
func (m *Machine) Render(now time.Time) View {
	v := m.current().Render(now)
	v.Screen = m.fsm.Current()
	if v.Error == "" && v.Screen != Rankings {
		v.Error = m.errMsg
	}
	return v
}

// HandleInput delivers one event to the current screen.
func (m *Machine) HandleInput(ctx context.Context, ev Event, now time.Time) {
	if !m.running {
		return
	}
	if ev.Kind == Quit {
		m.running = false
		return
	}
	m.current().HandleInput(ctx, ev, now)
}

// transition fires event and enters the destination screen.
func (m *Machine) transition(ctx context.Context, event string) {
	from := m.fsm.Current()
	if err := m.fsm.Event(ctx, event); err != nil {
		m.log.Error().Err(err).Str("from", from).Str("event", event).Msg("screen transition")
		return
	}
	m.log.Debug().Str("from", from).Str("to", m.fsm.Current()).Msg("screen")
	m.current().Enter(ctx)
}

func (m *Machine) quit() { m.running = false }

func (m *Machine) discardGame() {
	m.game = nil
	m.input = ""
}
