// internal/game/engine.go
//
// Game Service: the only component that mutates a Session.
// Responsibilities:
//   - Start runs: resolve mode, load the map's countries and flags, pick the first flag.
//   - Apply guesses: score, lose lives, pick the next flag, detect victory/game over.
//   - Poll blitz runs for time expiry (the host loop calls TickGame every frame).
//   - Persist a run exactly once, at the moment it reaches a terminal outcome.
//
// Notes:
//   - Expected failures (bad mode, empty map, exhausted pool) are values, never panics.
//   - A failed score write is logged; the returned outcome stands regardless.
//   - Time is always passed in by the caller, so runs replay deterministically.
package game

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Service orchestrates the lifecycle of runs against its collaborators.
type Service struct {
	scores  ScoreStore
	catalog FlagCatalog
	cfg     Config
	rnd     Rand
	log     zerolog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithRand sets the randomness used by every strategy the Service builds.
func WithRand(r Rand) Option { return func(s *Service) { s.rnd = r } }

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService wires a Service. cfg is copied and never changes afterwards.
func NewService(scores ScoreStore, catalog FlagCatalog, cfg Config, opts ...Option) *Service {
	s := &Service{
		scores:  scores,
		catalog: catalog,
		cfg:     cfg,
		rnd:     globalRand{},
		log:     log.Logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the engine configuration.
func (s *Service) Config() Config { return s.cfg }

// Initialize prepares both collaborators.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.scores.Initialize(ctx); err != nil {
		return fmt.Errorf("init score store: %w", err)
	}
	if err := s.catalog.Initialize(ctx); err != nil {
		return fmt.Errorf("init flag catalog: %w", err)
	}
	return nil
}

// StartGame begins a run of modeValue on mapName. Failures leave no Session
// behind and are reported through StartOutcome.Err.
func (s *Service) StartGame(ctx context.Context, modeValue, mapName string, size image.Point, now time.Time) StartOutcome {
	mode, err := ParseMode(modeValue)
	if err != nil {
		return failStart(err)
	}

	countries, err := s.catalog.LoadCountries(ctx, mapName)
	if err != nil {
		return failStart(fmt.Errorf("%w: %w", ErrCatalog, err))
	}
	if len(countries) == 0 {
		return failStart(ErrNoCountries)
	}

	flags, err := s.catalog.LoadFlagImages(ctx, countries, size)
	if err != nil {
		return failStart(fmt.Errorf("%w: %w", ErrCatalog, err))
	}
	if len(flags) == 0 {
		return failStart(ErrNoFlagImages)
	}

	strategy, err := NewStrategy(mode, s.rnd)
	if err != nil {
		return failStart(err)
	}
	pool := poolOf(flags)
	first, ok := strategy.NextCountry(pool, nil)
	if !ok {
		return failStart(ErrNoInitialCountry)
	}

	sess := &Session{
		Mode:            mode,
		MapName:         mapName,
		Score:           s.cfg.StartingScore,
		Lives:           s.cfg.MaxLives,
		Shown:           []string{first},
		Wrong:           []string{},
		FlagsShownCount: strategy.InitialFlagsShown(),
	}
	if strategy.IsTimed() {
		sess.StartTime = now
	}

	rg := newRunningGame(sess, countries, flags, first, pool)
	rg.strategy = strategy

	s.log.Debug().Str("mode", string(mode)).Str("map", mapName).Int("pool", len(pool)).Msg("run started")
	return StartOutcome{Success: true, Game: rg}
}

func failStart(err error) StartOutcome {
	return StartOutcome{Success: false, Err: err}
}

// TickGame ends a blitz run whose budget has run out. It returns true only on
// the tick that ends the run; any other call is a no-op returning false.
func (s *Service) TickGame(ctx context.Context, rg *RunningGame, now time.Time) bool {
	if !s.expired(rg, now) {
		return false
	}
	s.endOnTimeout(ctx, rg)
	return true
}

// Remaining reports the time left in a blitz run. ok is false for untimed runs.
func (s *Service) Remaining(rg *RunningGame, now time.Time) (left time.Duration, ok bool) {
	if rg == nil || !rg.strategy.IsTimed() || rg.Session.StartTime.IsZero() {
		return 0, false
	}
	left = s.cfg.TimeBudget - rg.Session.Elapsed(now)
	if left < 0 || rg.Finished() {
		left = 0
	}
	return left, true
}

func (s *Service) expired(rg *RunningGame, now time.Time) bool {
	if rg.Finished() || !rg.strategy.IsTimed() || rg.Session.StartTime.IsZero() {
		return false
	}
	return rg.Session.Elapsed(now) >= s.cfg.TimeBudget
}

func (s *Service) endOnTimeout(ctx context.Context, rg *RunningGame) {
	s.finish(ctx, rg, StatusGameOver,
		int(s.cfg.TimeBudget/time.Second),
		max(1, rg.Session.FlagsShownCount),
		ModeData{})
}

// SubmitGuess evaluates raw against the displayed country.
//
// Matching ignores case and surrounding whitespace and is otherwise exact.
// A correct guess scores a point; a wrong one costs a life and records the
// missed country. Either way the next country is drawn, unless the run ends.
func (s *Service) SubmitGuess(ctx context.Context, rg *RunningGame, raw string, now time.Time) GuessOutcome {
	if rg.Finished() {
		return GuessOutcome{Status: rg.finished, ClearInput: true}
	}
	if s.expired(rg, now) {
		s.endOnTimeout(ctx, rg)
		return GuessOutcome{Status: StatusGameOver, Message: "Time's up!", ClearInput: true}
	}

	sess := rg.Session
	if len(rg.pool) == 0 {
		rg.finished = StatusGameOver
		return GuessOutcome{Status: StatusGameOver, Message: "No flags loaded.", ClearInput: true}
	}

	current := rg.Current
	if strings.EqualFold(strings.TrimSpace(raw), current) {
		sess.Score++
		return s.advance(ctx, rg, StatusCorrect, "")
	}

	sess.Lives--
	sess.Wrong = append(sess.Wrong, current)
	msg := "Wrong! It was: " + current

	if sess.Lives <= 0 {
		sess.Lives = 0
		timeTaken := 0
		if rg.strategy.IsTimed() && !sess.StartTime.IsZero() {
			timeTaken = int(sess.Elapsed(now) / time.Second)
		}
		flagsShown := sess.FlagsShownCount
		if flagsShown <= 0 {
			flagsShown = len(sess.Shown)
		}
		s.finish(ctx, rg, StatusGameOver, timeTaken, flagsShown, ModeData{})
		return GuessOutcome{Status: StatusGameOver, Message: msg, ClearInput: true}
	}

	return s.advance(ctx, rg, StatusWrong, msg)
}

// advance draws the next country after a guess that did not end the run.
// An exhausted pool is a completed run even when the last answer was wrong;
// the miss message is kept so the player still sees it.
func (s *Service) advance(ctx context.Context, rg *RunningGame, status GuessStatus, msg string) GuessOutcome {
	sess := rg.Session
	next, ok := rg.strategy.NextCountry(rg.pool, sess.Shown)
	if !ok {
		s.finish(ctx, rg, StatusVictory, 0, len(sess.Shown), ModeData{Completion: true})
		if status == StatusCorrect {
			return GuessOutcome{Status: StatusVictory, ClearInput: true, ClearError: true}
		}
		return GuessOutcome{Status: StatusVictory, Message: msg, ClearInput: true}
	}

	rg.Current = next
	sess.Shown = append(sess.Shown, next)
	// Normal mode leaves the counter unused.
	if rg.strategy.InitialFlagsShown() > 0 {
		sess.FlagsShownCount++
	}

	if status == StatusCorrect {
		return GuessOutcome{Status: StatusCorrect, ClearInput: true, ClearError: true}
	}
	return GuessOutcome{Status: StatusWrong, Message: msg, ClearInput: true}
}

// finish marks the run terminal and persists it. A failed write is logged
// and otherwise ignored.
func (s *Service) finish(ctx context.Context, rg *RunningGame, status GuessStatus, timeTaken, flagsShown int, data ModeData) {
	rg.finished = status
	sess := rg.Session
	if err := s.scores.SaveScore(ctx, sess, timeTaken, flagsShown, data); err != nil {
		s.log.Error().Err(err).
			Str("mode", string(sess.Mode)).
			Str("map", sess.MapName).
			Int("score", sess.Score).
			Msg("save score")
		return
	}
	s.log.Info().
		Str("mode", string(sess.Mode)).
		Str("map", sess.MapName).
		Int("score", sess.Score).
		Str("result", string(status)).
		Msg("run finished")
}

// Rankings returns the top runs on mapName for the given filter.
func (s *Service) Rankings(ctx context.Context, mapName string, filter RankFilter, limit int) ([]RunRecord, error) {
	return s.scores.GetTopScores(ctx, mapName, filter, limit)
}
