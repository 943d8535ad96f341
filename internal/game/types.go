// internal/game/types.go
//
// Core type definitions for the flag quiz engine.
// Defines:
//   - Mode: the three play modes and their persisted identifiers.
//   - Config: immutable tuning supplied once to the Service.
//   - Session: mutable state of one run.
//   - RunningGame: a Session paired with its catalog, images and current flag.
//   - GuessOutcome / StartOutcome: results handed back to the presentation layer.

package game

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
	"time"
)

// Mode identifies a play mode. The string value is what gets persisted and
// what players see ("normal", "endless", "blitz").
type Mode string

const (
	ModeNormal  Mode = "normal"  // fixed set, each country at most once
	ModeEndless Mode = "endless" // survival, random draws with repeats
	ModeBlitz   Mode = "blitz"   // survival under a wall-clock budget
)

// Modes lists every supported mode in menu order.
var Modes = []Mode{ModeNormal, ModeEndless, ModeBlitz}

// ParseMode resolves a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeNormal, ModeEndless, ModeBlitz:
		return m, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMode, s)
}

// Config holds engine tuning. It is copied into the Service and never mutated.
type Config struct {
	MaxLives      int           // lives at run start
	StartingScore int           // score at run start
	TimeBudget    time.Duration // blitz wall-clock budget
}

// DefaultConfig returns 3 lives, score 0 and a 60 second blitz budget.
func DefaultConfig() Config {
	return Config{
		MaxLives:      3,
		StartingScore: 0,
		TimeBudget:    60 * time.Second,
	}
}

// Session is the live state of one run. Only the Service mutates it.
type Session struct {
	Mode            Mode
	MapName         string
	Score           int
	Lives           int
	Shown           []string  // every country presented, in order
	Wrong           []string  // countries answered incorrectly, in order
	FlagsShownCount int       // unused for normal mode
	StartTime       time.Time // zero unless the mode is timed
}

// Elapsed reports how long a timed session has been running at now.
// Untimed sessions always report zero.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return now.Sub(s.StartTime)
}

// RunningGame pairs a Session with everything needed to present it.
type RunningGame struct {
	Session   *Session
	Countries map[string]string      // country -> region
	Flags     map[string]image.Image // country -> scaled flag
	Current   string                 // country currently displayed

	pool     []string    // sorted keys of Flags; the candidate pool
	strategy Strategy    // chosen once at start
	finished GuessStatus // terminal status once the run has ended
}

// Pool returns the candidate countries of the run in a stable order.
func (rg *RunningGame) Pool() []string { return rg.pool }

// Finished reports whether the run has reached a terminal outcome.
func (rg *RunningGame) Finished() bool { return rg.finished != "" }

// Result returns the terminal status, or "" while the run is live.
func (rg *RunningGame) Result() GuessStatus { return rg.finished }

// CurrentFlag returns the image for the displayed country, or nil.
func (rg *RunningGame) CurrentFlag() image.Image { return rg.Flags[rg.Current] }

func newRunningGame(s *Session, countries map[string]string, flags map[string]image.Image, first string, pool []string) *RunningGame {
	return &RunningGame{
		Session:   s,
		Countries: countries,
		Flags:     flags,
		Current:   first,
		pool:      pool,
	}
}

func poolOf(flags map[string]image.Image) []string {
	out := make([]string, 0, len(flags))
	for c := range flags {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// GuessStatus is the coarse result of evaluating one guess.
type GuessStatus string

const (
	StatusCorrect  GuessStatus = "correct"
	StatusWrong    GuessStatus = "wrong"
	StatusVictory  GuessStatus = "victory"
	StatusGameOver GuessStatus = "game_over"
)

// Terminal reports whether the status ends a run.
func (s GuessStatus) Terminal() bool {
	return s == StatusVictory || s == StatusGameOver
}

// GuessOutcome is returned by SubmitGuess. ClearInput and ClearError tell the
// presentation what to wipe; Message is shown when ClearError is false.
type GuessOutcome struct {
	Status     GuessStatus
	Message    string
	ClearInput bool
	ClearError bool
}

// StartOutcome is returned by StartGame. On failure Err matches one of the
// Err* sentinels below (or ErrCatalog) and Game is nil.
type StartOutcome struct {
	Success bool
	Game    *RunningGame
	Err     error
}

var (
	ErrUnsupportedMode  = errors.New("unsupported mode")
	ErrNoCountries      = errors.New("no countries found for the selected map")
	ErrNoFlagImages     = errors.New("no flag images available for the selected map")
	ErrNoInitialCountry = errors.New("unable to select an initial country")
	ErrCatalog          = errors.New("flag catalog unavailable")
)

// ModeData is mode-specific metadata persisted with a finished run.
type ModeData struct {
	Completion bool `json:"completion,omitempty"`
}

// RankFilter narrows rankings to a single mode, or FilterAll.
type RankFilter string

const FilterAll RankFilter = "all"

// ParseRankFilter accepts "all" or any mode name; empty means all.
func ParseRankFilter(s string) (RankFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	m, err := ParseMode(s)
	if err != nil {
		return "", fmt.Errorf("unknown rankings filter %q", s)
	}
	return RankFilter(m), nil
}

// RunRecord is one persisted run as returned by a ScoreStore.
type RunRecord struct {
	ID         string    `json:"id"`
	Score      int       `json:"score"`
	PlayedAt   time.Time `json:"playedAt"`
	MapName    string    `json:"map"`
	Shown      []string  `json:"shown"`
	Wrong      []string  `json:"wrong"`
	Mode       Mode      `json:"mode"`
	TimeTaken  int       `json:"timeTaken"` // seconds, 0 when not applicable
	FlagsShown int       `json:"flagsShown"`
	ModeData   ModeData  `json:"modeData"`
}

// Attempts is the number of answers given: correct plus mistakes.
func (r RunRecord) Attempts() int { return r.Score + len(r.Wrong) }

// Accuracy is the share of correct answers in [0,1].
func (r RunRecord) Accuracy() float64 {
	return float64(r.Score) / float64(max(r.Attempts(), 1))
}

// FlagsPerSecond is the blitz rate; TimeTaken below one second counts as one.
func (r RunRecord) FlagsPerSecond() float64 {
	return float64(r.Score) / float64(max(r.TimeTaken, 1))
}

// AvgPerLife spreads the flags shown over the default three lives.
func (r RunRecord) AvgPerLife() float64 {
	return float64(r.FlagsShown) / 3
}
