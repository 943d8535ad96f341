package screens

import (
	"image"
	"time"

	"github.com/robalobadob/flagguessr/internal/game"
)

// EventKind classifies input fed to the machine by a host.
type EventKind int

const (
	// Choose picks the menu option whose key equals Event.Key.
	Choose EventKind = iota
	// Type appends Event.Text to the guess.
	Type
	// Backspace removes the last rune of the guess.
	Backspace
	// SetInput replaces the guess with Event.Text.
	SetInput
	// Confirm submits the guess.
	Confirm
	// Back leaves the current screen the way its back option would.
	Back
	// Quit stops the machine from any screen.
	Quit
)

// Event is one input delivered to the current screen.
type Event struct {
	Kind EventKind
	Key  string
	Text string
}

// Option is one selectable menu entry.
type Option struct {
	Key   string
	Label string
}

// View is everything a host needs to draw one frame. Fields that do not apply
// to the current screen are left zero.
type View struct {
	Screen  string
	Title   string
	Options []Option
	Error   string

	// mode select
	SelectedMode game.Mode

	// playing and end screens
	Mode       game.Mode
	MapName    string
	Score      int
	Lives      int
	MaxLives   int
	FlagsShown int
	Flag       image.Image
	Input      string
	Timed      bool
	Remaining  time.Duration
	Wrong      []string

	// rankings
	Filter  game.RankFilter
	Records []game.RunRecord
}
