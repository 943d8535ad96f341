package game

import (
	"fmt"
	"math/rand/v2"
)

// Rand is the randomness a Strategy draws from. *rand.Rand satisfies it;
// tests pass a scripted source to make runs replayable.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Strategy is the per-mode selection and termination policy.
type Strategy interface {
	Mode() Mode
	// IsTimed reports whether the Service must anchor a start time.
	IsTimed() bool
	// InitialFlagsShown is the FlagsShownCount a new session starts with.
	InitialFlagsShown() int
	// NextCountry picks the next country to display. ok is false when the
	// run has nothing left to show.
	NextCountry(all, shown []string) (country string, ok bool)
}

// NewStrategy builds the strategy for m. A nil rnd uses math/rand/v2.
func NewStrategy(m Mode, rnd Rand) (Strategy, error) {
	if rnd == nil {
		rnd = globalRand{}
	}
	switch m {
	case ModeNormal:
		return normalStrategy{rnd: rnd}, nil
	case ModeEndless:
		return endlessStrategy{rnd: rnd}, nil
	case ModeBlitz:
		return blitzStrategy{endlessStrategy{rnd: rnd}}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, m)
}

// normalStrategy draws without replacement and completes when the pool is empty.
type normalStrategy struct{ rnd Rand }

func (normalStrategy) Mode() Mode             { return ModeNormal }
func (normalStrategy) IsTimed() bool          { return false }
func (normalStrategy) InitialFlagsShown() int { return 0 }

func (s normalStrategy) NextCountry(all, shown []string) (string, bool) {
	seen := make(map[string]struct{}, len(shown))
	for _, c := range shown {
		seen[c] = struct{}{}
	}
	remaining := make([]string, 0, len(all))
	for _, c := range all {
		if _, ok := seen[c]; !ok {
			remaining = append(remaining, c)
		}
	}
	return pick(s.rnd, remaining)
}

// endlessStrategy draws with replacement from the full pool.
type endlessStrategy struct{ rnd Rand }

func (endlessStrategy) Mode() Mode             { return ModeEndless }
func (endlessStrategy) IsTimed() bool          { return false }
func (endlessStrategy) InitialFlagsShown() int { return 1 }

func (s endlessStrategy) NextCountry(all, _ []string) (string, bool) {
	return pick(s.rnd, all)
}

// blitzStrategy selects like endless and is timed.
type blitzStrategy struct{ endlessStrategy }

func (blitzStrategy) Mode() Mode    { return ModeBlitz }
func (blitzStrategy) IsTimed() bool { return true }

func pick(rnd Rand, from []string) (string, bool) {
	if len(from) == 0 {
		return "", false
	}
	return from[rnd.IntN(len(from))], true
}
