// internal/scores/memory.go
//
// In-memory implementation of game.ScoreStore.
// Used by `flagguessr play -ephemeral` and in tests when durability is not required.
//
// Characteristics:
//   - Keeps every saved run in a slice in insertion order.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Ranks exactly like the SQLite Store.
//   - State is lost when the process restarts.

package scores

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/flagguessr/internal/game"
)

// Memory is a game.ScoreStore that keeps runs in process memory.
type Memory struct {
	mu   sync.RWMutex     // guards runs
	runs []game.RunRecord // oldest first
	now  func() time.Time
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Initialize is a no-op.
func (m *Memory) Initialize(context.Context) error { return nil }

// SaveScore appends a copy of the run.
func (m *Memory) SaveScore(_ context.Context, s *game.Session, timeTaken, flagsShown int, data game.ModeData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, game.RunRecord{
		ID:         uuid.NewString(),
		Score:      s.Score,
		PlayedAt:   m.now().UTC(),
		MapName:    s.MapName,
		Shown:      append([]string{}, s.Shown...),
		Wrong:      append([]string{}, s.Wrong...),
		Mode:       s.Mode,
		TimeTaken:  timeTaken,
		FlagsShown: flagsShown,
		ModeData:   data,
	})
	return nil
}

// GetTopScores ranks saved runs the same way Store does.
func (m *Memory) GetTopScores(_ context.Context, mapName string, filter game.RankFilter, limit int) ([]game.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if filter == "" {
		filter = game.FilterAll
	}

	type ranked struct {
		seq int
		rec game.RunRecord
	}
	m.mu.RLock()
	var hits []ranked
	for i, r := range m.runs {
		if r.MapName != mapName {
			continue
		}
		if filter != game.FilterAll && string(r.Mode) != string(filter) {
			continue
		}
		hits = append(hits, ranked{seq: i, rec: r})
	}
	m.mu.RUnlock()

	blitz := string(filter) == string(game.ModeBlitz)
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.rec.Score != b.rec.Score {
			return a.rec.Score > b.rec.Score
		}
		if blitz && a.rec.TimeTaken != b.rec.TimeTaken {
			return a.rec.TimeTaken < b.rec.TimeTaken
		}
		return a.seq > b.seq
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]game.RunRecord, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out, nil
}
