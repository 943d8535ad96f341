package scores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalobadob/flagguessr/internal/database"
	"github.com/robalobadob/flagguessr/internal/game"
)

// stores returns every ScoreStore implementation, initialized and empty.
func stores(t *testing.T) map[string]game.ScoreStore {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	out := map[string]game.ScoreStore{
		"sqlite": NewStore(db),
		"memory": NewMemory(),
	}
	for name, s := range out {
		if err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("%s: initialize: %v", name, err)
		}
	}
	return out
}

func save(t *testing.T, s game.ScoreStore, mode game.Mode, mapName string, score, timeTaken int, shown, wrong []string, data game.ModeData) {
	t.Helper()
	sess := &game.Session{Mode: mode, MapName: mapName, Score: score, Shown: shown, Wrong: wrong}
	if err := s.SaveScore(context.Background(), sess, timeTaken, len(shown), data); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestInsertAndFilter(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			save(t, s, game.ModeNormal, "europe", 12, 0, []string{"italy", "france"}, []string{"spain"}, game.ModeData{Completion: true})
			save(t, s, game.ModeEndless, "europe", 5, 0, []string{"japan", "india"}, []string{"china", "china"}, game.ModeData{})
			save(t, s, game.ModeNormal, "asia", 30, 0, []string{"japan"}, nil, game.ModeData{})

			all, err := s.GetTopScores(ctx, "europe", game.FilterAll, 10)
			if err != nil {
				t.Fatalf("all: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("expected 2 europe runs, got %d", len(all))
			}
			if all[0].Score != 12 || all[1].Score != 5 {
				t.Errorf("expected scores [12 5], got [%d %d]", all[0].Score, all[1].Score)
			}

			top := all[0]
			if top.Mode != game.ModeNormal || top.MapName != "europe" || !top.ModeData.Completion {
				t.Errorf("unexpected top record %+v", top)
			}
			if len(top.Shown) != 2 || top.Shown[0] != "italy" || len(top.Wrong) != 1 || top.Wrong[0] != "spain" {
				t.Errorf("shown/wrong not preserved: %v %v", top.Shown, top.Wrong)
			}
			if top.FlagsShown != 2 || top.ID == "" || top.PlayedAt.IsZero() {
				t.Errorf("expected flags shown, id and timestamp, got %+v", top)
			}

			normal, err := s.GetTopScores(ctx, "europe", game.RankFilter(game.ModeNormal), 10)
			if err != nil {
				t.Fatalf("normal: %v", err)
			}
			if len(normal) != 1 || normal[0].Mode != game.ModeNormal {
				t.Errorf("expected one normal run, got %+v", normal)
			}

			blitz, err := s.GetTopScores(ctx, "europe", game.RankFilter(game.ModeBlitz), 10)
			if err != nil {
				t.Fatalf("blitz: %v", err)
			}
			if len(blitz) != 0 {
				t.Errorf("expected no blitz runs, got %d", len(blitz))
			}
		})
	}
}

func TestBlitzTieBreaksOnTime(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			save(t, s, game.ModeBlitz, "global", 7, 60, []string{"a"}, nil, game.ModeData{})
			save(t, s, game.ModeBlitz, "global", 7, 41, []string{"b"}, nil, game.ModeData{})
			save(t, s, game.ModeBlitz, "global", 9, 60, []string{"c"}, nil, game.ModeData{})

			got, err := s.GetTopScores(context.Background(), "global", game.RankFilter(game.ModeBlitz), 10)
			if err != nil {
				t.Fatalf("rankings: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("expected 3 runs, got %d", len(got))
			}
			if got[0].Score != 9 || got[1].TimeTaken != 41 || got[2].TimeTaken != 60 {
				t.Errorf("unexpected order: %+v", got)
			}
		})
	}
}

func TestEqualScoresNewestFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			save(t, s, game.ModeNormal, "africa", 4, 0, []string{"old"}, nil, game.ModeData{})
			save(t, s, game.ModeEndless, "africa", 4, 0, []string{"new"}, nil, game.ModeData{})

			got, err := s.GetTopScores(context.Background(), "africa", game.FilterAll, 10)
			if err != nil {
				t.Fatalf("rankings: %v", err)
			}
			if len(got) != 2 || got[0].Shown[0] != "new" {
				t.Errorf("expected the newest run first, got %+v", got)
			}
		})
	}
}

func TestLimit(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 12; i++ {
				save(t, s, game.ModeEndless, "oceania", i, 0, nil, nil, game.ModeData{})
			}
			ctx := context.Background()

			three, err := s.GetTopScores(ctx, "oceania", game.FilterAll, 3)
			if err != nil {
				t.Fatalf("rankings: %v", err)
			}
			if len(three) != 3 || three[0].Score != 11 {
				t.Errorf("expected top 3 starting at 11, got %+v", three)
			}

			def, err := s.GetTopScores(ctx, "oceania", game.FilterAll, 0)
			if err != nil {
				t.Fatalf("rankings: %v", err)
			}
			if len(def) != DefaultLimit {
				t.Errorf("expected %d runs for a zero limit, got %d", DefaultLimit, len(def))
			}
		})
	}
}

func TestStoreTimestampsInUTC(t *testing.T) {
	db, err := database.Open(database.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	s := NewStore(db)
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	s.now = func() time.Time { return fixed }

	save(t, s, game.ModeNormal, "europe", 1, 0, []string{"italy"}, nil, game.ModeData{})
	got, err := s.GetTopScores(ctx, "europe", game.FilterAll, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("rankings: %v %v", got, err)
	}
	if !got[0].PlayedAt.Equal(fixed) || got[0].PlayedAt.Location() != time.UTC {
		t.Errorf("expected %v in UTC, got %v", fixed.UTC(), got[0].PlayedAt)
	}
}
