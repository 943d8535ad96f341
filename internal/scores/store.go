// internal/scores/store.go
//
// SQLite-backed score persistence.
// Responsibilities:
//   - Recording one row per finished run (SaveScore).
//   - Ranking runs per map with an optional mode filter (GetTopScores).
//
// Shown/wrong lists and mode data are stored as JSON text columns.

package scores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/flagguessr/internal/database"
	"github.com/robalobadob/flagguessr/internal/game"
)

// DefaultLimit applies when GetTopScores is asked for a non-positive limit.
const DefaultLimit = 10

// Store is a game.ScoreStore persisting runs in the SQLite scores table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore returns a Store over db. Timestamps come from the wall clock.
func NewStore(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

// Initialize applies migrations.
func (s *Store) Initialize(ctx context.Context) error {
	return database.Migrate(ctx, s.db)
}

// SaveScore inserts one finished run.
func (s *Store) SaveScore(ctx context.Context, sess *game.Session, timeTaken, flagsShown int, data game.ModeData) error {
	shown, err := json.Marshal(nonNil(sess.Shown))
	if err != nil {
		return err
	}
	wrong, err := json.Marshal(nonNil(sess.Wrong))
	if err != nil {
		return err
	}
	meta, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scores
			(run_id, score, played_at, map_name, shown, wrong, mode, time_taken, flags_shown, mode_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sess.Score, s.now().UTC().Format(time.RFC3339Nano), sess.MapName,
		string(shown), string(wrong), string(sess.Mode), timeTaken, flagsShown, string(meta),
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// GetTopScores ranks runs on mapName.
//
// Order: score DESC, then time_taken ASC for the blitz filter, then newest first.
func (s *Store) GetTopScores(ctx context.Context, mapName string, filter game.RankFilter, limit int) ([]game.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if filter == "" {
		filter = game.FilterAll
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, score, played_at, map_name, shown, wrong, mode, time_taken, flags_shown, mode_data
		FROM scores
		WHERE map_name = ? AND (? = 'all' OR mode = ?)
		ORDER BY score DESC,
		         CASE WHEN ? = 'blitz' THEN time_taken ELSE 0 END ASC,
		         id DESC
		LIMIT ?`,
		mapName, string(filter), string(filter), string(filter), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]game.RunRecord, 0, limit)
	for rows.Next() {
		var (
			r                   game.RunRecord
			playedAt, mode      string
			shown, wrong, extra string
		)
		if err := rows.Scan(&r.ID, &r.Score, &playedAt, &r.MapName, &shown, &wrong,
			&mode, &r.TimeTaken, &r.FlagsShown, &extra); err != nil {
			return nil, err
		}
		r.Mode = game.Mode(mode)
		r.PlayedAt, _ = time.Parse(time.RFC3339Nano, playedAt)
		if err := decodeColumns(&r, shown, wrong, extra); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func decodeColumns(r *game.RunRecord, shown, wrong, extra string) error {
	if err := json.Unmarshal([]byte(shown), &r.Shown); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(wrong), &r.Wrong); err != nil {
		return err
	}
	return json.Unmarshal([]byte(extra), &r.ModeData)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
