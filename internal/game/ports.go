package game

import (
	"context"
	"image"
)

// ScoreStore persists finished runs and ranks them.
// Implementations may be backed by memory, SQLite, etc.
type ScoreStore interface {
	// Initialize prepares the backing storage. It must be idempotent.
	Initialize(ctx context.Context) error

	// SaveScore persists the summary of a finished session.
	SaveScore(ctx context.Context, s *Session, timeTaken, flagsShown int, data ModeData) error

	// GetTopScores returns runs on mapName ordered by score descending.
	// Ties go to the newest run, or to the fastest one for the blitz filter.
	GetTopScores(ctx context.Context, mapName string, filter RankFilter, limit int) ([]RunRecord, error)
}

// FlagCatalog resolves maps to countries and loads their flags.
type FlagCatalog interface {
	// Initialize performs first-time setup. It must be idempotent.
	Initialize(ctx context.Context) error

	// LoadCountries maps each country of mapName to its region.
	LoadCountries(ctx context.Context, mapName string) (map[string]string, error)

	// LoadFlagImages returns a flag scaled to size for every country it can load.
	LoadFlagImages(ctx context.Context, countries map[string]string, size image.Point) (map[string]image.Image, error)
}
