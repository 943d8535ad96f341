package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/robalobadob/flagguessr/internal/game"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	DataDir  string `env:"DATA_DIR" envDefault:"data"`
	DBPath   string `env:"DB_PATH"`
	FlagsDir string `env:"FLAGS_DIR"`
	HTTPAddr string `env:"HTTP_ADDR"`

	MaxLives      int `env:"MAX_LIVES" envDefault:"3"`
	StartingScore int `env:"STARTING_SCORE" envDefault:"0"`
	BlitzSeconds  int `env:"BLITZ_SECONDS" envDefault:"60"`

	FPS        int      `env:"FPS" envDefault:"60"`
	FlagWidth  int      `env:"FLAG_WIDTH" envDefault:"40"`
	FlagHeight int      `env:"FLAG_HEIGHT" envDefault:"24"`
	Maps       []string `env:"MAPS" envSeparator:"," envDefault:"global,europe,oceania,africa,asia,america"`

	RankingsLimit int `env:"RANKINGS_LIMIT" envDefault:"10"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "flagguessr.db")
	}
	maps := c.Maps[:0]
	for _, m := range c.Maps {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			maps = append(maps, m)
		}
	}
	c.Maps = maps
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.MaxLives < 1 {
		errs = append(errs, fmt.Errorf("MAX_LIVES must be at least 1, got %d", c.MaxLives))
	}
	if c.StartingScore < 0 {
		errs = append(errs, fmt.Errorf("STARTING_SCORE must not be negative, got %d", c.StartingScore))
	}
	if c.BlitzSeconds < 1 {
		errs = append(errs, fmt.Errorf("BLITZ_SECONDS must be at least 1, got %d", c.BlitzSeconds))
	}
	if c.FPS < 1 {
		errs = append(errs, fmt.Errorf("FPS must be at least 1, got %d", c.FPS))
	}
	if c.FlagWidth < 1 || c.FlagHeight < 1 {
		errs = append(errs, fmt.Errorf("FLAG_WIDTH and FLAG_HEIGHT must be positive, got %dx%d", c.FlagWidth, c.FlagHeight))
	}
	if len(c.Maps) == 0 {
		errs = append(errs, errors.New("MAPS must name at least one map"))
	}
	if c.RankingsLimit < 1 {
		errs = append(errs, fmt.Errorf("RANKINGS_LIMIT must be at least 1, got %d", c.RankingsLimit))
	}
	return errors.Join(errs...)
}

// Game is the rule set handed to the engine.
func (c *Config) Game() game.Config {
	return game.Config{
		MaxLives:      c.MaxLives,
		StartingScore: c.StartingScore,
		TimeBudget:    time.Duration(c.BlitzSeconds) * time.Second,
	}
}

// Level is the parsed LOG_LEVEL. Load has already validated it.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// FrameInterval is the delay between two screen updates.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
