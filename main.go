// main.go
//
// FlagGuessr entry point.
//
// Usage:
//   flagguessr [play] [-ephemeral]   terminal game (default); also serves the
//                                    rankings API when HTTP_ADDR is set
//   flagguessr serve                 rankings API only (HTTP_ADDR, default :8080)
//   flagguessr sync                  re-index the flag directory and print counts
//
// Configuration comes from the environment, optionally seeded from .env.

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/flagguessr/assets"
	"github.com/robalobadob/flagguessr/internal/catalog"
	"github.com/robalobadob/flagguessr/internal/config"
	"github.com/robalobadob/flagguessr/internal/database"
	"github.com/robalobadob/flagguessr/internal/game"
	"github.com/robalobadob/flagguessr/internal/httpserver"
	"github.com/robalobadob/flagguessr/internal/scores"
	"github.com/robalobadob/flagguessr/internal/screens"
	"github.com/robalobadob/flagguessr/internal/tui"
)

const defaultServeAddr = ":8080"

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd := "play"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "play", "serve", "sync":
	default:
		return fmt.Errorf("unknown command %q (want play, serve or sync)", cmd)
	}

	flags := flag.NewFlagSet(cmd, flag.ContinueOnError)
	ephemeral := flags.Bool("ephemeral", false, "keep scores in memory only")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	closeLog, err := setupLogging(cfg, cmd == "play")
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	log.Info().Str("path", cfg.DBPath).Msg("database opened")

	cat := catalog.New(db, flagDir(cfg))

	if cmd == "sync" {
		return runSync(ctx, db, cat, stdout)
	}

	var store game.ScoreStore = scores.NewStore(db)
	if *ephemeral {
		store = scores.NewMemory()
	}
	svc := game.NewService(store, cat, cfg.Game())
	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing game: %w", err)
	}

	if cmd == "serve" {
		addr := cfg.HTTPAddr
		if addr == "" {
			addr = defaultServeAddr
		}
		return serve(ctx, httpserver.New(addr, svc, cfg.Maps, cfg.RankingsLimit))
	}
	return play(ctx, cfg, svc)
}

// setupLogging points the global logger at the log file while the TUI owns
// the terminal, and at stderr otherwise.
func setupLogging(cfg *config.Config, toFile bool) (func(), error) {
	zerolog.SetGlobalLevel(cfg.Level())
	if !toFile {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		return func() {}, nil
	}

	path := cfg.LogFile
	if path == "" {
		path = filepath.Join(cfg.DataDir, "flagguessr.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return func() { _ = f.Close() }, nil
}

func flagDir(cfg *config.Config) fs.FS {
	if cfg.FlagsDir != "" {
		return os.DirFS(cfg.FlagsDir)
	}
	return assets.Flags()
}

type syncer interface {
	Sync(ctx context.Context) (catalog.SyncStats, error)
	Regions(ctx context.Context) (map[string]int, error)
}

func runSync(ctx context.Context, db *sql.DB, cat syncer, stdout io.Writer) error {
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	st, err := cat.Sync(ctx)
	if err != nil {
		return fmt.Errorf("syncing flags: %w", err)
	}
	regions, err := cat.Regions(ctx)
	if err != nil {
		return fmt.Errorf("counting regions: %w", err)
	}

	names := make([]string, 0, len(regions))
	for r := range regions {
		names = append(names, r)
	}
	sort.Strings(names)

	fmt.Fprintf(stdout, "added %d, removed %d, %d flags indexed\n", st.Added, st.Removed, st.Total)
	for _, r := range names {
		fmt.Fprintf(stdout, "  %-10s %d\n", r, regions[r])
	}
	return nil
}

// serve runs the rankings API until ctx is cancelled.
func serve(ctx context.Context, srv *httpserver.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}

// play runs the terminal game, plus the rankings API when HTTP_ADDR is set.
// Quitting the game stops the API as well.
func play(ctx context.Context, cfg *config.Config, svc *game.Service) error {
	machine := screens.New(svc, screens.Options{
		Maps:          cfg.Maps,
		FlagSize:      image.Pt(cfg.FlagWidth, cfg.FlagHeight),
		MaxLives:      cfg.MaxLives,
		RankingsLimit: cfg.RankingsLimit,
	})

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop()
		return tui.Run(gctx, machine, cfg.FrameInterval())
	})

	if cfg.HTTPAddr != "" {
		srv := httpserver.New(cfg.HTTPAddr, svc, cfg.Maps, cfg.RankingsLimit)
		g.Go(func() error { return srv.Run(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
