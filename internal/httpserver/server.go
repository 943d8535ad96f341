// internal/httpserver/server.go
//
// HTTP server wiring for the FlagGuessr rankings API.
// Responsibilities:
//   - Router + middleware (JSON, timeouts, panic recovery, request IDs, request logging).
//   - Public endpoints: "/", "/health", "/maps".
//   - Rankings: GET /rankings/{map}?filter=all|normal|endless|blitz&limit=N.
//   - Lifecycle: Run blocks until Shutdown.
//
// Notes:
//   - Read-only: runs are only ever written by the game engine.
//   - Each ranked run carries its derived stats so clients need not recompute them.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flagguessr/internal/game"
)

// MaxLimit caps the limit query parameter.
const MaxLimit = 100

// Ranker is the read side of the game engine.
type Ranker interface {
	Rankings(ctx context.Context, mapName string, filter game.RankFilter, limit int) ([]game.RunRecord, error)
}

// Server bundles router, rankings source and the configured maps.
type Server struct {
	r        *chi.Mux
	srv      *http.Server
	rankings Ranker
	maps     []string
	limit    int
}

// New constructs a Server, installs middleware, and registers routes.
func New(addr string, rankings Ranker, maps []string, defaultLimit int) *Server {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	s := &Server{r: chi.NewRouter(), rankings: rankings, maps: maps, limit: defaultLimit}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger(log.Logger))       // one line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"flagguessr","endpoints":["/health","/maps","/rankings/{map}"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Get("/maps", s.handleMaps)
	s.r.Get("/rankings/{map}", s.handleRankings)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves until Shutdown is called.
func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("rankings api listening")

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits up to 10s for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs method, path, status, size and latency of each request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Msg("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// ------------------------------ RANKINGS -----------------------------------

type mapsRes struct {
	Maps  []string    `json:"maps"`
	Modes []game.Mode `json:"modes"`
}

func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(mapsRes{Maps: s.maps, Modes: game.Modes})
}

// rankedRun is a RunRecord plus its derived stats.
type rankedRun struct {
	Rank int `json:"rank"`
	game.RunRecord
	Attempts       int     `json:"attempts"`
	Accuracy       float64 `json:"accuracy"`
	FlagsPerSecond float64 `json:"flagsPerSecond,omitempty"`
	AvgPerLife     float64 `json:"avgPerLife,omitempty"`
}

type rankingsRes struct {
	Map    string          `json:"map"`
	Filter game.RankFilter `json:"filter"`
	Runs   []rankedRun     `json:"runs"`
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	mapName := strings.ToLower(chi.URLParam(r, "map"))
	if !slices.Contains(s.maps, mapName) {
		writeError(w, http.StatusNotFound, "unknown_map")
		return
	}

	filter, err := game.ParseRankFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_filter")
		return
	}

	limit := s.limit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_limit")
			return
		}
		limit = min(n, MaxLimit)
	}

	recs, err := s.rankings.Rankings(r.Context(), mapName, filter, limit)
	if err != nil {
		log.Error().Err(err).Str("map", mapName).Msg("rankings")
		writeError(w, http.StatusInternalServerError, "rankings_failed")
		return
	}

	out := rankingsRes{Map: mapName, Filter: filter, Runs: make([]rankedRun, 0, len(recs))}
	for i, rec := range recs {
		rr := rankedRun{
			Rank:      i + 1,
			RunRecord: rec,
			Attempts:  rec.Attempts(),
			Accuracy:  rec.Accuracy(),
		}
		switch rec.Mode {
		case game.ModeBlitz:
			rr.FlagsPerSecond = rec.FlagsPerSecond()
		case game.ModeEndless:
			rr.AvgPerLife = rec.AvgPerLife()
		}
		out.Runs = append(out.Runs, rr)
	}
	_ = json.NewEncoder(w).Encode(out)
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
