// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/domain/model"
	"github.com/okian/ranked/pkg/logger"
)

// Default page limits.
const (
	DefaultPageLimit   = 20
	MaxPageLimit       = 1000
	DefaultSearchLimit = 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Read operations expose ranking data.
	Page(ctx context.Context, kind model.Kind, tr model.TimeRange, offset, limit int) ([]model.Entry, error)
	PlayerRank(ctx context.Context, kind model.Kind, tr model.TimeRange, id uuid.UUID) (model.Entry, error)
	SearchPlayers(ctx context.Context, query string, limit int) ([]model.Player, error)

	// Healthy reports whether rankings are still being refreshed.
	Healthy() bool
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	rankingHandler *RankingHandler
	rankHandler    *PlayerRankHandler
	searchHandler  *SearchHandler
	metricsHandler http.Handler
	logger         logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	defaultLimit int
	maxLimit     int
	logger       logger.Logger
}

// WithPageLimits sets the default and maximum page size of /ranking.
func WithPageLimits(defaultLimit, maxLimit int) ServerOption {
	return func(c *serverConfig) {
		if maxLimit > 0 {
			c.maxLimit = maxLimit
		}
		if defaultLimit > 0 && defaultLimit <= c.maxLimit {
			c.defaultLimit = defaultLimit
		}
	}
}

// WithLogger sets the logger used for access logs.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{
		defaultLimit: DefaultPageLimit,
		maxLimit:     MaxPageLimit,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		rankingHandler: NewRankingHandler(deps, cfg.defaultLimit, cfg.maxLimit),
		rankHandler:    NewPlayerRankHandler(deps),
		searchHandler:  NewSearchHandler(deps),
		metricsHandler: NewMetricsHandler(),
		logger:         cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /ranking", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("GET /player-ranks/{uuid}", MetricsMiddleware(s.rankHandler.HandleGetPlayerRank, "player_ranks"))
	mux.HandleFunc("GET /search/player", MetricsMiddleware(s.searchHandler.HandleSearch, "search_player"))
	mux.Handle("GET /metrics", s.metricsHandler)
}

// Handler wraps next with the request-id and access log middleware, and with
// CORS when corsOrigins is not empty.
func (s *Server) Handler(next http.Handler, corsOrigins []string) http.Handler {
	h := RequestIDMiddleware(AccessLogMiddleware(s.logger)(next))
	if len(corsOrigins) == 0 {
		return h
	}
	return CORS(corsOrigins)(h)
}

type playerResponse struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	LastQuit string `json:"last_quit,omitempty"`
}

type recordResponse struct {
	RankPosition int    `json:"rank_position"`
	Value        uint64 `json:"value"`
}

type rankedPlayerResponse struct {
	Player playerResponse `json:"player"`
	Record recordResponse `json:"record"`
}

type searchResponse struct {
	ResultCount  int              `json:"result_count"`
	FoundPlayers []playerResponse `json:"found_players"`
}

func toPlayerResponse(p model.Player) playerResponse {
	out := playerResponse{UUID: p.UUID.String(), Name: p.Name}
	if !p.LastQuit.IsZero() {
		out.LastQuit = p.LastQuit.UTC().Format(time.RFC3339)
	}
	return out
}

func toRecordResponse(e model.Entry) recordResponse {
	return recordResponse{RankPosition: e.Rank, Value: e.Value}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
