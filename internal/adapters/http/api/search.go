package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/ranked/internal/domain/model"
)

// SearchDependencies defines the interface for player name search.
type SearchDependencies interface {
	SearchPlayers(ctx context.Context, query string, limit int) ([]model.Player, error)
}

// SearchHandler handles player search requests.
type SearchHandler struct {
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

// HandleSearch handles GET /search/player?q=&lim= requests.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrNoQuery)
		return
	}
	limit, err := parseCount(q, "lim", DefaultSearchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if limit > MaxPageLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%d is too large for a limit", limit))
		return
	}

	players, err := h.deps.SearchPlayers(r.Context(), query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	out := searchResponse{ResultCount: len(players), FoundPlayers: make([]playerResponse, len(players))}
	for i, p := range players {
		out.FoundPlayers[i] = toPlayerResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}
