package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/ranked/internal/domain/model"
)

// RankingDependencies defines the interface for ranking page reads.
type RankingDependencies interface {
	Page(ctx context.Context, kind model.Kind, tr model.TimeRange, offset, limit int) ([]model.Entry, error)
}

// RankingHandler handles ranking page requests.
type RankingHandler struct {
	deps         RankingDependencies
	defaultLimit int
	maxLimit     int
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, defaultLimit, maxLimit int) *RankingHandler {
	return &RankingHandler{
		deps:         deps,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// HandleGetRanking handles GET /ranking?type=&time_range=&offset=&limit= requests.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := parseSelectors(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit, err := parseCount(q, "limit", h.defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%d is too large for a limit", limit))
		return
	}
	offset, err := parseCount(q, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	entries, err := h.deps.Page(r.Context(), sel.kind, sel.tr, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	out := make([]rankedPlayerResponse, len(entries))
	for i, e := range entries {
		out[i] = rankedPlayerResponse{Player: toPlayerResponse(e.Player), Record: toRecordResponse(e)}
	}
	writeJSON(w, http.StatusOK, out)
}
