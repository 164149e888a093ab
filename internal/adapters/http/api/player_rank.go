package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/okian/ranked/internal/domain/model"
)

// PlayerRankDependencies defines the interface for single player lookups.
type PlayerRankDependencies interface {
	PlayerRank(ctx context.Context, kind model.Kind, tr model.TimeRange, id uuid.UUID) (model.Entry, error)
}

// PlayerRankHandler handles player rank requests.
type PlayerRankHandler struct {
	deps PlayerRankDependencies
}

// NewPlayerRankHandler creates a new player rank handler.
func NewPlayerRankHandler(deps PlayerRankDependencies) *PlayerRankHandler {
	return &PlayerRankHandler{deps: deps}
}

// HandleGetPlayerRank handles GET /player-ranks/{uuid}?type=&time_range= requests.
func (h *PlayerRankHandler) HandleGetPlayerRank(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("uuid")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%q is not a valid player uuid", raw))
		return
	}
	sel, err := parseSelectors(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	entry, err := h.deps.PlayerRank(r.Context(), sel.kind, sel.tr, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found",
				fmt.Errorf("record with %s for kind=%s, time-range=%s not found", id, sel.kind, sel.tr))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(entry))
}
