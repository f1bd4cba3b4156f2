package api

import (
	"context"
	"net/http"

	"github.com/okian/eventsoft/internal/domain/ranking"
	"github.com/okian/eventsoft/pkg/logger"
)

// RankingService exposes read operations over rankings.
type RankingService interface {
	Ranking(ctx context.Context, eventID int64, category *int64) (ranking.Table, error)
	Position(ctx context.Context, eventID, participationID int64) (ranking.Placement, error)
}

// RankingHandler handles ranking requests.
type RankingHandler struct {
	deps RankingService
	responder
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingService, log logger.Logger) *RankingHandler {
	return &RankingHandler{deps: deps, responder: newResponder(log)}
}

// HandleRanking handles GET /events/{eventID}/ranking?category=.
func (h *RankingHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.ranking"
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	category, err := queryID(r, "category")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	table, err := h.deps.Ranking(r.Context(), eventID, category)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toRanking(table))
}

// HandlePosition handles GET /events/{eventID}/rank/{participationID}.
func (h *RankingHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	const op = "api.rank"
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	participationID, err := pathID(r, "participationID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	pl, err := h.deps.Position(r.Context(), eventID, participationID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{
		ParticipationID: participationID,
		Position:        pl.Position,
		Score:           pl.Score,
		Total:           pl.Total,
	})
}
