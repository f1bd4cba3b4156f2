package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/eventsoft/internal/app"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/internal/domain/rating"
	"github.com/okian/eventsoft/internal/domain/scoring"
	"github.com/okian/eventsoft/pkg/logger"
)

// RatingService stores rating batches and reads breakdowns.
type RatingService interface {
	RateSubject(ctx context.Context, evaluatorID int64, ref model.SubjectRef, entries []rating.Entry, idempotencyKey string) (service.RateOutcome, error)
	Breakdown(ctx context.Context, ref model.SubjectRef, evaluatorID *int64) ([]scoring.Breakdown, error)
}

// RatingsHandler handles rating submissions and breakdowns.
type RatingsHandler struct {
	deps RatingService
	responder
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingService, log logger.Logger) *RatingsHandler {
	return &RatingsHandler{deps: deps, responder: newResponder(log)}
}

// HandleRateParticipation handles POST /participations/{id}/ratings.
func (h *RatingsHandler) HandleRateParticipation(w http.ResponseWriter, r *http.Request) {
	h.rate(w, r, "api.rate_participation", model.SubjectParticipant)
}

// HandleRateProject handles POST /projects/{id}/ratings. The new project
// score is copied to every member.
func (h *RatingsHandler) HandleRateProject(w http.ResponseWriter, r *http.Request) {
	h.rate(w, r, "api.rate_project", model.SubjectProject)
}

func (h *RatingsHandler) rate(w http.ResponseWriter, r *http.Request, op string, kind model.SubjectKind) {
	evaluator, err := evaluatorID(r)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	var req ratingBatchRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}

	entries, err := req.entries()
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	out, err := h.deps.RateSubject(r.Context(), evaluator, model.SubjectRef{Kind: kind, ID: id}, entries, key)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toRate(out))
}

// HandleParticipationBreakdown handles GET /participations/{id}/breakdown.
func (h *RatingsHandler) HandleParticipationBreakdown(w http.ResponseWriter, r *http.Request) {
	h.breakdown(w, r, "api.participation_breakdown", model.SubjectParticipant)
}

// HandleProjectBreakdown handles GET /projects/{id}/breakdown.
func (h *RatingsHandler) HandleProjectBreakdown(w http.ResponseWriter, r *http.Request) {
	h.breakdown(w, r, "api.project_breakdown", model.SubjectProject)
}

// breakdown serves every evaluator's breakdown, or one evaluator's when
// ?evaluator_id= is set.
func (h *RatingsHandler) breakdown(w http.ResponseWriter, r *http.Request, op string, kind model.SubjectKind) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	evaluator, err := queryID(r, "evaluator_id")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	bs, err := h.deps.Breakdown(r.Context(), model.SubjectRef{Kind: kind, ID: id}, evaluator)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdowns(bs))
}
