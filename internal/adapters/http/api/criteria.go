package api

import (
	"context"
	"net/http"

	"github.com/okian/eventsoft/internal/domain/criteria"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/pkg/logger"
)

// CriteriaService manages weighted criteria.
type CriteriaService interface {
	ListCriteria(ctx context.Context, eventID int64) (criteria.Summary, error)
	AddCriterion(ctx context.Context, evaluatorID, eventID int64, description string, weight float64) (model.Criterion, error)
	EditCriterion(ctx context.Context, evaluatorID, criterionID int64, description string, weight float64) (model.Criterion, error)
	RemoveCriterion(ctx context.Context, evaluatorID, criterionID int64) error
}

// CriteriaHandler handles criteria requests. Mutations require an approved
// evaluator in the X-Evaluator-ID header.
type CriteriaHandler struct {
	deps CriteriaService
	responder
}

// NewCriteriaHandler creates a new criteria handler.
func NewCriteriaHandler(deps CriteriaService, log logger.Logger) *CriteriaHandler {
	return &CriteriaHandler{deps: deps, responder: newResponder(log)}
}

// HandleList handles GET /events/{eventID}/criteria.
func (h *CriteriaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_criteria"
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	sum, err := h.deps.ListCriteria(r.Context(), eventID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toCriteria(sum))
}

// HandleAdd handles POST /events/{eventID}/criteria.
func (h *CriteriaHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_criterion"
	evaluator, err := evaluatorID(r)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	var req criterionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	c, err := h.deps.AddCriterion(r.Context(), evaluator, eventID, req.Description, req.Weight)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCriterion(c))
}

// HandleEdit handles PUT /criteria/{id}.
func (h *CriteriaHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	const op = "api.edit_criterion"
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
	var req criterionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	c, err := h.deps.EditCriterion(r.Context(), evaluator, id, req.Description, req.Weight)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toCriterion(c))
}

// HandleRemove handles DELETE /criteria/{id}.
func (h *CriteriaHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_criterion"
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
	if err := h.deps.RemoveCriterion(r.Context(), evaluator, id); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
