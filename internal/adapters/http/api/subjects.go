package api

import (
	"context"
	"net/http"

	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/pkg/logger"
)

// SubjectService changes participations and projects after registration.
type SubjectService interface {
	SetParticipationStatus(ctx context.Context, id int64, status model.Status) error
	SetProjectStatus(ctx context.Context, id int64, status model.Status) error
	DeleteProject(ctx context.Context, id int64) error
	AssignMember(ctx context.Context, projectID, participationID int64, leader bool) error
}

// SubjectsHandler handles participation and project lifecycle requests.
type SubjectsHandler struct {
	deps SubjectService
	responder
}

// NewSubjectsHandler creates a new subjects handler.
func NewSubjectsHandler(deps SubjectService, log logger.Logger) *SubjectsHandler {
	return &SubjectsHandler{deps: deps, responder: newResponder(log)}
}

// HandleSetParticipationStatus handles PUT /participations/{id}/status.
// Approving consumes one unit of the event's capacity.
func (h *SubjectsHandler) HandleSetParticipationStatus(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "api.participation_status", h.deps.SetParticipationStatus)
}

// HandleSetProjectStatus handles PUT /projects/{id}/status.
func (h *SubjectsHandler) HandleSetProjectStatus(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "api.project_status", h.deps.SetProjectStatus)
}

func (h *SubjectsHandler) setStatus(w http.ResponseWriter, r *http.Request, op string, set func(context.Context, int64, model.Status) error) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	if err := set(r.Context(), id, model.Status(req.Status)); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteProject handles DELETE /projects/{id}. Members and every
// rating of the project and its members go with it.
func (h *SubjectsHandler) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_project"
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	if err := h.deps.DeleteProject(r.Context(), id); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAssignMember handles POST /projects/{id}/members.
func (h *SubjectsHandler) HandleAssignMember(w http.ResponseWriter, r *http.Request) {
	const op = "api.assign_member"
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	var req memberRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	if err := h.deps.AssignMember(r.Context(), id, req.ParticipationID, req.Leader); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
