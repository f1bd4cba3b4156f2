package api

import (
	"context"
	"net/http"

	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/pkg/logger"
)

// EventService manages events and the registrations scoped to them.
type EventService interface {
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	EnrollEvaluator(ctx context.Context, e model.EvaluatorEnrollment) (model.EvaluatorEnrollment, error)
	SetEnrollmentStatus(ctx context.Context, eventID, evaluatorID int64, status model.Status) error
	RegisterParticipation(ctx context.Context, p model.Participation) (model.Participation, error)
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
}

// EventsHandler handles event and registration requests.
type EventsHandler struct {
	deps EventService
	responder
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventService, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, responder: newResponder(log)}
}

// HandleCreateEvent handles POST /events.
func (h *EventsHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req createEventRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	e, err := h.deps.CreateEvent(r.Context(), model.Event{
		Name:              req.Name,
		Multidisciplinary: req.Multidisciplinary,
		Capacity:          req.Capacity,
	})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEvent(e))
}

// HandleGetEvent handles GET /events/{eventID}.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	id, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	e, err := h.deps.GetEvent(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvent(e))
}

// HandleEnrollEvaluator handles POST /events/{eventID}/evaluators.
func (h *EventsHandler) HandleEnrollEvaluator(w http.ResponseWriter, r *http.Request) {
	const op = "api.enroll_evaluator"
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	var req enrollRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	e, err := h.deps.EnrollEvaluator(r.Context(), model.EvaluatorEnrollment{
		EvaluatorID: req.EvaluatorID,
		EventID:     eventID,
		Status:      model.Status(req.Status),
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollmentResponse{
		EvaluatorID: e.EvaluatorID,
		EventID:     e.EventID,
		Status:      e.Status,
		CategoryID:  e.CategoryID,
	})
}

// HandleSetEnrollmentStatus handles PUT /events/{eventID}/evaluators/{evaluatorID}/status.
func (h *EventsHandler) HandleSetEnrollmentStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.enrollment_status"
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	evaluator, err := pathID(r, "evaluatorID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	if err := h.deps.SetEnrollmentStatus(r.Context(), eventID, evaluator, model.Status(req.Status)); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRegisterParticipation handles POST /events/{eventID}/participations.
func (h *EventsHandler) HandleRegisterParticipation(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_participation"
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	var req participationRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	p, err := h.deps.RegisterParticipation(r.Context(), model.Participation{
		ParticipantID: req.ParticipantID,
		EventID:       eventID,
		Status:        model.Status(req.Status),
		Categories:    req.Categories,
	})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParticipation(p))
}

// HandleCreateProject handles POST /events/{eventID}/projects.
func (h *EventsHandler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_project"
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	var req projectRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	p, err := h.deps.CreateProject(r.Context(), model.Project{
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		Status:      model.Status(req.Status),
		Categories:  req.Categories,
	})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProject(p))
}
