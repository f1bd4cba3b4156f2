// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/eventsoft/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventService
	SubjectService
	CriteriaService
	RatingService
	RankingService
}

// EvaluatorHeader identifies the acting evaluator on criteria and rating
// mutations.
const EvaluatorHeader = "X-Evaluator-ID"

// IdempotencyHeader carries the client key of a rating batch.
const IdempotencyHeader = "Idempotency-Key"

const maxBodyBytes = 1 << 20

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	subjectsHandler *SubjectsHandler
	criteriaHandler *CriteriaHandler
	ratingsHandler  *RatingsHandler
	rankingHandler  *RankingHandler
}

// Option configures the Server.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps, o.log),
		subjectsHandler: NewSubjectsHandler(deps, o.log),
		criteriaHandler: NewCriteriaHandler(deps, o.log),
		ratingsHandler:  NewRatingsHandler(deps, o.log),
		rankingHandler:  NewRankingHandler(deps, o.log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /events", "create_event", s.eventsHandler.HandleCreateEvent)
	route("GET /events/{eventID}", "get_event", s.eventsHandler.HandleGetEvent)
	route("POST /events/{eventID}/evaluators", "enroll_evaluator", s.eventsHandler.HandleEnrollEvaluator)
	route("PUT /events/{eventID}/evaluators/{evaluatorID}/status", "enrollment_status", s.eventsHandler.HandleSetEnrollmentStatus)
	route("POST /events/{eventID}/participations", "register_participation", s.eventsHandler.HandleRegisterParticipation)
	route("POST /events/{eventID}/projects", "create_project", s.eventsHandler.HandleCreateProject)

	route("PUT /participations/{id}/status", "participation_status", s.subjectsHandler.HandleSetParticipationStatus)
	route("PUT /projects/{id}/status", "project_status", s.subjectsHandler.HandleSetProjectStatus)
	route("DELETE /projects/{id}", "delete_project", s.subjectsHandler.HandleDeleteProject)
	route("POST /projects/{id}/members", "assign_member", s.subjectsHandler.HandleAssignMember)

	route("GET /events/{eventID}/criteria", "list_criteria", s.criteriaHandler.HandleList)
	route("POST /events/{eventID}/criteria", "add_criterion", s.criteriaHandler.HandleAdd)
	route("PUT /criteria/{id}", "edit_criterion", s.criteriaHandler.HandleEdit)
	route("DELETE /criteria/{id}", "remove_criterion", s.criteriaHandler.HandleRemove)

	route("POST /participations/{id}/ratings", "rate_participation", s.ratingsHandler.HandleRateParticipation)
	route("POST /projects/{id}/ratings", "rate_project", s.ratingsHandler.HandleRateProject)
	route("GET /participations/{id}/breakdown", "participation_breakdown", s.ratingsHandler.HandleParticipationBreakdown)
	route("GET /projects/{id}/breakdown", "project_breakdown", s.ratingsHandler.HandleProjectBreakdown)

	route("GET /events/{eventID}/ranking", "ranking", s.rankingHandler.HandleRanking)
	route("GET /events/{eventID}/rank/{participationID}", "rank", s.rankingHandler.HandlePosition)
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
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

// responder writes domain errors and logs the ones that map to 5xx.
type responder struct {
	log logger.Logger
}

func newResponder(l logger.Logger) responder {
	if l == nil {
		l = logger.Nop()
	}
	return responder{log: l}
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *validationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "validation_failed",
			Message: verr.Error(),
			Fields:  verr.fields,
		})
		return
	}

	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		rs.log.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("request_id", RequestIDFromContext(r.Context())),
			logger.Error(err),
		)
		if status == http.StatusInternalServerError {
			err = errors.New("internal error")
		}
	}
	writeError(w, status, code, err)
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return validate(dst)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrBadRequest, name, raw)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: invalid %s %q", ErrBadRequest, name, raw)
	}
	return &id, nil
}

func evaluatorID(r *http.Request) (int64, error) {
	raw := r.Header.Get(EvaluatorHeader)
	if raw == "" {
		return 0, ErrMissingEvaluator
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMissingEvaluator, raw)
	}
	return id, nil
}
