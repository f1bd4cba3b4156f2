package api

import (
	"errors"
	"net/http"

	"github.com/okian/eventsoft/internal/adapters/repository"
	service "github.com/okian/eventsoft/internal/app"
	"github.com/okian/eventsoft/internal/domain/criteria"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/internal/domain/ranking"
	"github.com/okian/eventsoft/internal/domain/rating"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMissingEvaluator = errors.New("missing or invalid " + EvaluatorHeader + " header")
)

type errorClass struct {
	target error
	status int
	code   string
}

// classes maps domain sentinels to HTTP responses; first match wins.
var classes = []errorClass{
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{ErrMissingEvaluator, http.StatusUnauthorized, "unauthenticated"},

	{criteria.ErrWeightExceeded, http.StatusUnprocessableEntity, "weight_exceeded"},
	{criteria.ErrInvalidCriterion, http.StatusUnprocessableEntity, "invalid_criterion"},
	{rating.ErrInvalidRatingValue, http.StatusUnprocessableEntity, "invalid_rating"},
	{rating.ErrEmptyBatch, http.StatusUnprocessableEntity, "empty_batch"},
	{repository.ErrInvalidStatus, http.StatusUnprocessableEntity, "invalid_status"},

	{criteria.ErrEvaluatorNotApproved, http.StatusForbidden, "evaluator_not_approved"},
	{rating.ErrEvaluatorNotApproved, http.StatusForbidden, "evaluator_not_approved"},
	{rating.ErrSubjectNotApproved, http.StatusForbidden, "subject_not_approved"},
	{rating.ErrCategoryMismatch, http.StatusForbidden, "category_mismatch"},

	{rating.ErrEventMismatch, http.StatusConflict, "event_mismatch"},
	{repository.ErrDuplicate, http.StatusConflict, "duplicate"},
	{repository.ErrLeaderExists, http.StatusConflict, "leader_exists"},
	{repository.ErrCapacityExhausted, http.StatusConflict, "capacity_exhausted"},
	{repository.ErrInvalidMember, http.StatusConflict, "invalid_member"},
	{rating.ErrGroupedParticipation, http.StatusConflict, "grouped_participation"},

	{repository.ErrNotFound, http.StatusNotFound, "not_found"},
	{ranking.ErrNotRanked, http.StatusNotFound, "not_ranked"},
	{model.ErrUnknownSubjectKind, http.StatusNotFound, "not_found"},

	{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
}

// classify returns the HTTP status and error code for err.
func classify(err error) (int, string) {
	for _, c := range classes {
		if errors.Is(err, c.target) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, "internal"
}
