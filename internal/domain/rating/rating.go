// Package rating validates and stores evaluators' per-criterion ratings.
// It never recomputes aggregates; callers trigger aggregation after a batch.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/pkg/logger"
	"github.com/okian/eventsoft/pkg/metrics"
)

const (
	MinValue = 1
	MaxValue = 5
)

// Store is what submission needs from persistence.
type Store interface {
	model.SubjectReader
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	GetEnrollment(ctx context.Context, eventID, evaluatorID int64) (model.EvaluatorEnrollment, error)
	GetCriterion(ctx context.Context, id int64) (model.Criterion, error)
	ListCriteria(ctx context.Context, eventID int64) ([]model.Criterion, error)
	UpsertRatings(ctx context.Context, ratings []model.Rating) (int, error)
}

// Entry is one criterion's rating inside a batch.
type Entry struct {
	CriterionID int64
	Value       int
	Note        string
}

// Result describes an accepted batch.
type Result struct {
	Subject model.Subject
	Written int
}

// Service accepts rating batches.
type Service struct {
	store Store
	log   logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a rating Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseValue converts form or query input to a rating value.
func ParseValue(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRatingValue, raw)
	}
	if err := ValidateValue(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ValidateValue checks the 1..5 range.
func ValidateValue(v int) error {
	if v < MinValue || v > MaxValue {
		return fmt.Errorf("%w: got %d", ErrInvalidRatingValue, v)
	}
	return nil
}

// SubmitRating stores a single rating.
func (s *Service) SubmitRating(ctx context.Context, evaluatorID, criterionID int64, subject model.SubjectRef, value int, note string) (Result, error) {
	return s.Submit(ctx, evaluatorID, subject, []Entry{{CriterionID: criterionID, Value: value, Note: note}})
}

// Submit validates every entry and then writes the batch atomically. A
// criterion repeated in the batch keeps its last entry.
func (s *Service) Submit(ctx context.Context, evaluatorID int64, ref model.SubjectRef, entries []Entry) (Result, error) {
	subject, err := model.LoadSubject(ctx, s.store, ref)
	if err != nil {
		return Result{}, err
	}
	entries = lastPerCriterion(entries)
	if err := s.validate(ctx, evaluatorID, subject, entries); err != nil {
		s.rejected(ctx, evaluatorID, ref, err)
		return Result{}, err
	}

	ratings := make([]model.Rating, len(entries))
	for i, e := range entries {
		ratings[i] = model.Rating{
			EvaluatorID: evaluatorID,
			CriterionID: e.CriterionID,
			Subject:     ref,
			Value:       e.Value,
			Note:        e.Note,
		}
	}
	written, err := s.store.UpsertRatings(ctx, ratings)
	if err != nil {
		return Result{}, err
	}
	metrics.RecordRatingsSubmitted(string(ref.Kind), written)
	s.log.Debug(ctx, "ratings stored",
		logger.Int64("evaluator_id", evaluatorID),
		logger.String("subject", string(ref.Kind)),
		logger.Int64("subject_id", ref.ID),
		logger.Int("count", written))
	return Result{Subject: subject, Written: written}, nil
}

func (s *Service) validate(ctx context.Context, evaluatorID int64, subject model.Subject, entries []Entry) error {
	if len(entries) == 0 {
		return ErrEmptyBatch
	}
	enrollment, err := s.store.GetEnrollment(ctx, subject.EventID, evaluatorID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	if err != nil || !enrollment.Approved() {
		return fmt.Errorf("evaluator %d, event %d: %w", evaluatorID, subject.EventID, ErrEvaluatorNotApproved)
	}
	if subject.Status != model.StatusApproved {
		return fmt.Errorf("%s %d is %s: %w", subject.Ref.Kind, subject.Ref.ID, subject.Status, ErrSubjectNotApproved)
	}
	if subject.Grouped {
		return fmt.Errorf("participation %d: %w", subject.Ref.ID, ErrGroupedParticipation)
	}
	if enrollment.CategoryID != nil {
		event, err := s.store.GetEvent(ctx, subject.EventID)
		if err != nil {
			return err
		}
		if event.Multidisciplinary && !subject.HasCategory(*enrollment.CategoryID) {
			return fmt.Errorf("category %d: %w", *enrollment.CategoryID, ErrCategoryMismatch)
		}
	}

	eventCriteria, err := s.store.ListCriteria(ctx, subject.EventID)
	if err != nil {
		return err
	}
	inEvent := make(map[int64]struct{}, len(eventCriteria))
	for _, c := range eventCriteria {
		inEvent[c.ID] = struct{}{}
	}
	for _, e := range entries {
		if _, ok := inEvent[e.CriterionID]; !ok {
			if _, err := s.store.GetCriterion(ctx, e.CriterionID); err != nil {
				return err
			}
			return fmt.Errorf("criterion %d, event %d: %w", e.CriterionID, subject.EventID, ErrEventMismatch)
		}
		if err := ValidateValue(e.Value); err != nil {
			return fmt.Errorf("criterion %d: %w", e.CriterionID, err)
		}
	}
	return nil
}

func (s *Service) rejected(ctx context.Context, evaluatorID int64, ref model.SubjectRef, err error) {
	reason := rejectionReason(err)
	metrics.RecordRatingRejection(reason)
	s.log.Warn(ctx, "rating batch rejected",
		logger.Int64("evaluator_id", evaluatorID),
		logger.String("subject", string(ref.Kind)),
		logger.Int64("subject_id", ref.ID),
		logger.String("reason", reason),
		logger.Error(err))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRatingValue):
		return "invalid_value"
	case errors.Is(err, ErrEventMismatch):
		return "event_mismatch"
	case errors.Is(err, ErrEvaluatorNotApproved):
		return "evaluator_not_approved"
	case errors.Is(err, ErrSubjectNotApproved):
		return "subject_not_approved"
	case errors.Is(err, ErrCategoryMismatch):
		return "category_mismatch"
	case errors.Is(err, ErrEmptyBatch):
		return "empty"
	case errors.Is(err, ErrGroupedParticipation):
		return "grouped"
	default:
		return "other"
	}
}

func lastPerCriterion(entries []Entry) []Entry {
	index := make(map[int64]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := index[e.CriterionID]; ok {
			out[i] = e
			continue
		}
		index[e.CriterionID] = len(out)
		out = append(out, e)
	}
	return out
}
