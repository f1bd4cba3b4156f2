// Package criteria manages the weighted rating dimensions of an event and
// enforces that their weights never sum past 100 when one is added or edited.
package criteria

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/pkg/logger"
	"github.com/okian/eventsoft/pkg/metrics"
)

const (
	// MaxTotalWeight is the ceiling for the sum of an event's criterion weights.
	MaxTotalWeight = 100.0
	// MaxDescriptionLength is counted in runes.
	MaxDescriptionLength = 100

	// weightTolerance absorbs float error in sums such as 33.3+33.3+33.4.
	weightTolerance = 1e-9
)

// Store persists criteria. Checks run while the event is locked.
type Store interface {
	CreateCriterion(ctx context.Context, c *model.Criterion, check func(existing []model.Criterion) error) error
	UpdateCriterion(ctx context.Context, c model.Criterion, check func(existing []model.Criterion) error) error
	DeleteCriterion(ctx context.Context, id int64) error
	GetCriterion(ctx context.Context, id int64) (model.Criterion, error)
	ListCriteria(ctx context.Context, eventID int64) ([]model.Criterion, error)
}

// Enrollments resolves evaluator enrollments.
type Enrollments interface {
	GetEnrollment(ctx context.Context, eventID, evaluatorID int64) (model.EvaluatorEnrollment, error)
}

// Summary is an event's criteria with the weight already allocated.
type Summary struct {
	Criteria  []model.Criterion
	Total     float64
	Remaining float64
}

// Registry adds, edits, removes and lists criteria.
type Registry struct {
	store       Store
	enrollments Enrollments
	log         logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates a Registry.
func NewRegistry(store Store, enrollments Enrollments, opts ...Option) *Registry {
	r := &Registry{store: store, enrollments: enrollments, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TotalWeight sums the weights of cs. A zero total reports 1 so it can
// always divide.
func TotalWeight(cs []model.Criterion) float64 {
	total := sumWeights(cs, 0)
	if total == 0 {
		return 1
	}
	return total
}

// sumWeights is the true total, skipping the criterion with id exclude.
func sumWeights(cs []model.Criterion, exclude int64) float64 {
	var total float64
	for _, c := range cs {
		if exclude != 0 && c.ID == exclude {
			continue
		}
		total += c.Weight
	}
	return total
}

// Validate checks a description and weight pair.
func Validate(description string, weight float64) error {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 || weight > MaxTotalWeight {
		return fmt.Errorf("%w: weight %v must be within [0, 100]", ErrInvalidCriterion, weight)
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidCriterion)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description longer than %d characters", ErrInvalidCriterion, MaxDescriptionLength)
	}
	return nil
}

// weightCheck rejects weight when the other criteria already use too much.
func weightCheck(weight float64, exclude int64) func([]model.Criterion) error {
	return func(existing []model.Criterion) error {
		current := sumWeights(existing, exclude)
		if current+weight > MaxTotalWeight+weightTolerance {
			return fmt.Errorf("%w: %.2f allocated, %.2f requested", ErrWeightExceeded, current, weight)
		}
		return nil
	}
}

func (r *Registry) authorize(ctx context.Context, op string, evaluatorID, eventID int64) error {
	e, err := r.enrollments.GetEnrollment(ctx, eventID, evaluatorID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	if err != nil || !e.Approved() {
		return r.reject(ctx, op, fmt.Errorf("evaluator %d, event %d: %w", evaluatorID, eventID, ErrEvaluatorNotApproved))
	}
	return nil
}

func (r *Registry) reject(ctx context.Context, op string, err error) error {
	reason := "invalid"
	switch {
	case isWeight(err):
		reason = "weight_exceeded"
	case isAuth(err):
		reason = "not_approved"
	}
	metrics.RecordCriterionRejection(reason)
	r.log.Warn(ctx, "criterion rejected", logger.String("op", op), logger.String("reason", reason), logger.Error(err))
	return err
}

// Add creates a criterion for eventID on behalf of an approved evaluator.
func (r *Registry) Add(ctx context.Context, evaluatorID, eventID int64, description string, weight float64) (model.Criterion, error) {
	if err := Validate(description, weight); err != nil {
		return model.Criterion{}, r.reject(ctx, "add", err)
	}
	if err := r.authorize(ctx, "add", evaluatorID, eventID); err != nil {
		return model.Criterion{}, err
	}
	c := model.Criterion{EventID: eventID, Description: description, Weight: weight}
	if err := r.store.CreateCriterion(ctx, &c, weightCheck(weight, 0)); err != nil {
		if isWeight(err) {
			return model.Criterion{}, r.reject(ctx, "add", err)
		}
		return model.Criterion{}, err
	}
	r.log.Info(ctx, "criterion added",
		logger.Int64("event_id", eventID), logger.Int64("criterion_id", c.ID), logger.Float64("weight", weight))
	return c, nil
}

// Edit replaces a criterion's description and weight. The criterion's own
// old weight does not count against the new one.
func (r *Registry) Edit(ctx context.Context, evaluatorID, criterionID int64, description string, weight float64) (model.Criterion, error) {
	if err := Validate(description, weight); err != nil {
		return model.Criterion{}, r.reject(ctx, "edit", err)
	}
	current, err := r.store.GetCriterion(ctx, criterionID)
	if err != nil {
		return model.Criterion{}, err
	}
	if err := r.authorize(ctx, "edit", evaluatorID, current.EventID); err != nil {
		return model.Criterion{}, err
	}
	current.Description = description
	current.Weight = weight
	if err := r.store.UpdateCriterion(ctx, current, weightCheck(weight, criterionID)); err != nil {
		if isWeight(err) {
			return model.Criterion{}, r.reject(ctx, "edit", err)
		}
		return model.Criterion{}, err
	}
	r.log.Info(ctx, "criterion edited",
		logger.Int64("criterion_id", criterionID), logger.Float64("weight", weight))
	return current, nil
}

// Remove deletes a criterion together with every rating that references it.
func (r *Registry) Remove(ctx context.Context, evaluatorID, criterionID int64) error {
	current, err := r.store.GetCriterion(ctx, criterionID)
	if err != nil {
		return err
	}
	if err := r.authorize(ctx, "remove", evaluatorID, current.EventID); err != nil {
		return err
	}
	if err := r.store.DeleteCriterion(ctx, criterionID); err != nil {
		return err
	}
	r.log.Info(ctx, "criterion removed", logger.Int64("criterion_id", criterionID))
	return nil
}

// List returns eventID's criteria with the allocated and remaining weight.
func (r *Registry) List(ctx context.Context, eventID int64) (Summary, error) {
	cs, err := r.store.ListCriteria(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}
	total := sumWeights(cs, 0)
	return Summary{Criteria: cs, Total: total, Remaining: MaxTotalWeight - total}, nil
}
