package service

import (
	"context"
	"fmt"

	"github.com/okian/eventsoft/internal/domain/criteria"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/internal/domain/ranking"
	"github.com/okian/eventsoft/internal/domain/rating"
	"github.com/okian/eventsoft/internal/domain/scoring"
	"github.com/okian/eventsoft/pkg/logger"
	"github.com/okian/eventsoft/pkg/metrics"
)

// RateOutcome is the result of a rating batch.
type RateOutcome struct {
	// Duplicate is set when the idempotency key was already seen; nothing
	// was written.
	Duplicate bool
	Written   int
	Score     scoring.Result
}

// ListCriteria returns an event's criteria and weight allocation.
func (s *Service) ListCriteria(ctx context.Context, eventID int64) (criteria.Summary, error) {
	if err := s.ready(); err != nil {
		return criteria.Summary{}, err
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return criteria.Summary{}, err
	}
	return s.registry.List(ctx, eventID)
}

// AddCriterion adds a criterion to an event.
func (s *Service) AddCriterion(ctx context.Context, evaluatorID, eventID int64, description string, weight float64) (model.Criterion, error) {
	if err := s.ready(); err != nil {
		return model.Criterion{}, err
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return model.Criterion{}, err
	}
	return s.registry.Add(ctx, evaluatorID, eventID, description, weight)
}

// EditCriterion changes a criterion's description and weight.
func (s *Service) EditCriterion(ctx context.Context, evaluatorID, criterionID int64, description string, weight float64) (model.Criterion, error) {
	if err := s.ready(); err != nil {
		return model.Criterion{}, err
	}
	return s.registry.Edit(ctx, evaluatorID, criterionID, description, weight)
}

// RemoveCriterion deletes a criterion and its ratings.
func (s *Service) RemoveCriterion(ctx context.Context, evaluatorID, criterionID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.registry.Remove(ctx, evaluatorID, criterionID)
}

// RateSubject stores a rating batch and re-aggregates the subject. A project
// score is propagated to its members in the same step. A non-empty
// idempotencyKey already seen for this evaluator and subject makes the call a
// no-op reported as Duplicate.
func (s *Service) RateSubject(ctx context.Context, evaluatorID int64, ref model.SubjectRef, entries []rating.Entry, idempotencyKey string) (RateOutcome, error) {
	if err := s.ready(); err != nil {
		return RateOutcome{}, err
	}

	var key string
	if idempotencyKey != "" {
		key = fmt.Sprintf("%d/%s/%d/%s", evaluatorID, ref.Kind, ref.ID, idempotencyKey)
		if s.deduper.SeenAndRecord(ctx, key) {
			s.replays.Add(1)
			metrics.RecordIdempotentReplay()
			s.logger.Debug(ctx, "duplicate rating batch skipped", logger.String("key", key))
			return RateOutcome{Duplicate: true}, nil
		}
	}

	res, err := s.ratings.Submit(ctx, evaluatorID, ref, entries)
	if err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		return RateOutcome{}, err
	}
	s.batches.Add(1)

	score, err := s.aggregator.Score(ctx, ref)
	if err != nil {
		// The ratings are stored; the next aggregation or ranking backfill
		// recomputes the cache, so the key stays recorded.
		s.logger.Error(ctx, "aggregation after rating failed",
			logger.String("subject", string(ref.Kind)), logger.Int64("subject_id", ref.ID), logger.Error(err))
		return RateOutcome{Written: res.Written}, err
	}
	return RateOutcome{Written: res.Written, Score: score}, nil
}

// Rescore recomputes a subject's cached score.
func (s *Service) Rescore(ctx context.Context, ref model.SubjectRef) (scoring.Result, error) {
	if err := s.ready(); err != nil {
		return scoring.Result{}, err
	}
	return s.aggregator.Score(ctx, ref)
}

// Breakdown returns per-evaluator breakdowns of a subject. With evaluatorID
// set only that evaluator's breakdown is returned, even when empty.
func (s *Service) Breakdown(ctx context.Context, ref model.SubjectRef, evaluatorID *int64) ([]scoring.Breakdown, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if evaluatorID != nil {
		b, err := s.aggregator.EvaluatorBreakdown(ctx, ref, *evaluatorID)
		if err != nil {
			return nil, err
		}
		return []scoring.Breakdown{b}, nil
	}
	return s.aggregator.Breakdowns(ctx, ref)
}

// Ranking builds an event's ranking, optionally restricted to one category.
func (s *Service) Ranking(ctx context.Context, eventID int64, category *int64) (ranking.Table, error) {
	if err := s.ready(); err != nil {
		return ranking.Table{}, err
	}
	table, err := s.ranker.Build(ctx, eventID, ranking.Filter{Category: category, Limit: s.maxRankingSize})
	if err != nil {
		return ranking.Table{}, err
	}
	s.rankingsServed.Add(1)
	return table, nil
}

// Position returns a participation's placement in its event.
func (s *Service) Position(ctx context.Context, eventID, participationID int64) (ranking.Placement, error) {
	if err := s.ready(); err != nil {
		return ranking.Placement{}, err
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return ranking.Placement{}, err
	}
	return s.ranker.Position(ctx, eventID, participationID)
}
