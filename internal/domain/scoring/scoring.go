// Package scoring aggregates per-criterion ratings into a subject's cached
// score. It is the only writer of cached scores.
package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/eventsoft/internal/domain/criteria"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/pkg/logger"
	"github.com/okian/eventsoft/pkg/metrics"
)

// Reader supplies the inputs of an aggregation.
type Reader interface {
	model.SubjectReader
	ListCriteria(ctx context.Context, eventID int64) ([]model.Criterion, error)
	ListRatings(ctx context.Context, subject model.SubjectRef, eventID int64) ([]model.Rating, error)
}

// ScoreWriter persists cached scores.
type ScoreWriter interface {
	SaveParticipationScore(ctx context.Context, id int64, score float64) error
	SaveProjectScore(ctx context.Context, projectID int64, score float64) (int, error)
}

// Result is the outcome of an aggregation. Scored is false when nobody has
// rated the subject; Score is then 0 and nothing was written.
type Result struct {
	Subject        model.SubjectRef
	Score          float64
	Scored         bool
	Evaluators     int
	MembersUpdated int
}

// Aggregator computes and persists aggregate scores.
type Aggregator struct {
	reader Reader
	writer ScoreWriter
	log    logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the aggregator logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAggregator creates an Aggregator.
func NewAggregator(reader Reader, writer ScoreWriter, opts ...Option) *Aggregator {
	a := &Aggregator{reader: reader, writer: writer, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Round2 rounds to two decimals, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Compute returns round(sum(value*weight) / (W*n), 2) where W is the
// total weight of cs and n the number of distinct evaluators in rs. Ratings
// on criteria outside cs are ignored. An evaluator who rated only some
// criteria is still divided by the full W.
func Compute(cs []model.Criterion, rs []model.Rating) (score float64, evaluators int) {
	weights := make(map[int64]float64, len(cs))
	for _, c := range cs {
		weights[c.ID] = c.Weight
	}
	seen := make(map[int64]struct{})
	var sum float64
	for _, r := range rs {
		w, ok := weights[r.CriterionID]
		if !ok {
			continue
		}
		seen[r.EvaluatorID] = struct{}{}
		sum += float64(r.Value) * w
	}
	n := len(seen)
	if n == 0 {
		return 0, 0
	}
	return Round2(sum / (criteria.TotalWeight(cs) * float64(n))), n
}

// Score aggregates any subject.
func (a *Aggregator) Score(ctx context.Context, ref model.SubjectRef) (Result, error) {
	switch ref.Kind {
	case model.SubjectParticipant:
		return a.ScoreParticipation(ctx, ref.ID)
	case model.SubjectProject:
		return a.ScoreProject(ctx, ref.ID)
	default:
		return Result{}, fmt.Errorf("%q: %w", ref.Kind, model.ErrUnknownSubjectKind)
	}
}

// ScoreParticipation aggregates an individual participation and caches the
// score when at least one evaluator rated it. A grouped participation is
// scored through its project, so it keeps carrying the project score.
func (a *Aggregator) ScoreParticipation(ctx context.Context, id int64) (Result, error) {
	start := time.Now()
	p, err := a.reader.GetParticipation(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if p.Grouped() {
		return a.ScoreProject(ctx, *p.ProjectID)
	}
	res, err := a.compute(ctx, p.Subject())
	if err != nil {
		return Result{}, err
	}
	if res.Scored {
		if err := a.writer.SaveParticipationScore(ctx, id, res.Score); err != nil {
			return Result{}, err
		}
	}
	a.observe(ctx, res, start)
	return res, nil
}

func (a *Aggregator) compute(ctx context.Context, subject model.Subject) (Result, error) {
	cs, err := a.reader.ListCriteria(ctx, subject.EventID)
	if err != nil {
		return Result{}, err
	}
	rs, err := a.reader.ListRatings(ctx, subject.Ref, subject.EventID)
	if err != nil {
		return Result{}, err
	}
	score, n := Compute(cs, rs)
	return Result{Subject: subject.Ref, Score: score, Scored: n > 0, Evaluators: n}, nil
}

func (a *Aggregator) observe(ctx context.Context, res Result, start time.Time) {
	metrics.RecordAggregation(string(res.Subject.Kind), res.Scored, float64(time.Since(start).Microseconds())/1000)
	a.log.Debug(ctx, "subject aggregated",
		logger.String("subject", string(res.Subject.Kind)),
		logger.Int64("subject_id", res.Subject.ID),
		logger.Bool("scored", res.Scored),
		logger.Float64("score", res.Score),
		logger.Int("evaluators", res.Evaluators))
}
