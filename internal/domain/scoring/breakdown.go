package scoring

import (
	"context"
	"sort"

	"github.com/okian/eventsoft/internal/domain/model"
)

// Line is one rated criterion in a breakdown.
type Line struct {
	CriterionID  int64
	Description  string
	Weight       float64
	Value        int
	Note         string
	Contribution float64 // round(value*weight/100, 2)
}

// Breakdown is one evaluator's view of a subject.
type Breakdown struct {
	EvaluatorID int64
	Lines       []Line
	// Total is nil when the evaluator has not rated the subject.
	Total         *float64
	Rated         int
	CriteriaCount int
	Evaluated     bool // every criterion rated
}

// EvaluatorBreakdown is a read-only per-criterion view of one evaluator's
// ratings of a subject. It never writes.
func (a *Aggregator) EvaluatorBreakdown(ctx context.Context, ref model.SubjectRef, evaluatorID int64) (Breakdown, error) {
	all, cs, err := a.breakdowns(ctx, ref)
	if err != nil {
		return Breakdown{}, err
	}
	if b, ok := all[evaluatorID]; ok {
		return b, nil
	}
	return Breakdown{EvaluatorID: evaluatorID, Lines: []Line{}, CriteriaCount: len(cs), Evaluated: len(cs) == 0}, nil
}

// Breakdowns returns every evaluator's breakdown of a subject ordered by
// evaluator ID.
func (a *Aggregator) Breakdowns(ctx context.Context, ref model.SubjectRef) ([]Breakdown, error) {
	all, _, err := a.breakdowns(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := make([]Breakdown, 0, len(all))
	for _, b := range all {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EvaluatorID < out[j].EvaluatorID })
	return out, nil
}

func (a *Aggregator) breakdowns(ctx context.Context, ref model.SubjectRef) (map[int64]Breakdown, []model.Criterion, error) {
	subject, err := model.LoadSubject(ctx, a.reader, ref)
	if err != nil {
		return nil, nil, err
	}
	cs, err := a.reader.ListCriteria(ctx, subject.EventID)
	if err != nil {
		return nil, nil, err
	}
	rs, err := a.reader.ListRatings(ctx, ref, subject.EventID)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]model.Criterion, len(cs))
	for _, c := range cs {
		byID[c.ID] = c
	}

	sums := make(map[int64]float64)
	out := make(map[int64]Breakdown)
	for _, r := range rs {
		c, ok := byID[r.CriterionID]
		if !ok {
			continue
		}
		b := out[r.EvaluatorID]
		b.EvaluatorID = r.EvaluatorID
		b.CriteriaCount = len(cs)
		contribution := float64(r.Value) * c.Weight / 100
		sums[r.EvaluatorID] += contribution
		b.Lines = append(b.Lines, Line{
			CriterionID:  c.ID,
			Description:  c.Description,
			Weight:       c.Weight,
			Value:        r.Value,
			Note:         r.Note,
			Contribution: Round2(contribution),
		})
		b.Rated = len(b.Lines)
		out[r.EvaluatorID] = b
	}
	for id, b := range out {
		total := Round2(sums[id])
		b.Total = &total
		b.Evaluated = b.Rated == b.CriteriaCount
		out[id] = b
	}
	return out, cs, nil
}
