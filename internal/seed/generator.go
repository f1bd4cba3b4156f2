package seed

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

const (
	maxCriteria       = 10
	allocatableWeight = 90 // leaves room so the weight cap is never hit
	skipSubjectChance = 0.2
	rateCriterion     = 0.85
)

// plan is everything a run creates, keyed by the IDs the service assigned.
type plan struct {
	eventID     int64
	criteria    []criterion
	evaluators  []int64
	individuals []int64
	rejected    int64
	projects    []project
	batches     []batch
}

func (p *plan) subjects() []subject {
	out := make([]subject, 0, len(p.individuals)+len(p.projects))
	for _, id := range p.individuals {
		out = append(out, subject{Kind: kindParticipant, ID: id})
	}
	for _, pr := range p.projects {
		out = append(out, subject{Kind: kindProject, ID: pr.ID})
	}
	return out
}

// splitWeights draws n integer weights of at least 1 whose sum stays at or
// below 100.
func splitWeights(rng *rand.Rand, n int) []float64 {
	raw := make([]int, n)
	total := 0
	for i := range raw {
		raw[i] = 1 + rng.IntN(10)
		total += raw[i]
	}
	out := make([]float64, n)
	for i, r := range raw {
		w := r * allocatableWeight / total
		if w < 1 {
			w = 1
		}
		out[i] = float64(w)
	}
	return out
}

// planBatches lets every evaluator rate most subjects on most criteria.
// Partial batches exercise the per-evaluator normalization.
func planBatches(rng *rand.Rand, evaluators []int64, subjects []subject, cs []criterion) []batch {
	var out []batch
	for _, ev := range evaluators {
		for _, s := range subjects {
			if rng.Float64() < skipSubjectChance {
				continue
			}
			var ratings []entry
			for _, c := range cs {
				if rng.Float64() < rateCriterion {
					ratings = append(ratings, entry{CriterionID: c.ID, Value: 1 + rng.IntN(5)})
				}
			}
			if len(ratings) == 0 {
				ratings = append(ratings, entry{CriterionID: cs[0].ID, Value: 1 + rng.IntN(5)})
			}
			ratings[0].Note = fmt.Sprintf("seeded by evaluator %d", ev)
			out = append(out, batch{
				Evaluator: ev,
				Subject:   s,
				Key:       uuid.NewString(),
				Ratings:   ratings,
			})
		}
	}
	return out
}

// expectedScores recomputes every subject's aggregate from the planned
// batches: sum(value*weight) / (totalWeight * distinct evaluators), rounded
// to two decimals. Subjects nobody rated are absent.
func expectedScores(batches []batch, cs []criterion) map[subject]float64 {
	weights := make(map[int64]float64, len(cs))
	total := 0.0
	for _, c := range cs {
		weights[c.ID] = c.Weight
		total += c.Weight
	}
	if total < 1 {
		total = 1
	}

	sums := make(map[subject]float64)
	raters := make(map[subject]map[int64]struct{})
	for _, b := range batches {
		if raters[b.Subject] == nil {
			raters[b.Subject] = make(map[int64]struct{})
		}
		raters[b.Subject][b.Evaluator] = struct{}{}
		for _, r := range b.Ratings {
			sums[b.Subject] += float64(r.Value) * weights[r.CriterionID]
		}
	}

	out := make(map[subject]float64, len(sums))
	for s, sum := range sums {
		out[s] = round2(sum / (total * float64(len(raters[s]))))
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
