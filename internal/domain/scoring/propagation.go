package scoring

import (
	"context"
	"time"

	"github.com/okian/eventsoft/pkg/metrics"
)

// ScoreProject aggregates a project's ratings. When scored, the project score
// and every member participation's score are written in one transaction, so
// members always carry their project's score.
func (a *Aggregator) ScoreProject(ctx context.Context, id int64) (Result, error) {
	start := time.Now()
	p, err := a.reader.GetProject(ctx, id)
	if err != nil {
		return Result{}, err
	}
	res, err := a.compute(ctx, p.Subject())
	if err != nil {
		return Result{}, err
	}
	if res.Scored {
		members, err := a.writer.SaveProjectScore(ctx, id, res.Score)
		if err != nil {
			return Result{}, err
		}
		res.MembersUpdated = members
		metrics.RecordMembersPropagated(members)
	}
	a.observe(ctx, res, start)
	return res, nil
}
