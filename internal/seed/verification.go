package seed

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/eventsoft/pkg/logger"
)

const scoreTolerance = 0.001

// verifyRanking checks ordering, membership and scores of a ranking against
// the plan. Every violation is reported.
func verifyRanking(r rankingResponse, p *plan, expected map[subject]float64) error {
	var errs []error

	errs = append(errs, verifyOrder("individuals", r.Individuals)...)
	errs = append(errs, verifyOrder("projects", r.Projects)...)

	wantIndividuals := make(map[int64]bool, len(p.individuals))
	for _, id := range p.individuals {
		wantIndividuals[id] = true
	}
	for _, e := range r.Individuals {
		if e.SubjectID == p.rejected {
			errs = append(errs, fmt.Errorf("rejected participation %d is ranked", e.SubjectID))
			continue
		}
		if !wantIndividuals[e.SubjectID] {
			errs = append(errs, fmt.Errorf("unexpected individual %d in ranking", e.SubjectID))
			continue
		}
		delete(wantIndividuals, e.SubjectID)
		errs = append(errs, verifyScore(subject{Kind: kindParticipant, ID: e.SubjectID}, e, expected)...)
	}
	for id := range wantIndividuals {
		errs = append(errs, fmt.Errorf("approved participation %d missing from ranking", id))
	}

	wantProjects := make(map[int64]project, len(p.projects))
	for _, pr := range p.projects {
		wantProjects[pr.ID] = pr
	}
	for _, e := range r.Projects {
		pr, ok := wantProjects[e.SubjectID]
		if !ok {
			errs = append(errs, fmt.Errorf("unexpected project %d in ranking", e.SubjectID))
			continue
		}
		delete(wantProjects, e.SubjectID)
		errs = append(errs, verifyScore(subject{Kind: kindProject, ID: e.SubjectID}, e, expected)...)
		if len(e.Members) != len(pr.Members) {
			errs = append(errs, fmt.Errorf("project %d lists %d members, want %d", e.SubjectID, len(e.Members), len(pr.Members)))
		}
		leaders := 0
		for _, m := range e.Members {
			if m.Leader {
				leaders++
			}
		}
		if leaders > 1 {
			errs = append(errs, fmt.Errorf("project %d has %d leaders", e.SubjectID, leaders))
		}
	}
	for id := range wantProjects {
		errs = append(errs, fmt.Errorf("approved project %d missing from ranking", id))
	}

	return errors.Join(errs...)
}

func verifyOrder(list string, entries []rankEntry) []error {
	var errs []error
	for i, e := range entries {
		if e.Position != i+1 {
			errs = append(errs, fmt.Errorf("%s[%d] has position %d", list, i, e.Position))
		}
		if i > 0 && e.Score > entries[i-1].Score {
			errs = append(errs, fmt.Errorf("%s not sorted: position %d (%.2f) above position %d (%.2f)",
				list, e.Position, e.Score, entries[i-1].Position, entries[i-1].Score))
		}
	}
	return errs
}

func verifyScore(s subject, e rankEntry, expected map[subject]float64) []error {
	want, rated := expected[s]
	if e.Scored != rated {
		return []error{fmt.Errorf("%s %d scored=%t, want %t", s.Kind, s.ID, e.Scored, rated)}
	}
	if math.Abs(e.Score-want) > scoreTolerance {
		return []error{fmt.Errorf("%s %d score %.2f, recomputed %.2f", s.Kind, s.ID, e.Score, want)}
	}
	return nil
}

// verifyMembers checks that every member of a rated project carries the
// project score.
func verifyMembers(ctx context.Context, client *Client, p *plan, expected map[subject]float64) error {
	var errs []error
	for _, pr := range p.projects {
		want, rated := expected[subject{Kind: kindProject, ID: pr.ID}]
		if !rated {
			continue
		}
		for _, member := range pr.Members {
			pos, err := client.position(ctx, p.eventID, member)
			if err != nil {
				errs = append(errs, fmt.Errorf("member %d of project %d: %w", member, pr.ID, err))
				continue
			}
			if math.Abs(pos.Score-want) > scoreTolerance {
				errs = append(errs, fmt.Errorf("member %d of project %d has %.2f, project has %.2f", member, pr.ID, pos.Score, want))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Get().Info(ctx, "project scores propagated to members", logger.Int("projects", len(p.projects)))
	return nil
}
