package scoring_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/eventsoft/internal/adapters/repository"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/internal/domain/scoring"
)

type fixture struct {
	store    *repository.MemoryStore
	agg      *scoring.Aggregator
	event    model.Event
	c60, c40 model.Criterion
	solo     model.Participation
	project  model.Project
	members  []model.Participation
	soloRef  model.SubjectRef
	projRef  model.SubjectRef
}

func newFixture(ctx context.Context) *fixture {
	f := &fixture{store: repository.NewMemoryStore()}
	f.agg = scoring.NewAggregator(f.store, f.store)
	f.event = model.Event{Name: "Hack"}
	So(f.store.CreateEvent(ctx, &f.event), ShouldBeNil)
	f.c60 = model.Criterion{EventID: f.event.ID, Description: "quality", Weight: 60}
	So(f.store.CreateCriterion(ctx, &f.c60, nil), ShouldBeNil)
	f.c40 = model.Criterion{EventID: f.event.ID, Description: "pitch", Weight: 40}
	So(f.store.CreateCriterion(ctx, &f.c40, nil), ShouldBeNil)

	f.solo = model.Participation{ParticipantID: 1, EventID: f.event.ID, Status: model.StatusApproved}
	So(f.store.RegisterParticipation(ctx, &f.solo), ShouldBeNil)
	f.soloRef = model.SubjectRef{Kind: model.SubjectParticipant, ID: f.solo.ID}

	f.project = model.Project{EventID: f.event.ID, Name: "Team", Status: model.StatusApproved}
	So(f.store.CreateProject(ctx, &f.project), ShouldBeNil)
	f.projRef = model.SubjectRef{Kind: model.SubjectProject, ID: f.project.ID}
	for i, leader := range []bool{true, false, false} {
		m := model.Participation{ParticipantID: int64(10 + i), EventID: f.event.ID, Status: model.StatusApproved}
		So(f.store.RegisterParticipation(ctx, &m), ShouldBeNil)
		So(f.store.AssignMember(ctx, f.project.ID, m.ID, leader), ShouldBeNil)
		f.members = append(f.members, m)
	}
	return f
}

func (f *fixture) rate(ctx context.Context, ref model.SubjectRef, evaluator int64, c model.Criterion, v int) {
	_, err := f.store.UpsertRatings(ctx, []model.Rating{{EvaluatorID: evaluator, CriterionID: c.ID, Subject: ref, Value: v}})
	So(err, ShouldBeNil)
}

func TestRound2(t *testing.T) {
	Convey("Given values to round", t, func() {
		So(scoring.Round2(4.2), ShouldEqual, 4.2)
		So(scoring.Round2(0.125), ShouldEqual, 0.13)
		So(scoring.Round2(-0.125), ShouldEqual, -0.13)
		So(scoring.Round2(3.14159), ShouldEqual, 3.14)
	})
}

func TestCompute(t *testing.T) {
	Convey("Given criteria weighted 60 and 40", t, func() {
		cs := []model.Criterion{{ID: 1, Weight: 60}, {ID: 2, Weight: 40}}

		Convey("One evaluator rating 5 and 3 scores 4.2", func() {
			score, n := scoring.Compute(cs, []model.Rating{
				{EvaluatorID: 1, CriterionID: 1, Value: 5},
				{EvaluatorID: 1, CriterionID: 2, Value: 3},
			})
			So(n, ShouldEqual, 1)
			So(score, ShouldEqual, 4.2)
		})

		Convey("A partial second evaluator is divided by the full weight", func() {
			score, n := scoring.Compute(cs, []model.Rating{
				{EvaluatorID: 1, CriterionID: 1, Value: 5},
				{EvaluatorID: 1, CriterionID: 2, Value: 3},
				{EvaluatorID: 2, CriterionID: 1, Value: 5},
			})
			So(n, ShouldEqual, 2)
			So(score, ShouldEqual, 3.6)
		})

		Convey("Ratings on unknown criteria do not count", func() {
			score, n := scoring.Compute(cs, []model.Rating{{EvaluatorID: 3, CriterionID: 99, Value: 5}})
			So(n, ShouldEqual, 0)
			So(score, ShouldEqual, 0)
		})

		Convey("A total weight below 1 is used as is", func() {
			score, n := scoring.Compute([]model.Criterion{{ID: 1, Weight: 0.5}}, []model.Rating{{EvaluatorID: 1, CriterionID: 1, Value: 5}})
			So(n, ShouldEqual, 1)
			So(score, ShouldEqual, 5)
		})

		Convey("Zero total weight does not divide by zero", func() {
			score, n := scoring.Compute([]model.Criterion{{ID: 1, Weight: 0}}, []model.Rating{{EvaluatorID: 1, CriterionID: 1, Value: 5}})
			So(n, ShouldEqual, 1)
			So(score, ShouldEqual, 0)
		})
	})
}

func TestAggregator(t *testing.T) {
	Convey("Given an event with participants and a project", t, func() {
		ctx := context.Background()
		f := newFixture(ctx)

		Convey("An unrated participation stays unscored and uncached", func() {
			res, err := f.agg.ScoreParticipation(ctx, f.solo.ID)
			So(err, ShouldBeNil)
			So(res.Scored, ShouldBeFalse)
			So(res.Score, ShouldEqual, 0)
			p, _ := f.store.GetParticipation(ctx, f.solo.ID)
			So(p.Score, ShouldBeNil)

			Convey("And the first rating sets the cache", func() {
				f.rate(ctx, f.soloRef, 1, f.c60, 5)
				res, err := f.agg.Score(ctx, f.soloRef)
				So(err, ShouldBeNil)
				So(res.Scored, ShouldBeTrue)
				So(res.Score, ShouldEqual, 3)
				p, _ := f.store.GetParticipation(ctx, f.solo.ID)
				So(*p.Score, ShouldEqual, 3)
			})
		})

		Convey("Aggregation is deterministic", func() {
			f.rate(ctx, f.soloRef, 1, f.c60, 5)
			f.rate(ctx, f.soloRef, 1, f.c40, 3)
			first, _ := f.agg.ScoreParticipation(ctx, f.solo.ID)
			second, _ := f.agg.ScoreParticipation(ctx, f.solo.ID)
			So(first.Score, ShouldEqual, 4.2)
			So(second, ShouldResemble, first)
		})

		Convey("Project scores propagate to all members", func() {
			f.rate(ctx, f.projRef, 1, f.c60, 5)
			f.rate(ctx, f.projRef, 1, f.c40, 3)
			f.rate(ctx, f.projRef, 2, f.c60, 5)

			res, err := f.agg.ScoreProject(ctx, f.project.ID)
			So(err, ShouldBeNil)
			So(res.Score, ShouldEqual, 3.6)
			So(res.MembersUpdated, ShouldEqual, 3)

			proj, _ := f.store.GetProject(ctx, f.project.ID)
			So(*proj.Score, ShouldEqual, 3.6)
			for _, m := range f.members {
				p, _ := f.store.GetParticipation(ctx, m.ID)
				So(*p.Score, ShouldEqual, *proj.Score)
			}
		})

		Convey("Scoring a member goes through its project", func() {
			f.rate(ctx, f.projRef, 1, f.c60, 5)
			f.rate(ctx, f.projRef, 1, f.c40, 5)
			memberRef := model.SubjectRef{Kind: model.SubjectParticipant, ID: f.members[1].ID}
			f.rate(ctx, memberRef, 1, f.c60, 1)

			res, err := f.agg.Score(ctx, memberRef)
			So(err, ShouldBeNil)
			So(res.Subject, ShouldResemble, f.projRef)
			So(res.Score, ShouldEqual, 5)

			proj, _ := f.store.GetProject(ctx, f.project.ID)
			for _, m := range f.members {
				p, _ := f.store.GetParticipation(ctx, m.ID)
				So(*p.Score, ShouldEqual, *proj.Score)
			}
		})

		Convey("An unrated project writes nothing", func() {
			res, err := f.agg.ScoreProject(ctx, f.project.ID)
			So(err, ShouldBeNil)
			So(res.Scored, ShouldBeFalse)
			So(res.MembersUpdated, ShouldEqual, 0)
			p, _ := f.store.GetParticipation(ctx, f.members[0].ID)
			So(p.Score, ShouldBeNil)
		})

		Convey("Unknown subjects fail", func() {
			_, err := f.agg.ScoreProject(ctx, 9999)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = f.agg.Score(ctx, model.SubjectRef{Kind: "team", ID: 1})
			So(errors.Is(err, model.ErrUnknownSubjectKind), ShouldBeTrue)
		})

		Convey("Breakdowns show per-criterion contributions", func() {
			f.rate(ctx, f.soloRef, 1, f.c60, 5)
			f.rate(ctx, f.soloRef, 1, f.c40, 3)
			f.rate(ctx, f.soloRef, 2, f.c60, 4)

			b, err := f.agg.EvaluatorBreakdown(ctx, f.soloRef, 1)
			So(err, ShouldBeNil)
			So(len(b.Lines), ShouldEqual, 2)
			So(b.Lines[0].Contribution, ShouldEqual, 3)
			So(b.Lines[1].Contribution, ShouldEqual, 1.2)
			So(*b.Total, ShouldEqual, 4.2)
			So(b.Evaluated, ShouldBeTrue)

			partial, _ := f.agg.EvaluatorBreakdown(ctx, f.soloRef, 2)
			So(partial.Evaluated, ShouldBeFalse)
			So(partial.Rated, ShouldEqual, 1)
			So(partial.CriteriaCount, ShouldEqual, 2)
			So(*partial.Total, ShouldEqual, 2.4)

			none, _ := f.agg.EvaluatorBreakdown(ctx, f.soloRef, 3)
			So(none.Total, ShouldBeNil)
			So(none.Lines, ShouldBeEmpty)

			all, err := f.agg.Breakdowns(ctx, f.soloRef)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 2)
			So(all[0].EvaluatorID, ShouldEqual, 1)

			p, _ := f.store.GetParticipation(ctx, f.solo.ID)
			So(p.Score, ShouldBeNil)
		})
	})
}
