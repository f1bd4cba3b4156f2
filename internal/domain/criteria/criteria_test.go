package criteria_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/eventsoft/internal/adapters/repository"
	"github.com/okian/eventsoft/internal/domain/criteria"
	"github.com/okian/eventsoft/internal/domain/model"
)

const evaluator = int64(7)

func setup(ctx context.Context) (*repository.MemoryStore, *criteria.Registry, model.Event) {
	store := repository.NewMemoryStore()
	event := model.Event{Name: "Fair"}
	So(store.CreateEvent(ctx, &event), ShouldBeNil)
	So(store.EnrollEvaluator(ctx, model.EvaluatorEnrollment{
		EvaluatorID: evaluator, EventID: event.ID, Status: model.StatusApproved,
	}), ShouldBeNil)
	return store, criteria.NewRegistry(store, store), event
}

func TestTotalWeight(t *testing.T) {
	Convey("Given criteria weights", t, func() {
		So(criteria.TotalWeight(nil), ShouldEqual, 1)
		So(criteria.TotalWeight([]model.Criterion{{Weight: 0}, {Weight: 0}}), ShouldEqual, 1)
		So(criteria.TotalWeight([]model.Criterion{{Weight: 60}, {Weight: 40}}), ShouldEqual, 100)
		So(criteria.TotalWeight([]model.Criterion{{Weight: 0.25}}), ShouldEqual, 0.25)
		So(criteria.TotalWeight([]model.Criterion{{Weight: 0.25}, {Weight: 0.25}}), ShouldEqual, 0.5)
	})
}

var errStorage = errors.New("connection reset")

type failingEnrollments struct{}

func (failingEnrollments) GetEnrollment(context.Context, int64, int64) (model.EvaluatorEnrollment, error) {
	return model.EvaluatorEnrollment{}, errStorage
}

func TestAuthorization(t *testing.T) {
	Convey("Given a registry", t, func() {
		ctx := context.Background()
		store, reg, event := setup(ctx)

		Convey("Evaluators never enrolled are not approved", func() {
			_, err := reg.Add(ctx, 99, event.ID, "Design", 10)
			So(errors.Is(err, criteria.ErrEvaluatorNotApproved), ShouldBeTrue)
		})

		Convey("Enrollment lookup failures are returned as they are", func() {
			broken := criteria.NewRegistry(store, failingEnrollments{})
			_, err := broken.Add(ctx, evaluator, event.ID, "Design", 10)
			So(errors.Is(err, errStorage), ShouldBeTrue)
			So(errors.Is(err, criteria.ErrEvaluatorNotApproved), ShouldBeFalse)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given criterion input", t, func() {
		So(criteria.Validate("Design", 0), ShouldBeNil)
		So(criteria.Validate("Design", 100), ShouldBeNil)
		So(errors.Is(criteria.Validate("Design", -1), criteria.ErrInvalidCriterion), ShouldBeTrue)
		So(errors.Is(criteria.Validate("Design", 100.5), criteria.ErrInvalidCriterion), ShouldBeTrue)
		So(errors.Is(criteria.Validate("  ", 10), criteria.ErrInvalidCriterion), ShouldBeTrue)
		So(errors.Is(criteria.Validate(strings.Repeat("x", 101), 10), criteria.ErrInvalidCriterion), ShouldBeTrue)
		So(criteria.Validate(strings.Repeat("é", 100), 10), ShouldBeNil)
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry over an event", t, func() {
		ctx := context.Background()
		store, reg, event := setup(ctx)

		Convey("When the event already carries 95", func() {
			_, err := reg.Add(ctx, evaluator, event.ID, "Innovation", 50)
			So(err, ShouldBeNil)
			_, err = reg.Add(ctx, evaluator, event.ID, "Impact", 45)
			So(err, ShouldBeNil)

			Convey("Then adding 6 fails and adding 5 succeeds", func() {
				_, err := reg.Add(ctx, evaluator, event.ID, "Extra", 6)
				So(errors.Is(err, criteria.ErrWeightExceeded), ShouldBeTrue)

				c, err := reg.Add(ctx, evaluator, event.ID, "Extra", 5)
				So(err, ShouldBeNil)
				So(c.ID, ShouldBeGreaterThan, 0)

				summary, err := reg.List(ctx, event.ID)
				So(err, ShouldBeNil)
				So(len(summary.Criteria), ShouldEqual, 3)
				So(summary.Total, ShouldEqual, 100)
				So(summary.Remaining, ShouldEqual, 0)
			})
		})

		Convey("When editing a criterion", func() {
			a, _ := reg.Add(ctx, evaluator, event.ID, "A", 60)
			_, _ = reg.Add(ctx, evaluator, event.ID, "B", 40)

			Convey("Then its own weight is excluded from the total", func() {
				edited, err := reg.Edit(ctx, evaluator, a.ID, "A2", 60)
				So(err, ShouldBeNil)
				So(edited.Description, ShouldEqual, "A2")

				_, err = reg.Edit(ctx, evaluator, a.ID, "A3", 61)
				So(errors.Is(err, criteria.ErrWeightExceeded), ShouldBeTrue)

				got, _ := store.GetCriterion(ctx, a.ID)
				So(got.Description, ShouldEqual, "A2")
			})

			Convey("Then unknown criteria are not found", func() {
				_, err := reg.Edit(ctx, evaluator, 9999, "x", 1)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a pre-existing total is already above 100", func() {
			over := model.Criterion{EventID: event.ID, Description: "legacy", Weight: 120}
			So(store.CreateCriterion(ctx, &over, nil), ShouldBeNil)

			Convey("Then it is tolerated but nothing more can be added", func() {
				summary, _ := reg.List(ctx, event.ID)
				So(summary.Total, ShouldEqual, 120)
				So(summary.Remaining, ShouldEqual, -20)
				_, err := reg.Add(ctx, evaluator, event.ID, "more", 0.5)
				So(errors.Is(err, criteria.ErrWeightExceeded), ShouldBeTrue)
			})
		})

		Convey("When the evaluator is not approved", func() {
			So(store.SetEnrollmentStatus(ctx, event.ID, evaluator, model.StatusPending), ShouldBeNil)

			Convey("Then management is refused", func() {
				_, err := reg.Add(ctx, evaluator, event.ID, "A", 10)
				So(errors.Is(err, criteria.ErrEvaluatorNotApproved), ShouldBeTrue)
				_, err = reg.Add(ctx, 99, event.ID, "A", 10)
				So(errors.Is(err, criteria.ErrEvaluatorNotApproved), ShouldBeTrue)
			})
		})

		Convey("When removing a criterion", func() {
			c, _ := reg.Add(ctx, evaluator, event.ID, "A", 10)
			p := model.Participation{ParticipantID: 1, EventID: event.ID, Status: model.StatusApproved}
			So(store.RegisterParticipation(ctx, &p), ShouldBeNil)
			ref := model.SubjectRef{Kind: model.SubjectParticipant, ID: p.ID}
			_, err := store.UpsertRatings(ctx, []model.Rating{{EvaluatorID: evaluator, CriterionID: c.ID, Subject: ref, Value: 3}})
			So(err, ShouldBeNil)

			Convey("Then its ratings go with it", func() {
				So(reg.Remove(ctx, evaluator, c.ID), ShouldBeNil)
				ratings, _ := store.ListRatings(ctx, ref, event.ID)
				So(ratings, ShouldBeEmpty)
			})
		})

		Convey("When two adds race for the remaining weight", func() {
			var ok atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := reg.Add(ctx, evaluator, event.ID, "half+", 60); err == nil {
						ok.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then only one succeeds", func() {
				So(ok.Load(), ShouldEqual, 1)
			})
		})
	})
}
