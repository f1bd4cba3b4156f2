package rating_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/eventsoft/internal/adapters/repository"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/internal/domain/rating"
)

const evaluator = int64(7)

type world struct {
	store    *repository.MemoryStore
	svc      *rating.Service
	event    model.Event
	criteria []model.Criterion
	subject  model.SubjectRef
}

func newWorld(ctx context.Context, multidisciplinary bool) world {
	w := world{store: repository.NewMemoryStore()}
	w.svc = rating.NewService(w.store)
	w.event = model.Event{Name: "Expo", Multidisciplinary: multidisciplinary}
	So(w.store.CreateEvent(ctx, &w.event), ShouldBeNil)
	for _, weight := range []float64{60, 40} {
		c := model.Criterion{EventID: w.event.ID, Description: "c", Weight: weight}
		So(w.store.CreateCriterion(ctx, &c, nil), ShouldBeNil)
		w.criteria = append(w.criteria, c)
	}
	So(w.store.EnrollEvaluator(ctx, model.EvaluatorEnrollment{
		EvaluatorID: evaluator, EventID: w.event.ID, Status: model.StatusApproved,
	}), ShouldBeNil)
	p := model.Participation{ParticipantID: 1, EventID: w.event.ID, Status: model.StatusApproved, Categories: []int64{2}}
	So(w.store.RegisterParticipation(ctx, &p), ShouldBeNil)
	w.subject = model.SubjectRef{Kind: model.SubjectParticipant, ID: p.ID}
	return w
}

var errStorage = errors.New("connection reset")

// failingEnrollments is a store whose enrollment reads always fail.
type failingEnrollments struct {
	*repository.MemoryStore
}

func (failingEnrollments) GetEnrollment(context.Context, int64, int64) (model.EvaluatorEnrollment, error) {
	return model.EvaluatorEnrollment{}, errStorage
}

func TestParseValue(t *testing.T) {
	Convey("Given raw rating input", t, func() {
		v, err := rating.ParseValue(" 4 ")
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 4)

		for _, raw := range []string{"abc", "", "3.5", "0", "6"} {
			_, err := rating.ParseValue(raw)
			So(errors.Is(err, rating.ErrInvalidRatingValue), ShouldBeTrue)
		}
	})
}

func TestSubmit(t *testing.T) {
	Convey("Given an approved evaluator and subject", t, func() {
		ctx := context.Background()
		w := newWorld(ctx, false)
		c0 := w.criteria[0].ID

		Convey("Values outside 1..5 are rejected and bounds accepted", func() {
			for _, v := range []int{0, 6} {
				_, err := w.svc.SubmitRating(ctx, evaluator, c0, w.subject, v, "")
				So(errors.Is(err, rating.ErrInvalidRatingValue), ShouldBeTrue)
			}
			for _, v := range []int{1, 5} {
				_, err := w.svc.SubmitRating(ctx, evaluator, c0, w.subject, v, "")
				So(err, ShouldBeNil)
			}
			ratings, _ := w.store.ListRatings(ctx, w.subject, w.event.ID)
			So(len(ratings), ShouldEqual, 1)
			So(ratings[0].Value, ShouldEqual, 5)
		})

		Convey("A bad entry rejects the whole batch", func() {
			_, err := w.svc.Submit(ctx, evaluator, w.subject, []rating.Entry{
				{CriterionID: c0, Value: 4},
				{CriterionID: w.criteria[1].ID, Value: 9},
			})
			So(errors.Is(err, rating.ErrInvalidRatingValue), ShouldBeTrue)
			ratings, _ := w.store.ListRatings(ctx, w.subject, w.event.ID)
			So(ratings, ShouldBeEmpty)
		})

		Convey("A criterion repeated in a batch keeps the last entry", func() {
			res, err := w.svc.Submit(ctx, evaluator, w.subject, []rating.Entry{
				{CriterionID: c0, Value: 2, Note: "first"},
				{CriterionID: c0, Value: 4, Note: "second"},
			})
			So(err, ShouldBeNil)
			So(res.Written, ShouldEqual, 1)
			So(res.Subject.EventID, ShouldEqual, w.event.ID)
			ratings, _ := w.store.ListRatings(ctx, w.subject, w.event.ID)
			So(ratings[0].Note, ShouldEqual, "second")
		})

		Convey("An empty batch is rejected", func() {
			_, err := w.svc.Submit(ctx, evaluator, w.subject, nil)
			So(errors.Is(err, rating.ErrEmptyBatch), ShouldBeTrue)
		})

		Convey("A criterion from another event is a mismatch", func() {
			other := model.Event{Name: "Other"}
			So(w.store.CreateEvent(ctx, &other), ShouldBeNil)
			foreign := model.Criterion{EventID: other.ID, Description: "f", Weight: 10}
			So(w.store.CreateCriterion(ctx, &foreign, nil), ShouldBeNil)

			_, err := w.svc.SubmitRating(ctx, evaluator, foreign.ID, w.subject, 3, "")
			So(errors.Is(err, rating.ErrEventMismatch), ShouldBeTrue)

			_, err = w.svc.SubmitRating(ctx, evaluator, 9999, w.subject, 3, "")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Unapproved evaluators and subjects are refused", func() {
			_, err := w.svc.SubmitRating(ctx, 99, c0, w.subject, 3, "")
			So(errors.Is(err, rating.ErrEvaluatorNotApproved), ShouldBeTrue)

			So(w.store.SetParticipationStatus(ctx, w.subject.ID, model.StatusRejected), ShouldBeNil)
			_, err = w.svc.SubmitRating(ctx, evaluator, c0, w.subject, 3, "")
			So(errors.Is(err, rating.ErrSubjectNotApproved), ShouldBeTrue)
		})

		Convey("Project members are rated through their project", func() {
			project := model.Project{EventID: w.event.ID, Name: "Team", Status: model.StatusApproved}
			So(w.store.CreateProject(ctx, &project), ShouldBeNil)
			So(w.store.AssignMember(ctx, project.ID, w.subject.ID, true), ShouldBeNil)

			_, err := w.svc.SubmitRating(ctx, evaluator, c0, w.subject, 3, "")
			So(errors.Is(err, rating.ErrGroupedParticipation), ShouldBeTrue)
			ratings, _ := w.store.ListRatings(ctx, w.subject, w.event.ID)
			So(ratings, ShouldBeEmpty)

			_, err = w.svc.SubmitRating(ctx, evaluator, c0, model.SubjectRef{Kind: model.SubjectProject, ID: project.ID}, 3, "")
			So(err, ShouldBeNil)
		})

		Convey("Enrollment lookup failures are not reported as unapproved", func() {
			broken := rating.NewService(failingEnrollments{MemoryStore: w.store})
			_, err := broken.SubmitRating(ctx, evaluator, c0, w.subject, 3, "")
			So(errors.Is(err, errStorage), ShouldBeTrue)
			So(errors.Is(err, rating.ErrEvaluatorNotApproved), ShouldBeFalse)
		})

		Convey("Unknown subjects are not found", func() {
			_, err := w.svc.SubmitRating(ctx, evaluator, c0, model.SubjectRef{Kind: model.SubjectProject, ID: 4242}, 3, "")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a multidisciplinary event with a category-scoped evaluator", t, func() {
		ctx := context.Background()
		w := newWorld(ctx, true)
		scoped := int64(8)
		category := int64(5)
		So(w.store.EnrollEvaluator(ctx, model.EvaluatorEnrollment{
			EvaluatorID: scoped, EventID: w.event.ID, Status: model.StatusApproved, CategoryID: &category,
		}), ShouldBeNil)

		Convey("Subjects outside the category are refused", func() {
			_, err := w.svc.SubmitRating(ctx, scoped, w.criteria[0].ID, w.subject, 3, "")
			So(errors.Is(err, rating.ErrCategoryMismatch), ShouldBeTrue)
		})

		Convey("Subjects inside the category are accepted", func() {
			p := model.Participation{ParticipantID: 2, EventID: w.event.ID, Status: model.StatusApproved, Categories: []int64{category}}
			So(w.store.RegisterParticipation(ctx, &p), ShouldBeNil)
			_, err := w.svc.SubmitRating(ctx, scoped, w.criteria[0].ID, model.SubjectRef{Kind: model.SubjectParticipant, ID: p.ID}, 3, "")
			So(err, ShouldBeNil)
		})

		Convey("Evaluators without a category rate anyone", func() {
			_, err := w.svc.SubmitRating(ctx, evaluator, w.criteria[0].ID, w.subject, 3, "")
			So(err, ShouldBeNil)
		})
	})
}
