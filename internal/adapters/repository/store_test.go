package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/eventsoft/internal/adapters/repository"
	"github.com/okian/eventsoft/internal/domain/model"
)

var sqliteSeq atomic.Int64

func newSQLiteStore(t *testing.T) repository.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:eventsoft_%d?mode=memory&cache=shared", sqliteSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := repository.NewGormStore(context.Background(), db, repository.WithPool(1, 1, time.Hour))
	if err != nil {
		t.Fatalf("new gorm store: %v", err)
	}
	return store
}

type storeFactory struct {
	name string
	open func(t *testing.T) repository.Store
}

func factories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(*testing.T) repository.Store { return repository.NewMemoryStore() }},
		{name: "sqlite", open: newSQLiteStore},
	}
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	event    model.Event
	criteria []model.Criterion
	alice    model.Participation
	bob      model.Participation
	project  model.Project
}

func seed(ctx context.Context, s repository.Store) fixture {
	var f fixture
	f.event = model.Event{Name: "Hackathon", Capacity: ptr(2)}
	So(s.CreateEvent(ctx, &f.event), ShouldBeNil)

	for _, w := range []float64{60, 40} {
		c := model.Criterion{EventID: f.event.ID, Description: fmt.Sprintf("w%.0f", w), Weight: w}
		So(s.CreateCriterion(ctx, &c, nil), ShouldBeNil)
		f.criteria = append(f.criteria, c)
	}

	f.alice = model.Participation{ParticipantID: 100, EventID: f.event.ID, Status: model.StatusPending, Categories: []int64{3}}
	So(s.RegisterParticipation(ctx, &f.alice), ShouldBeNil)
	f.bob = model.Participation{ParticipantID: 101, EventID: f.event.ID, Status: model.StatusPending}
	So(s.RegisterParticipation(ctx, &f.bob), ShouldBeNil)

	f.project = model.Project{EventID: f.event.ID, Name: "Rocket", Status: model.StatusApproved, Categories: []int64{3, 4}}
	So(s.CreateProject(ctx, &f.project), ShouldBeNil)
	return f
}

func TestStores(t *testing.T) {
	for _, factory := range factories() {
		Convey("Given a "+factory.name+" store", t, func() {
			ctx := context.Background()
			s := factory.open(t)
			defer func() { _ = s.Close() }()
			f := seed(ctx, s)

			Convey("Events and registrations round-trip", func() {
				e, err := s.GetEvent(ctx, f.event.ID)
				So(err, ShouldBeNil)
				So(e.Name, ShouldEqual, "Hackathon")
				So(*e.Capacity, ShouldEqual, 2)

				p, err := s.GetParticipation(ctx, f.alice.ID)
				So(err, ShouldBeNil)
				So(p.Categories, ShouldResemble, []int64{3})
				So(p.Score, ShouldBeNil)
				So(p.Grouped(), ShouldBeFalse)

				proj, err := s.GetProject(ctx, f.project.ID)
				So(err, ShouldBeNil)
				So(proj.Categories, ShouldResemble, []int64{3, 4})

				_, err = s.GetEvent(ctx, 9999)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Duplicate registrations are rejected", func() {
				dup := model.Participation{ParticipantID: 100, EventID: f.event.ID, Status: model.StatusPending}
				So(errors.Is(s.RegisterParticipation(ctx, &dup), repository.ErrDuplicate), ShouldBeTrue)

				en := model.EvaluatorEnrollment{EvaluatorID: 7, EventID: f.event.ID, Status: model.StatusApproved, CategoryID: ptr(int64(3))}
				So(s.EnrollEvaluator(ctx, en), ShouldBeNil)
				So(errors.Is(s.EnrollEvaluator(ctx, en), repository.ErrDuplicate), ShouldBeTrue)

				got, err := s.GetEnrollment(ctx, f.event.ID, 7)
				So(err, ShouldBeNil)
				So(got.Approved(), ShouldBeTrue)
				So(*got.CategoryID, ShouldEqual, 3)

				So(s.SetEnrollmentStatus(ctx, f.event.ID, 7, model.StatusRejected), ShouldBeNil)
				got, _ = s.GetEnrollment(ctx, f.event.ID, 7)
				So(got.Approved(), ShouldBeFalse)
				So(errors.Is(s.SetEnrollmentStatus(ctx, f.event.ID, 7, "bogus"), repository.ErrInvalidStatus), ShouldBeTrue)
			})

			Convey("Approving participations consumes capacity", func() {
				So(s.SetParticipationStatus(ctx, f.alice.ID, model.StatusApproved), ShouldBeNil)
				So(s.SetParticipationStatus(ctx, f.alice.ID, model.StatusApproved), ShouldBeNil)
				So(s.SetParticipationStatus(ctx, f.bob.ID, model.StatusApproved), ShouldBeNil)

				e, _ := s.GetEvent(ctx, f.event.ID)
				So(*e.Capacity, ShouldEqual, 0)

				carol := model.Participation{ParticipantID: 102, EventID: f.event.ID, Status: model.StatusPending}
				So(s.RegisterParticipation(ctx, &carol), ShouldBeNil)
				err := s.SetParticipationStatus(ctx, carol.ID, model.StatusApproved)
				So(errors.Is(err, repository.ErrCapacityExhausted), ShouldBeTrue)

				p, _ := s.GetParticipation(ctx, carol.ID)
				So(p.Status, ShouldEqual, model.StatusPending)
			})

			Convey("Unlimited events never run out", func() {
				open := model.Event{Name: "Open"}
				So(s.CreateEvent(ctx, &open), ShouldBeNil)
				for i := 0; i < 3; i++ {
					p := model.Participation{ParticipantID: int64(200 + i), EventID: open.ID, Status: model.StatusPending}
					So(s.RegisterParticipation(ctx, &p), ShouldBeNil)
					So(s.SetParticipationStatus(ctx, p.ID, model.StatusApproved), ShouldBeNil)
				}
			})

			Convey("A project has at most one leader", func() {
				So(s.AssignMember(ctx, f.project.ID, f.alice.ID, true), ShouldBeNil)
				err := s.AssignMember(ctx, f.project.ID, f.bob.ID, true)
				So(errors.Is(err, repository.ErrLeaderExists), ShouldBeTrue)
				So(s.AssignMember(ctx, f.project.ID, f.bob.ID, false), ShouldBeNil)
				So(s.AssignMember(ctx, f.project.ID, f.alice.ID, true), ShouldBeNil)

				members, err := s.ListProjectMembers(ctx, f.project.ID)
				So(err, ShouldBeNil)
				So(len(members), ShouldEqual, 2)
				So(members[0].ID, ShouldEqual, f.alice.ID)
				So(members[0].Leader, ShouldBeTrue)
				So(members[1].Grouped(), ShouldBeTrue)
			})

			Convey("Members from another event are refused", func() {
				other := model.Event{Name: "Other"}
				So(s.CreateEvent(ctx, &other), ShouldBeNil)
				stranger := model.Participation{ParticipantID: 100, EventID: other.ID, Status: model.StatusApproved}
				So(s.RegisterParticipation(ctx, &stranger), ShouldBeNil)
				err := s.AssignMember(ctx, f.project.ID, stranger.ID, false)
				So(errors.Is(err, repository.ErrInvalidMember), ShouldBeTrue)
			})

			Convey("Criteria checks see the event's current criteria", func() {
				var seen []model.Criterion
				c := model.Criterion{EventID: f.event.ID, Description: "extra", Weight: 5}
				boom := errors.New("rejected by check")
				err := s.CreateCriterion(ctx, &c, func(existing []model.Criterion) error {
					seen = existing
					return boom
				})
				So(errors.Is(err, boom), ShouldBeTrue)
				So(len(seen), ShouldEqual, 2)

				list, _ := s.ListCriteria(ctx, f.event.ID)
				So(len(list), ShouldEqual, 2)

				edited := f.criteria[1]
				edited.Weight = 30
				edited.Description = "renamed"
				So(s.UpdateCriterion(ctx, edited, func([]model.Criterion) error { return nil }), ShouldBeNil)
				got, err := s.GetCriterion(ctx, edited.ID)
				So(err, ShouldBeNil)
				So(got.Weight, ShouldEqual, 30)
				So(got.Description, ShouldEqual, "renamed")
			})

			Convey("Rating upserts keep one row per key", func() {
				ref := model.SubjectRef{Kind: model.SubjectParticipant, ID: f.alice.ID}
				n, err := s.UpsertRatings(ctx, []model.Rating{
					{EvaluatorID: 7, CriterionID: f.criteria[0].ID, Subject: ref, Value: 2},
					{EvaluatorID: 7, CriterionID: f.criteria[1].ID, Subject: ref, Value: 3},
				})
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				_, err = s.UpsertRatings(ctx, []model.Rating{
					{EvaluatorID: 7, CriterionID: f.criteria[0].ID, Subject: ref, Value: 5, Note: "better"},
				})
				So(err, ShouldBeNil)

				ratings, err := s.ListRatings(ctx, ref, f.event.ID)
				So(err, ShouldBeNil)
				So(len(ratings), ShouldEqual, 2)
				So(ratings[0].Value, ShouldEqual, 5)
				So(ratings[0].Note, ShouldEqual, "better")
				So(ratings[1].Value, ShouldEqual, 3)
			})

			Convey("Concurrent upserts of the same key leave one row", func() {
				ref := model.SubjectRef{Kind: model.SubjectProject, ID: f.project.ID}
				var wg sync.WaitGroup
				for v := 1; v <= 5; v++ {
					wg.Add(1)
					go func(v int) {
						defer wg.Done()
						_, _ = s.UpsertRatings(ctx, []model.Rating{
							{EvaluatorID: 9, CriterionID: f.criteria[0].ID, Subject: ref, Value: v},
						})
					}(v)
				}
				wg.Wait()

				ratings, err := s.ListRatings(ctx, ref, f.event.ID)
				So(err, ShouldBeNil)
				So(len(ratings), ShouldEqual, 1)
				So(ratings[0].Value, ShouldBeBetweenOrEqual, 1, 5)
			})

			Convey("A batch with an unknown criterion writes nothing", func() {
				ref := model.SubjectRef{Kind: model.SubjectParticipant, ID: f.bob.ID}
				_, err := s.UpsertRatings(ctx, []model.Rating{
					{EvaluatorID: 7, CriterionID: f.criteria[0].ID, Subject: ref, Value: 4},
					{EvaluatorID: 7, CriterionID: 9999, Subject: ref, Value: 4},
				})
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				ratings, _ := s.ListRatings(ctx, ref, f.event.ID)
				So(ratings, ShouldBeEmpty)
			})

			Convey("Ratings on another event's criteria are not listed", func() {
				other := model.Event{Name: "Other"}
				So(s.CreateEvent(ctx, &other), ShouldBeNil)
				foreign := model.Criterion{EventID: other.ID, Description: "foreign", Weight: 10}
				So(s.CreateCriterion(ctx, &foreign, nil), ShouldBeNil)

				ref := model.SubjectRef{Kind: model.SubjectParticipant, ID: f.alice.ID}
				_, err := s.UpsertRatings(ctx, []model.Rating{{EvaluatorID: 7, CriterionID: foreign.ID, Subject: ref, Value: 4}})
				So(err, ShouldBeNil)
				ratings, _ := s.ListRatings(ctx, ref, f.event.ID)
				So(ratings, ShouldBeEmpty)
			})

			Convey("Deleting a criterion cascades to its ratings", func() {
				pref := model.SubjectRef{Kind: model.SubjectParticipant, ID: f.alice.ID}
				gref := model.SubjectRef{Kind: model.SubjectProject, ID: f.project.ID}
				_, err := s.UpsertRatings(ctx, []model.Rating{
					{EvaluatorID: 7, CriterionID: f.criteria[0].ID, Subject: pref, Value: 4},
					{EvaluatorID: 7, CriterionID: f.criteria[1].ID, Subject: pref, Value: 4},
					{EvaluatorID: 7, CriterionID: f.criteria[0].ID, Subject: gref, Value: 4},
				})
				So(err, ShouldBeNil)

				So(s.DeleteCriterion(ctx, f.criteria[0].ID), ShouldBeNil)
				left, _ := s.ListRatings(ctx, pref, f.event.ID)
				So(len(left), ShouldEqual, 1)
				left, _ = s.ListRatings(ctx, gref, f.event.ID)
				So(left, ShouldBeEmpty)
				So(errors.Is(s.DeleteCriterion(ctx, f.criteria[0].ID), repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Project scores propagate to every member", func() {
				So(s.AssignMember(ctx, f.project.ID, f.alice.ID, true), ShouldBeNil)
				So(s.AssignMember(ctx, f.project.ID, f.bob.ID, false), ShouldBeNil)

				n, err := s.SaveProjectScore(ctx, f.project.ID, 3.75)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				proj, _ := s.GetProject(ctx, f.project.ID)
				So(*proj.Score, ShouldEqual, 3.75)
				members, _ := s.ListProjectMembers(ctx, f.project.ID)
				for _, m := range members {
					So(*m.Score, ShouldEqual, 3.75)
				}

				So(s.SaveParticipationScore(ctx, f.alice.ID, 1.5), ShouldBeNil)
				p, _ := s.GetParticipation(ctx, f.alice.ID)
				So(*p.Score, ShouldEqual, 1.5)
			})

			Convey("Deleting a project removes its members and ratings", func() {
				So(s.AssignMember(ctx, f.project.ID, f.alice.ID, true), ShouldBeNil)
				_, err := s.UpsertRatings(ctx, []model.Rating{
					{EvaluatorID: 7, CriterionID: f.criteria[0].ID, Subject: model.SubjectRef{Kind: model.SubjectProject, ID: f.project.ID}, Value: 4},
					{EvaluatorID: 7, CriterionID: f.criteria[0].ID, Subject: model.SubjectRef{Kind: model.SubjectParticipant, ID: f.alice.ID}, Value: 4},
				})
				So(err, ShouldBeNil)

				So(s.DeleteProject(ctx, f.project.ID), ShouldBeNil)

				_, err = s.GetProject(ctx, f.project.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = s.GetParticipation(ctx, f.alice.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = s.GetParticipation(ctx, f.bob.ID)
				So(err, ShouldBeNil)

				projects, _ := s.ListProjects(ctx, f.event.ID)
				So(projects, ShouldBeEmpty)
			})

			Convey("Lists follow registration order", func() {
				list, err := s.ListParticipations(ctx, f.event.ID)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
				So(list[0].ID, ShouldEqual, f.alice.ID)
				So(list[1].ID, ShouldEqual, f.bob.ID)

				sub, err := model.LoadSubject(ctx, s, model.SubjectRef{Kind: model.SubjectProject, ID: f.project.ID})
				So(err, ShouldBeNil)
				So(sub.EventID, ShouldEqual, f.event.ID)
				_, err = model.LoadSubject(ctx, s, model.SubjectRef{Kind: "team", ID: 1})
				So(errors.Is(err, model.ErrUnknownSubjectKind), ShouldBeTrue)
			})
		})
	}
}
