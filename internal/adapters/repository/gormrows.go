package repository

import (
	"time"

	"github.com/okian/eventsoft/internal/domain/model"
)

type eventRow struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name              string    `gorm:"column:name;size:200;not null"`
	Multidisciplinary bool      `gorm:"column:multidisciplinary;not null"`
	Capacity          *int      `gorm:"column:capacity"`
	CreatedAt         time.Time `gorm:"column:created_at;not null"`
}

func (eventRow) TableName() string { return "events" }

func (r eventRow) toModel() model.Event {
	return model.Event{
		ID:                r.ID,
		Name:              r.Name,
		Multidisciplinary: r.Multidisciplinary,
		Capacity:          r.Capacity,
		CreatedAt:         r.CreatedAt,
	}
}

type criterionRow struct {
	ID          int64    `gorm:"column:id;primaryKey;autoIncrement"`
	EventID     int64    `gorm:"column:event_id;not null;index"`
	Description string   `gorm:"column:description;size:100;not null"`
	Weight      *float64 `gorm:"column:weight"`
}

func (criterionRow) TableName() string { return "criteria" }

func (r criterionRow) toModel() model.Criterion {
	c := model.Criterion{ID: r.ID, EventID: r.EventID, Description: r.Description}
	if r.Weight != nil {
		c.Weight = *r.Weight
	}
	return c
}

type enrollmentRow struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	EvaluatorID int64  `gorm:"column:evaluator_id;not null;uniqueIndex:uq_evaluator_event"`
	EventID     int64  `gorm:"column:event_id;not null;uniqueIndex:uq_evaluator_event"`
	Status      string `gorm:"column:status;size:16;not null"`
	CategoryID  *int64 `gorm:"column:category_id"`
}

func (enrollmentRow) TableName() string { return "evaluator_enrollments" }

func (r enrollmentRow) toModel() model.EvaluatorEnrollment {
	return model.EvaluatorEnrollment{
		EvaluatorID: r.EvaluatorID,
		EventID:     r.EventID,
		Status:      model.Status(r.Status),
		CategoryID:  r.CategoryID,
	}
}

type participationRow struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ParticipantID int64     `gorm:"column:participant_id;not null;uniqueIndex:uq_participant_event"`
	EventID       int64     `gorm:"column:event_id;not null;uniqueIndex:uq_participant_event"`
	Status        string    `gorm:"column:status;size:16;not null"`
	ProjectID     *int64    `gorm:"column:project_id;index"`
	Leader        bool      `gorm:"column:leader;not null"`
	Score         *float64  `gorm:"column:score"`
	RegisteredAt  time.Time `gorm:"column:registered_at;not null"`
}

func (participationRow) TableName() string { return "participations" }

func (r participationRow) toModel(categories []int64) model.Participation {
	return model.Participation{
		ID:            r.ID,
		ParticipantID: r.ParticipantID,
		EventID:       r.EventID,
		Status:        model.Status(r.Status),
		ProjectID:     r.ProjectID,
		Leader:        r.Leader,
		Score:         r.Score,
		Categories:    categories,
		RegisteredAt:  r.RegisteredAt,
	}
}

type projectRow struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID     int64     `gorm:"column:event_id;not null;index"`
	Name        string    `gorm:"column:name;size:200;not null"`
	Description string    `gorm:"column:description;size:2000"`
	Status      string    `gorm:"column:status;size:16;not null"`
	Score       *float64  `gorm:"column:score"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (projectRow) TableName() string { return "projects" }

func (r projectRow) toModel(categories []int64) model.Project {
	return model.Project{
		ID:          r.ID,
		EventID:     r.EventID,
		Name:        r.Name,
		Description: r.Description,
		Status:      model.Status(r.Status),
		Score:       r.Score,
		Categories:  categories,
		CreatedAt:   r.CreatedAt,
	}
}

type subjectCategoryRow struct {
	SubjectKind string `gorm:"column:subject_kind;size:16;primaryKey"`
	SubjectID   int64  `gorm:"column:subject_id;primaryKey;autoIncrement:false"`
	CategoryID  int64  `gorm:"column:category_id;primaryKey;autoIncrement:false"`
}

func (subjectCategoryRow) TableName() string { return "subject_categories" }

type ratingRow struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EvaluatorID     int64     `gorm:"column:evaluator_id;not null;uniqueIndex:uq_rating"`
	CriterionID     int64     `gorm:"column:criterion_id;not null;uniqueIndex:uq_rating;index"`
	ParticipationID int64     `gorm:"column:participation_id;not null;uniqueIndex:uq_rating"`
	Value           int       `gorm:"column:value;not null"`
	Note            string    `gorm:"column:note;size:1000"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null"`
}

func (ratingRow) TableName() string { return "ratings" }

type projectRatingRow struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EvaluatorID int64     `gorm:"column:evaluator_id;not null;uniqueIndex:uq_project_rating"`
	CriterionID int64     `gorm:"column:criterion_id;not null;uniqueIndex:uq_project_rating;index"`
	ProjectID   int64     `gorm:"column:project_id;not null;uniqueIndex:uq_project_rating"`
	Value       int       `gorm:"column:value;not null"`
	Note        string    `gorm:"column:note;size:1000"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (projectRatingRow) TableName() string { return "project_ratings" }

func allRows() []any {
	return []any{
		&eventRow{},
		&criterionRow{},
		&enrollmentRow{},
		&participationRow{},
		&projectRow{},
		&subjectCategoryRow{},
		&ratingRow{},
		&projectRatingRow{},
	}
}
