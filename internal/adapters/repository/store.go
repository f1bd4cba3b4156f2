// Package repository persists events, registrations, criteria, ratings and
// cached subject scores.
package repository

import (
	"context"

	"github.com/okian/eventsoft/internal/domain/model"
)

// WeightCheck inspects the event's current criteria while the store holds
// the event lock. A non-nil error aborts the write and is returned as is.
type WeightCheck = func(existing []model.Criterion) error

// EventStore creates and reads events.
type EventStore interface {
	// CreateEvent assigns ID and CreatedAt.
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id int64) (model.Event, error)
}

// RegistrationStore holds the registration workflow state.
type RegistrationStore interface {
	// EnrollEvaluator returns ErrDuplicate when the evaluator is already enrolled.
	EnrollEvaluator(ctx context.Context, e model.EvaluatorEnrollment) error
	GetEnrollment(ctx context.Context, eventID, evaluatorID int64) (model.EvaluatorEnrollment, error)
	SetEnrollmentStatus(ctx context.Context, eventID, evaluatorID int64, status model.Status) error

	// RegisterParticipation assigns ID and RegisteredAt. Returns ErrDuplicate
	// when the participant is already registered in the event.
	RegisterParticipation(ctx context.Context, p *model.Participation) error
	// SetParticipationStatus consumes one unit of event capacity when the
	// participation becomes Approved, failing with ErrCapacityExhausted.
	SetParticipationStatus(ctx context.Context, id int64, status model.Status) error

	// CreateProject assigns ID and CreatedAt.
	CreateProject(ctx context.Context, p *model.Project) error
	SetProjectStatus(ctx context.Context, id int64, status model.Status) error
	// AssignMember links a participation of the same event to the project.
	// Returns ErrLeaderExists when leader is set and the project has one.
	// The cached score is left alone; scores are written through ScoreWriter.
	AssignMember(ctx context.Context, projectID, participationID int64, leader bool) error
	// DeleteProject removes the project with its ratings and its member
	// participations (and their ratings).
	DeleteProject(ctx context.Context, id int64) error
}

// SubjectStore reads rated subjects. Lists are ordered by registration or
// creation time, then ID.
type SubjectStore interface {
	GetParticipation(ctx context.Context, id int64) (model.Participation, error)
	GetProject(ctx context.Context, id int64) (model.Project, error)
	ListParticipations(ctx context.Context, eventID int64) ([]model.Participation, error)
	ListProjects(ctx context.Context, eventID int64) ([]model.Project, error)
	ListProjectMembers(ctx context.Context, projectID int64) ([]model.Participation, error)
}

// CriterionStore manages event criteria.
type CriterionStore interface {
	// CreateCriterion runs check against the event's criteria under the event
	// lock and inserts c when it passes. Assigns c.ID.
	CreateCriterion(ctx context.Context, c *model.Criterion, check WeightCheck) error
	// UpdateCriterion runs check like CreateCriterion; existing still holds
	// the criterion's old values.
	UpdateCriterion(ctx context.Context, c model.Criterion, check WeightCheck) error
	// DeleteCriterion removes the criterion and every rating referencing it.
	DeleteCriterion(ctx context.Context, id int64) error
	GetCriterion(ctx context.Context, id int64) (model.Criterion, error)
	ListCriteria(ctx context.Context, eventID int64) ([]model.Criterion, error)
}

// RatingStore persists ratings.
type RatingStore interface {
	// UpsertRatings writes the batch atomically. A rating whose key exists
	// overwrites value and note. Returns the number of rows written.
	UpsertRatings(ctx context.Context, ratings []model.Rating) (int, error)
	// ListRatings returns the subject's ratings whose criterion belongs to eventID.
	ListRatings(ctx context.Context, subject model.SubjectRef, eventID int64) ([]model.Rating, error)
}

// ScoreWriter is the only write path for cached aggregate scores.
type ScoreWriter interface {
	SaveParticipationScore(ctx context.Context, id int64, score float64) error
	// SaveProjectScore writes the project score and copies it to every
	// member participation of the same event in one transaction. Returns the
	// number of members updated.
	SaveProjectScore(ctx context.Context, projectID int64, score float64) (int, error)
}

// Store is the full persistence surface.
type Store interface {
	EventStore
	RegistrationStore
	SubjectStore
	CriterionStore
	RatingStore
	ScoreWriter

	Close() error
}
