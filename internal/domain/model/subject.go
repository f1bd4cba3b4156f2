package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrUnknownSubjectKind is returned for a SubjectRef with an unrecognized kind.
	ErrUnknownSubjectKind = errors.New("unknown subject kind")
	// ErrNotFound is returned by readers for a missing record.
	ErrNotFound = errors.New("not found")
)

// SubjectKind distinguishes individual participations from group projects.
type SubjectKind string

const (
	SubjectParticipant SubjectKind = "participant"
	SubjectProject     SubjectKind = "project"
)

// SubjectRef identifies a rated subject.
type SubjectRef struct {
	Kind SubjectKind
	ID   int64
}

// Participation is a participant's registration in one event.
type Participation struct {
	ID            int64
	ParticipantID int64
	EventID       int64
	Status        Status
	ProjectID     *int64
	Leader        bool
	Score         *float64
	Categories    []int64
	RegisteredAt  time.Time
}

// Grouped reports whether the participation belongs to a project.
func (p Participation) Grouped() bool { return p.ProjectID != nil }

// Subject returns the rating view of the participation.
func (p Participation) Subject() Subject {
	return Subject{
		Ref:        SubjectRef{Kind: SubjectParticipant, ID: p.ID},
		EventID:    p.EventID,
		Status:     p.Status,
		Score:      p.Score,
		Categories: p.Categories,
		Grouped:    p.Grouped(),
	}
}

// Project is a group entry of one event.
type Project struct {
	ID          int64
	EventID     int64
	Name        string
	Description string
	Status      Status
	Score       *float64
	Categories  []int64
	CreatedAt   time.Time
}

// Subject returns the rating view of the project.
func (p Project) Subject() Subject {
	return Subject{
		Ref:        SubjectRef{Kind: SubjectProject, ID: p.ID},
		EventID:    p.EventID,
		Status:     p.Status,
		Score:      p.Score,
		Categories: p.Categories,
	}
}

// Subject is what rating validation and aggregation need to know about
// either kind of rated entity.
type Subject struct {
	Ref        SubjectRef
	EventID    int64
	Status     Status
	Score      *float64
	Categories []int64
	// Grouped marks a participation that is scored through its project.
	Grouped bool
}

// HasCategory reports whether the subject is tagged with category.
func (s Subject) HasCategory(category int64) bool {
	return slices.Contains(s.Categories, category)
}

// SubjectReader reads either kind of subject.
type SubjectReader interface {
	GetParticipation(ctx context.Context, id int64) (Participation, error)
	GetProject(ctx context.Context, id int64) (Project, error)
}

// LoadSubject resolves ref through r.
func LoadSubject(ctx context.Context, r SubjectReader, ref SubjectRef) (Subject, error) {
	switch ref.Kind {
	case SubjectParticipant:
		p, err := r.GetParticipation(ctx, ref.ID)
		if err != nil {
			return Subject{}, err
		}
		return p.Subject(), nil
	case SubjectProject:
		p, err := r.GetProject(ctx, ref.ID)
		if err != nil {
			return Subject{}, err
		}
		return p.Subject(), nil
	default:
		return Subject{}, fmt.Errorf("%q: %w", ref.Kind, ErrUnknownSubjectKind)
	}
}
