// Package model contains domain models passed between layers.
package model

import "time"

// Status is the approval state shared by enrollments, participations and projects.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Event scopes criteria, registrations and every aggregation.
type Event struct {
	ID                int64
	Name              string
	Multidisciplinary bool
	Capacity          *int // nil = unlimited
	CreatedAt         time.Time
}

// Criterion is a weighted rating dimension of one event.
type Criterion struct {
	ID          int64
	EventID     int64
	Description string
	Weight      float64
}

// EvaluatorEnrollment links an evaluator to an event.
type EvaluatorEnrollment struct {
	EvaluatorID int64
	EventID     int64
	Status      Status
	// CategoryID restricts the evaluator to one category of a multidisciplinary event.
	CategoryID *int64
}

// Approved reports whether the enrollment may manage criteria and rate.
func (e EvaluatorEnrollment) Approved() bool { return e.Status == StatusApproved }
