package model

import "time"

// Rating is one evaluator's value for one criterion against one subject.
// At most one exists per (EvaluatorID, CriterionID, Subject).
type Rating struct {
	EvaluatorID int64
	CriterionID int64
	Subject     SubjectRef
	Value       int
	Note        string
	UpdatedAt   time.Time
}
