package rating

import "errors"

// Sentinel kinds for rating submission. All are reported before any write.
var (
	ErrInvalidRatingValue   = errors.New("rating value must be an integer between 1 and 5")
	ErrEventMismatch        = errors.New("criterion does not belong to the subject's event")
	ErrEvaluatorNotApproved = errors.New("evaluator is not approved for this event")
	ErrSubjectNotApproved   = errors.New("subject is not approved")
	ErrCategoryMismatch     = errors.New("subject is outside the evaluator's category")
	ErrEmptyBatch           = errors.New("no ratings submitted")
	ErrGroupedParticipation = errors.New("participation belongs to a project; rate the project instead")
)
