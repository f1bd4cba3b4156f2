package criteria

import "errors"

// Sentinel kinds for criterion management.
var (
	ErrWeightExceeded       = errors.New("total criteria weight would exceed 100")
	ErrInvalidCriterion     = errors.New("invalid criterion")
	ErrEvaluatorNotApproved = errors.New("evaluator is not approved for this event")
)

func isWeight(err error) bool { return errors.Is(err, ErrWeightExceeded) }

func isAuth(err error) bool { return errors.Is(err, ErrEvaluatorNotApproved) }
