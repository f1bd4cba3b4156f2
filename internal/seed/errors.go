package seed

import "errors"

// Sentinel kinds for seed failures.
var (
	ErrInvalidConfig = errors.New("invalid seed config")
	ErrSubmission    = errors.New("rating submission incomplete")
	ErrVerification  = errors.New("ranking verification failed")
)
