package service

import "errors"

// ErrNotStarted is returned by every operation before Start succeeds.
var ErrNotStarted = errors.New("service not started")
