package repository

import (
	"errors"

	"github.com/okian/eventsoft/internal/domain/model"
)

// Sentinel kinds for storage errors.
var (
	ErrNotFound          = model.ErrNotFound
	ErrDuplicate         = errors.New("already exists")
	ErrLeaderExists      = errors.New("project already has a leader")
	ErrCapacityExhausted = errors.New("event capacity exhausted")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidMember     = errors.New("participation cannot join this project")
)
