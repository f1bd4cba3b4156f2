package ranking

import "errors"

// ErrNotRanked is returned by Position for a participation that is not
// approved, not in the event, or has no cached score.
var ErrNotRanked = errors.New("participation is not ranked")
