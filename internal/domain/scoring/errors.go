package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidToken = errors.New("invalid score token")
	ErrInvalidScore = errors.New("score outside {0, 0.5, 1}")
	ErrIncomplete   = errors.New("score card incomplete")
)
