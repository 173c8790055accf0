package simulate

import "errors"

// Sentinel kinds for simulation errors.
var (
	ErrScenario   = errors.New("invalid scenario")
	ErrUnexpected = errors.New("unexpected response")
	ErrNoButton   = errors.New("button not offered")
	ErrUnhealthy  = errors.New("service not healthy")
	ErrRunsFailed = errors.New("some conversations failed")
)
