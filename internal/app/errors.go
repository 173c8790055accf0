package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("too many pending updates")
	ErrStopped      = errors.New("service stopped")
)
