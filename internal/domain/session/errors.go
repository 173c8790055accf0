package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrParticipantRequired = errors.New("participant id required")
	ErrStoreClosed         = errors.New("session store closed")
)
