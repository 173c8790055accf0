package conversation

import "errors"

// Sentinel kinds for inbound event decoding.
var (
	// ErrUnknownToken marks a callback token outside the button protocol.
	ErrUnknownToken = errors.New("unknown callback token")
	// ErrEmptyUpdate marks an update carrying neither text nor a token.
	ErrEmptyUpdate = errors.New("update has neither text nor choice")
)
