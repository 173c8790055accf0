package delivery

import "errors"

// Sentinel kinds for delivery errors.
var (
	// ErrMessageNotFound is returned when an edit targets an unknown message.
	ErrMessageNotFound = errors.New("message not found")
)
