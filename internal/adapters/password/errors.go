package password

import "errors"

// Sentinel kinds for stored hash handling.
var (
	ErrUnsupportedHash = errors.New("unsupported password hash")
	ErrMalformedHash   = errors.New("malformed password hash")
)
