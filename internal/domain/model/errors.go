package model

import "errors"

// Sentinel kinds shared by the engine and its collaborators.
var (
	// ErrIdentityNotFound is returned by credential verification for an unknown login.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrBadPassword is returned by credential verification for a wrong password.
	ErrBadPassword = errors.New("bad password")
	// ErrInvalidEvaluation marks an evaluation that violates its invariants.
	ErrInvalidEvaluation = errors.New("invalid evaluation")
)
