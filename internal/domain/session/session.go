// Package session holds the per-participant conversation record and the
// store that serializes read-modify-write cycles on it.
package session

import (
	"context"
	"time"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
)

// Session is the single mutable record of one participant's conversation.
type Session struct {
	ParticipantID int64
	State         State
	UpdatedAt     time.Time
}

// New returns the default session of a participant.
func New(participantID int64) Session {
	return Session{ParticipantID: participantID, State: Unauthenticated{}}
}

// Tag is the tag of the current state.
func (s Session) Tag() Tag {
	if s.State == nil {
		return TagUnauthenticated
	}
	return s.State.Tag()
}

// Identity returns the authenticated evaluator, if any. Identity is held
// nowhere else.
func (s Session) Identity() (model.Identity, bool) {
	a, ok := s.State.(Authenticated)
	if !ok {
		return model.Identity{}, false
	}
	id := a.Identity()
	return id, id.ID > 0
}

// Store keeps one Session per participant.
type Store interface {
	// Get returns the participant's session, or the default one.
	Get(ctx context.Context, participantID int64) (Session, error)
	// Replace overwrites the participant's session.
	Replace(ctx context.Context, s Session) error
	// Clear drops the participant's session; Get then returns the default.
	Clear(ctx context.Context, participantID int64) error
	// Update runs fn on the current session and stores its result. Calls for
	// the same participant are serialized; if fn fails nothing is stored.
	Update(ctx context.Context, participantID int64, fn func(Session) (Session, error)) (Session, error)
	// Len returns the number of stored sessions.
	Len(ctx context.Context) int
}
