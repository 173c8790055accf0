package session

import (
	"slices"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
)

// Tag names a conversation state on the wire and in logs.
type Tag string

// State tags.
const (
	TagUnauthenticated          Tag = "unauthenticated"
	TagAwaitingLogin            Tag = "awaiting_login"
	TagAwaitingPassword         Tag = "awaiting_password"
	TagAwaitingCaseChoice       Tag = "awaiting_case_choice"
	TagAwaitingTeamChoice       Tag = "awaiting_team_choice"
	TagAwaitingProductScore     Tag = "awaiting_product_score"
	TagAwaitingScalabilityScore Tag = "awaiting_scalability_score"
	TagAwaitingUxScore          Tag = "awaiting_ux_score"
	TagAwaitingPresentation     Tag = "awaiting_presentation_score"
	TagAwaitingConfirm          Tag = "awaiting_confirm"
	TagSaved                    Tag = "saved"
)

// State is the closed set of conversation states. Each state carries only
// the fields that are valid in it, so e.g. a team choice cannot exist
// without a case.
type State interface {
	Tag() Tag
	state()
}

// Authenticated is implemented by every state reachable only after login.
type Authenticated interface {
	State
	Identity() model.Identity
}

// Auth is embedded by authenticated states.
type Auth struct {
	User model.Identity
}

// Identity returns the evaluator the state belongs to.
func (a Auth) Identity() model.Identity { return a.User }

// Unauthenticated is the initial state, and the state after logout or a failed login.
type Unauthenticated struct{}

// AwaitingLogin waits for the login to be typed.
type AwaitingLogin struct{}

// AwaitingPassword waits for the password of Login.
type AwaitingPassword struct {
	Login string
}

// AwaitingCaseChoice waits for a case button.
type AwaitingCaseChoice struct {
	Auth
}

// AwaitingTeamChoice waits for a team button of CaseID, showing Page.
type AwaitingTeamChoice struct {
	Auth
	CaseID int64
	Page   int
}

// AwaitingScore waits for the score of the next criterion. Answered holds
// the scores given so far in asking order.
type AwaitingScore struct {
	Auth
	CaseID   int64
	TeamID   int64
	Answered []scoring.Score
}

// AwaitingConfirm holds a complete card until it is saved or edited.
type AwaitingConfirm struct {
	Auth
	CaseID int64
	TeamID int64
	Card   scoring.Card
}

// Saved follows a successful save; the case is kept for "next team".
type Saved struct {
	Auth
	CaseID   int64
	RecordID int64
}

func (Unauthenticated) Tag() Tag    { return TagUnauthenticated }
func (AwaitingLogin) Tag() Tag      { return TagAwaitingLogin }
func (AwaitingPassword) Tag() Tag   { return TagAwaitingPassword }
func (AwaitingCaseChoice) Tag() Tag { return TagAwaitingCaseChoice }
func (AwaitingTeamChoice) Tag() Tag { return TagAwaitingTeamChoice }
func (AwaitingConfirm) Tag() Tag    { return TagAwaitingConfirm }
func (Saved) Tag() Tag              { return TagSaved }

// Tag depends on which criterion is being asked.
func (s AwaitingScore) Tag() Tag {
	switch len(s.Answered) {
	case 0:
		return TagAwaitingProductScore
	case 1:
		return TagAwaitingScalabilityScore
	case 2:
		return TagAwaitingUxScore
	default:
		return TagAwaitingPresentation
	}
}

// Criterion is the criterion being asked, false once all are answered.
func (s AwaitingScore) Criterion() (scoring.Criterion, bool) {
	if len(s.Answered) >= scoring.Count {
		return 0, false
	}
	return scoring.Criteria[len(s.Answered)], true
}

// With returns a copy of s with one more answer; the receiver is not modified.
func (s AwaitingScore) With(score scoring.Score) AwaitingScore {
	next := s
	next.Answered = append(slices.Clip(slices.Clone(s.Answered)), score)
	return next
}

func (Unauthenticated) state()    {}
func (AwaitingLogin) state()      {}
func (AwaitingPassword) state()   {}
func (AwaitingCaseChoice) state() {}
func (AwaitingTeamChoice) state() {}
func (AwaitingScore) state()      {}
func (AwaitingConfirm) state()    {}
func (Saved) state()              {}
