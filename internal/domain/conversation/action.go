package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
)

// Control tokens and typed commands.
const (
	TokenSave     = "save"
	TokenEdit     = "edit"
	TokenNextTeam = "next_team"
	TokenNewCase  = "case_done"
	TokenLogout   = "logout"

	tokenNewCaseAlias = "new_case"

	CommandStart  = "/start"
	CommandLogout = "/logout"

	MenuEvaluate = "Evaluate a team"
	MenuSwitch   = "Switch account"
)

// Action is what the participant asked for, decoded from text or a token.
type Action interface {
	action()
}

type (
	// Restart clears the session and asks for a login.
	Restart struct{}
	// Logout clears the session.
	Logout struct{}
	// NewCase goes back to the case chooser.
	NewCase struct{}
	// Input is free text: a login, a password, or noise.
	Input struct{ Text string }
	// PickCase selects a case.
	PickCase struct{ ID int64 }
	// PickTeam selects a team of the current case.
	PickTeam struct{ ID int64 }
	// TurnPage moves the team chooser. Relative pages are offsets from the
	// current one.
	TurnPage struct {
		Page     int
		Relative bool
	}
	// Rate gives a score to one criterion.
	Rate struct {
		Criterion scoring.Criterion
		Score     scoring.Score
	}
	// Save persists the confirmed card.
	Save struct{}
	// Edit discards the four scores and asks them again.
	Edit struct{}
	// NextTeam evaluates another team of the same case.
	NextTeam struct{}
)

func (Restart) action()  {}
func (Logout) action()   {}
func (NewCase) action()  {}
func (Input) action()    {}
func (PickCase) action() {}
func (PickTeam) action() {}
func (TurnPage) action() {}
func (Rate) action()     {}
func (Save) action()     {}
func (Edit) action()     {}
func (NextTeam) action() {}

// Event is one decoded update. MessageID is the message whose button was
// pressed, zero for text.
type Event struct {
	Action    Action
	MessageID int64
}

// ParseText maps typed text to an action. Text never fails to parse.
func ParseText(text string) Action {
	switch strings.TrimSpace(text) {
	case CommandStart:
		return Restart{}
	case CommandLogout, MenuSwitch:
		return Logout{}
	case MenuEvaluate:
		return NewCase{}
	}
	return Input{Text: text}
}

// ParseChoice decodes a callback token.
func ParseChoice(token string) (Action, error) {
	switch token {
	case TokenSave:
		return Save{}, nil
	case TokenEdit:
		return Edit{}, nil
	case TokenNextTeam:
		return NextTeam{}, nil
	case TokenNewCase, tokenNewCaseAlias:
		return NewCase{}, nil
	case TokenLogout:
		return Logout{}, nil
	}

	prefix, rest, ok := strings.Cut(token, "_")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}

	switch prefix {
	case "case":
		id, err := parseID(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
		}
		return PickCase{ID: id}, nil
	case "team":
		id, err := parseID(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
		}
		return PickTeam{ID: id}, nil
	case "page":
		return parsePage(token, rest)
	}

	criterion, ok := scoring.ByPrefix(prefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	score, err := scoring.ParseToken(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownToken, err)
	}
	return Rate{Criterion: criterion, Score: score}, nil
}

// Decode turns an inbound update into an event.
func Decode(u model.Update) (Event, error) {
	if u.IsChoice() {
		a, err := ParseChoice(u.Choice)
		if err != nil {
			return Event{}, err
		}
		return Event{Action: a, MessageID: u.MessageID}, nil
	}
	if u.Text == "" {
		return Event{}, ErrEmptyUpdate
	}
	return Event{Action: ParseText(u.Text)}, nil
}

func parsePage(token, rest string) (Action, error) {
	if rest == "+1" || rest == "-1" {
		n, _ := strconv.Atoi(rest)
		return TurnPage{Page: n, Relative: true}, nil
	}
	if !isDigits(rest) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	return TurnPage{Page: n}, nil
}

func parseID(s string) (int64, error) {
	if !isDigits(s) {
		return 0, strconv.ErrSyntax
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CaseToken is the callback token selecting a case.
func CaseToken(id int64) string { return "case_" + strconv.FormatInt(id, 10) }

// TeamToken is the callback token selecting a team.
func TeamToken(id int64) string { return "team_" + strconv.FormatInt(id, 10) }

// PageToken is the callback token jumping to an absolute page.
func PageToken(page int) string { return "page_" + strconv.Itoa(page) }

// RateToken is the callback token giving score s to criterion c.
func RateToken(c scoring.Criterion, s scoring.Score) string {
	return c.Prefix() + "_" + s.Token()
}
