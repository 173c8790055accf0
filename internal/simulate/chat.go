package simulate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/delivery"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/conversation"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/session"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

// maxPages bounds team chooser paging.
const maxPages = 1000

var scoreStates = [scoring.Count]session.Tag{
	session.TagAwaitingScalabilityScore,
	session.TagAwaitingUxScore,
	session.TagAwaitingPresentation,
	session.TagAwaitingConfirm,
}

// chat plays the chat client for one evaluator: it numbers the messages the
// bot sends and remembers which message carries which button.
type chat struct {
	client    *Client
	ev        Evaluator
	redeliver bool
	log       logger.Logger

	lastMessage int64
	buttons     map[string]int64

	updates    int
	duplicates int
}

func newChat(client *Client, ev Evaluator, cfg Config, log logger.Logger) *chat {
	return &chat{
		client:    client,
		ev:        ev,
		redeliver: cfg.Redeliver,
		log:       log,
		buttons:   make(map[string]int64),
	}
}

// run drives login, case and team choice, the four scores, save and logout.
func (c *chat) run(ctx context.Context) error {
	card, err := c.ev.Card()
	if err != nil {
		return err
	}

	steps := []struct {
		text string
		want session.Tag
	}{
		{conversation.CommandStart, session.TagAwaitingLogin},
		{c.ev.Login, session.TagAwaitingPassword},
		{c.ev.Password, session.TagAwaitingCaseChoice},
	}
	for _, s := range steps {
		if err := c.say(ctx, s.text, s.want); err != nil {
			return err
		}
	}

	if err := c.press(ctx, conversation.CaseToken(c.ev.CaseID), session.TagAwaitingTeamChoice); err != nil {
		return err
	}
	if err := c.findTeam(ctx); err != nil {
		return err
	}
	for i, cr := range scoring.Criteria {
		if err := c.press(ctx, conversation.RateToken(cr, card[cr]), scoreStates[i]); err != nil {
			return err
		}
	}
	if err := c.press(ctx, conversation.TokenSave, session.TagSaved); err != nil {
		return err
	}
	return c.press(ctx, conversation.TokenLogout, session.TagUnauthenticated)
}

// findTeam pages forward until the team's button is offered.
func (c *chat) findTeam(ctx context.Context) error {
	team := conversation.TeamToken(c.ev.TeamID)
	for page := 0; page < maxPages; page++ {
		if _, ok := c.buttons[team]; ok {
			return c.press(ctx, team, session.TagAwaitingProductScore)
		}
		next := conversation.PageToken(page + 1)
		if _, ok := c.buttons[next]; !ok {
			return fmt.Errorf("%w: team %d not in case %d", ErrNoButton, c.ev.TeamID, c.ev.CaseID)
		}
		if err := c.press(ctx, next, session.TagAwaitingTeamChoice); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: team %d beyond %d pages", ErrNoButton, c.ev.TeamID, maxPages)
}

func (c *chat) say(ctx context.Context, text string, want session.Tag) error {
	return c.send(ctx, Update{Text: text}, want)
}

func (c *chat) press(ctx context.Context, token string, want session.Tag) error {
	id, ok := c.buttons[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoButton, token)
	}
	return c.send(ctx, Update{Choice: token, MessageID: id}, want)
}

func (c *chat) send(ctx context.Context, u Update, want session.Tag) error {
	u.UpdateID = uuid.NewString()
	u.ParticipantID = c.ev.ParticipantID

	r, err := c.client.Post(ctx, u)
	if err != nil {
		return fmt.Errorf("%s: %w", describe(u), err)
	}
	c.updates++
	if r.State != string(want) {
		return fmt.Errorf("%w: %s: state %q, want %q", ErrUnexpected, describe(u), r.State, want)
	}
	c.record(r.Messages)
	c.log.Debug(ctx, "step done",
		logger.String("login", c.ev.Login),
		logger.String("step", describe(u)),
		logger.String("state", r.State))

	if !c.redeliver {
		return nil
	}
	dup, err := c.client.Post(ctx, u)
	if err != nil {
		return fmt.Errorf("redeliver %s: %w", describe(u), err)
	}
	if !dup.Duplicate {
		return fmt.Errorf("%w: redelivered %s was processed again", ErrUnexpected, describe(u))
	}
	c.duplicates++
	return nil
}

// record assigns ids to sent messages and indexes their buttons.
func (c *chat) record(msgs []delivery.Message) {
	for _, m := range msgs {
		var id int64
		switch m.Op {
		case delivery.OpSend:
			c.lastMessage++
			id = c.lastMessage
		case delivery.OpEditMarkup:
			id = m.MessageID
		default:
			continue
		}
		for _, row := range m.Buttons {
			for _, b := range row {
				c.buttons[b.Token] = id
			}
		}
	}
}

func describe(u Update) string {
	if u.Choice != "" {
		return "press " + u.Choice
	}
	if u.Text == "" {
		return "empty text"
	}
	return "text"
}
