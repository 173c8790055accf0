// Package conversation implements the evaluation wizard: a deterministic
// state machine that maps the current session and one event to the next
// session and the messages to deliver.
package conversation

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/pagination"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/session"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
	"github.com/varvaraparamon/final-eval-bot/pkg/metrics"
)

// Verifier checks credentials. It returns model.ErrIdentityNotFound or
// model.ErrBadPassword for rejected credentials; any other error is a
// storage failure.
type Verifier interface {
	Verify(ctx context.Context, login, password string) (model.Identity, error)
}

// Catalog lists cases and teams in a stable order.
type Catalog interface {
	ListCases(ctx context.Context) ([]model.Case, error)
	ListTeams(ctx context.Context, caseID int64) ([]model.Team, error)
}

// Evaluations appends evaluation rows. Save returns once the row is durable.
type Evaluations interface {
	Save(ctx context.Context, e model.Evaluation) (int64, error)
}

// Outcome is the result of one transition.
type Outcome struct {
	Session session.Session
	Effects []Effect
	// Rejected is set when the authorization guard reset the session.
	Rejected bool
}

// Engine drives conversations. It holds no per-participant state and is
// safe for concurrent use.
type Engine struct {
	verifier    Verifier
	catalog     Catalog
	evaluations Evaluations
	pageSize    int
	log         logger.Logger
}

// NewEngine creates an engine over its three collaborators.
func NewEngine(v Verifier, c Catalog, e Evaluations, opts ...Option) *Engine {
	eng := &Engine{
		verifier:    v,
		catalog:     c,
		evaluations: e,
		pageSize:    pagination.DefaultSize,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// step is the next state plus what to deliver.
type step struct {
	state    session.State
	effects  []Effect
	rejected bool
}

func to(state session.State, effects ...Effect) step {
	return step{state: state, effects: effects}
}

func (s step) then(effects ...Effect) step {
	s.effects = append(s.effects, effects...)
	return s
}

// Handle applies ev to sess. It never fails: collaborator errors are turned
// into messages and a state the participant can continue from.
func (e *Engine) Handle(ctx context.Context, sess session.Session, ev Event) Outcome {
	if sess.State == nil {
		sess.State = session.Unauthenticated{}
	}
	st := e.dispatch(ctx, sess.State, ev)

	next := sess
	next.State = st.state
	e.log.Debug(ctx, "transition",
		logger.Int64("participant", sess.ParticipantID),
		logger.String("from", string(sess.Tag())),
		logger.String("to", string(next.Tag())))

	return Outcome{Session: next, Effects: st.effects, Rejected: st.rejected}
}

func (e *Engine) dispatch(ctx context.Context, cur session.State, ev Event) step {
	switch ev.Action.(type) {
	case Restart:
		return to(session.AwaitingLogin{}, send(Prompt{Text: TextAskLogin, RemoveMenu: true}))
	case Logout:
		return to(session.Unauthenticated{}, send(signedOut(TextLoggedOut)))
	}

	if in, ok := ev.Action.(Input); ok {
		switch s := cur.(type) {
		case session.AwaitingLogin:
			return e.onLogin(in)
		case session.AwaitingPassword:
			return e.onPassword(ctx, s, in)
		}
	}

	auth, ok := authorize(cur)
	if !ok {
		e.log.Info(ctx, "event rejected without identity", logger.String("state", string(cur.Tag())))
		return step{
			state:    session.Unauthenticated{},
			effects:  []Effect{send(signedOut(TextNotSignedIn))},
			rejected: true,
		}
	}
	user := auth.Identity()

	if _, ok := ev.Action.(NewCase); ok {
		return e.offerCases(ctx, user, ev.MessageID)
	}

	var (
		st      step
		handled bool
	)
	switch s := auth.(type) {
	case session.AwaitingCaseChoice:
		st, handled = e.onCaseChoice(ctx, s, ev)
	case session.AwaitingTeamChoice:
		st, handled = e.onTeamChoice(ctx, s, ev)
	case session.AwaitingScore:
		st, handled = e.onScore(s, ev)
	case session.AwaitingConfirm:
		st, handled = e.onConfirm(ctx, s, ev)
	case session.Saved:
		st, handled = e.onSaved(ctx, s, ev)
	}
	if handled {
		return st
	}
	return e.stale(ctx, auth, ev)
}

// authorize is the single identity guard in front of every post-login
// handler. A state only passes when it is an authenticated state carrying
// a live identity.
func authorize(st session.State) (session.Authenticated, bool) {
	a, ok := st.(session.Authenticated)
	if !ok || a.Identity().ID <= 0 {
		return nil, false
	}
	return a, true
}

func (e *Engine) onLogin(in Input) step {
	login := strings.TrimSpace(in.Text)
	if login == "" {
		return to(session.AwaitingLogin{}, send(text(TextAskLogin)))
	}
	return to(session.AwaitingPassword{Login: login}, send(text(TextAskPassword)))
}

func (e *Engine) onPassword(ctx context.Context, s session.AwaitingPassword, in Input) step {
	if s.Login == "" {
		return step{
			state:    session.Unauthenticated{},
			effects:  []Effect{send(signedOut(TextNotSignedIn))},
			rejected: true,
		}
	}
	password := strings.TrimSpace(in.Text)
	if password == "" {
		return to(s, send(text(TextAskPassword)))
	}

	user, err := e.verifier.Verify(ctx, s.Login, password)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrIdentityNotFound):
		metrics.RecordAuthAttempt("not_found")
		e.log.Info(ctx, "login rejected", logger.String("reason", "not_found"))
		return to(session.Unauthenticated{}, send(signedOut(TextUnknownLogin)))
	case errors.Is(err, model.ErrBadPassword):
		metrics.RecordAuthAttempt("bad_password")
		e.log.Info(ctx, "login rejected", logger.String("reason", "bad_password"))
		return to(session.Unauthenticated{}, send(signedOut(TextWrongPassword)))
	default:
		metrics.RecordAuthAttempt("error")
		e.log.Error(ctx, "credential check failed", logger.Error(err))
		return to(s, send(text(TextVerifyFailed)))
	}

	metrics.RecordAuthAttempt("success")
	e.log.Info(ctx, "evaluator signed in", logger.Int64("evaluator", user.ID))
	return e.offerCases(ctx, user, 0).prepend(send(welcome(user.Login)))
}

func (s step) prepend(effects ...Effect) step {
	s.effects = append(slices.Clip(effects), s.effects...)
	return s
}

func (e *Engine) onCaseChoice(ctx context.Context, s session.AwaitingCaseChoice, ev Event) (step, bool) {
	pick, ok := ev.Action.(PickCase)
	if !ok {
		return step{}, false
	}
	return e.offerTeams(ctx, s.User, pick.ID, ev.MessageID), true
}

func (e *Engine) onTeamChoice(ctx context.Context, s session.AwaitingTeamChoice, ev Event) (step, bool) {
	switch a := ev.Action.(type) {
	case TurnPage:
		teams, err := e.catalog.ListTeams(ctx, s.CaseID)
		if err != nil {
			return e.catalogFailed(ctx, s, err), true
		}
		page := a.Page
		if a.Relative {
			page = turn(s.Page, a.Page)
		}
		p := pagination.Paginate(teams, page, e.pageSize)
		next := s
		next.Page = p.Index
		buttons := teamButtons(p)
		return to(next, EditMarkup{
			MessageID: ev.MessageID,
			Buttons:   buttons,
			Fallback:  Prompt{Text: TextNavigation, Buttons: buttons},
		}), true

	case PickTeam:
		teams, err := e.catalog.ListTeams(ctx, s.CaseID)
		if err != nil {
			return e.catalogFailed(ctx, s, err), true
		}
		if !slices.ContainsFunc(teams, func(t model.Team) bool { return t.ID == a.ID }) {
			return step{}, false
		}
		next := session.AwaitingScore{Auth: s.Auth, CaseID: s.CaseID, TeamID: a.ID}
		return to(next, clearMarkup(ev.MessageID)...).then(send(scorePrompt(scoring.ProductValue))), true
	}
	return step{}, false
}

func (e *Engine) onScore(s session.AwaitingScore, ev Event) (step, bool) {
	rate, ok := ev.Action.(Rate)
	if !ok {
		return step{}, false
	}
	want, ok := s.Criterion()
	if !ok || rate.Criterion != want {
		return step{}, false
	}

	next := s.With(rate.Score)
	if c, more := next.Criterion(); more {
		return to(next, clearMarkup(ev.MessageID)...).then(send(scorePrompt(c))), true
	}

	card, err := scoring.NewCard(next.Answered)
	if err != nil {
		// Only reachable with a corrupted answer list; ask again from the start.
		restart := session.AwaitingScore{Auth: s.Auth, CaseID: s.CaseID, TeamID: s.TeamID}
		return to(restart, send(scorePrompt(scoring.ProductValue))), true
	}
	confirm := session.AwaitingConfirm{Auth: s.Auth, CaseID: s.CaseID, TeamID: s.TeamID, Card: card}
	return to(confirm, clearMarkup(ev.MessageID)...).then(send(summary(card))), true
}

func (e *Engine) onConfirm(ctx context.Context, s session.AwaitingConfirm, ev Event) (step, bool) {
	switch ev.Action.(type) {
	case Save:
		rec := model.NewEvaluation(s.CaseID, s.TeamID, s.User.ID, s.Card)
		id, err := e.evaluations.Save(ctx, rec)
		if err != nil {
			metrics.RecordEvaluationSaveError()
			e.log.Error(ctx, "save evaluation",
				logger.Int64("evaluator", s.User.ID),
				logger.Int64("team", s.TeamID),
				logger.Error(err))
			return to(s, send(Prompt{Text: TextSaveFailed, Buttons: confirmButtons()})), true
		}
		metrics.RecordEvaluationSaved()
		e.log.Info(ctx, "evaluation saved",
			logger.Int64("id", id),
			logger.Int64("case", s.CaseID),
			logger.Int64("team", s.TeamID))
		saved := session.Saved{Auth: s.Auth, CaseID: s.CaseID, RecordID: id}
		return to(saved, clearMarkup(ev.MessageID)...).then(send(savedPrompt())), true

	case Edit:
		again := session.AwaitingScore{Auth: s.Auth, CaseID: s.CaseID, TeamID: s.TeamID}
		return to(again, clearMarkup(ev.MessageID)...).then(send(scorePrompt(scoring.ProductValue))), true
	}
	return step{}, false
}

func (e *Engine) onSaved(ctx context.Context, s session.Saved, ev Event) (step, bool) {
	if _, ok := ev.Action.(NextTeam); !ok {
		return step{}, false
	}
	return e.offerTeams(ctx, s.User, s.CaseID, ev.MessageID), true
}

// offerCases moves to the case chooser. Case, team and scores of any
// earlier run are dropped.
func (e *Engine) offerCases(ctx context.Context, user model.Identity, messageID int64) step {
	st := session.AwaitingCaseChoice{Auth: session.Auth{User: user}}
	cases, err := e.catalog.ListCases(ctx)
	if err != nil {
		e.log.Error(ctx, "list cases", logger.Error(err))
		return to(st, send(text(TextCatalogFailed)))
	}
	if len(cases) == 0 {
		return to(st, clearMarkup(messageID)...).then(send(text(TextNoCases)))
	}
	return to(st, clearMarkup(messageID)...).then(send(caseChooser(cases)))
}

// offerTeams shows the first page of a case's teams. An empty case sends
// the participant back to the case chooser.
func (e *Engine) offerTeams(ctx context.Context, user model.Identity, caseID, messageID int64) step {
	teams, err := e.catalog.ListTeams(ctx, caseID)
	if err != nil {
		e.log.Error(ctx, "list teams", logger.Int64("case", caseID), logger.Error(err))
		return to(session.AwaitingCaseChoice{Auth: session.Auth{User: user}}, send(text(TextCatalogFailed)))
	}
	if len(teams) == 0 {
		return e.offerCases(ctx, user, messageID).prepend(send(text(TextNoTeams)))
	}
	st := session.AwaitingTeamChoice{Auth: session.Auth{User: user}, CaseID: caseID}
	p := pagination.Paginate(teams, 0, e.pageSize)
	return to(st, clearMarkup(messageID)...).then(send(Prompt{Text: TextChooseTeam, Buttons: teamButtons(p)}))
}

func (e *Engine) catalogFailed(ctx context.Context, s session.State, err error) step {
	e.log.Error(ctx, "catalog query", logger.String("state", string(s.Tag())), logger.Error(err))
	return to(s, send(text(TextCatalogFailed)))
}

// stale answers an event the current state does not accept: the session is
// kept and the current step is asked again.
func (e *Engine) stale(ctx context.Context, cur session.Authenticated, ev Event) step {
	notice := TextStale
	if _, typed := ev.Action.(Input); typed {
		notice = TextUnexpectedInput
	}
	e.log.Debug(ctx, "stale event", logger.String("state", string(cur.Tag())))
	return to(cur, send(text(notice))).then(e.reprompt(ctx, cur)...)
}

func (e *Engine) reprompt(ctx context.Context, cur session.Authenticated) []Effect {
	switch s := cur.(type) {
	case session.AwaitingCaseChoice:
		cases, err := e.catalog.ListCases(ctx)
		if err != nil || len(cases) == 0 {
			return nil
		}
		return []Effect{send(caseChooser(cases))}
	case session.AwaitingTeamChoice:
		teams, err := e.catalog.ListTeams(ctx, s.CaseID)
		if err != nil {
			return nil
		}
		p := pagination.Paginate(teams, s.Page, e.pageSize)
		return []Effect{send(Prompt{Text: TextChooseTeam, Buttons: teamButtons(p)})}
	case session.AwaitingScore:
		if c, ok := s.Criterion(); ok {
			return []Effect{send(scorePrompt(c))}
		}
	case session.AwaitingConfirm:
		return []Effect{send(summary(s.Card))}
	case session.Saved:
		return []Effect{send(savedPrompt())}
	}
	return nil
}

// turn moves page by delta, clamped to [0, math.MaxInt].
func turn(page, delta int) int {
	if delta > 0 && page > math.MaxInt-delta {
		return math.MaxInt
	}
	return max(page+delta, 0)
}

func clearMarkup(messageID int64) []Effect {
	if messageID <= 0 {
		return nil
	}
	return []Effect{ClearMarkup{MessageID: messageID}}
}
