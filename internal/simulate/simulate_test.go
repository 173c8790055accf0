package simulate_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/http/api"
	service "github.com/varvaraparamon/final-eval-bot/internal/app"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
	"github.com/varvaraparamon/final-eval-bot/internal/simulate"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

const token = "sim-token"

// backend accepts "<login>" / "pw-<login>" and holds one case of 25 teams.
type backend struct {
	mu    sync.Mutex
	saved []model.Evaluation
}

func (b *backend) Verify(_ context.Context, login, pw string) (model.Identity, error) {
	if pw != "pw-"+login {
		return model.Identity{}, model.ErrBadPassword
	}
	return model.Identity{ID: int64(len(login)), Login: login}, nil
}

func (b *backend) ListCases(context.Context) ([]model.Case, error) {
	return []model.Case{{ID: 1, Title: "Logistics"}}, nil
}

func (b *backend) ListTeams(_ context.Context, caseID int64) ([]model.Team, error) {
	teams := make([]model.Team, 0, 25)
	for i := int64(1); i <= 25; i++ {
		teams = append(teams, model.Team{ID: i, Name: fmt.Sprintf("Team %d", i), CaseID: &caseID})
	}
	return teams, nil
}

func (b *backend) Save(_ context.Context, e model.Evaluation) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, e)
	return int64(len(b.saved)), nil
}

func startServer(b *backend) (*httptest.Server, func()) {
	svc := service.New(b, b, b, service.WithWorkerCount(4), service.WithLogger(logger.Nop()))
	So(svc.Start(context.Background()), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithBotToken(token), api.WithLogger(logger.Nop())).
		Register(context.Background(), mux)
	srv := httptest.NewServer(mux)

	return srv, func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	}
}

func evaluator(pid int64, login string, team int64) simulate.Evaluator {
	return simulate.Evaluator{
		ParticipantID: pid,
		Login:         login,
		Password:      "pw-" + login,
		CaseID:        1,
		TeamID:        team,
		Scores:        map[string]float64{"prod": 1, "scal": 0.5, "ux": 0, "pres": 1},
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running bot", t, func() {
		b := &backend{}
		srv, stop := startServer(b)
		defer stop()

		cfg := simulate.Config{BaseURL: srv.URL, Token: token, Concurrency: 2, Redeliver: true}

		Convey("When every evaluator follows the script", func() {
			sc := &simulate.Scenario{Evaluators: []simulate.Evaluator{
				evaluator(1, "ann", 3),
				evaluator(2, "bob", 14),
				evaluator(3, "cyd", 25),
			}}
			stats, err := simulate.Run(context.Background(), cfg, sc)

			Convey("Then all conversations complete and every evaluation is saved", func() {
				So(err, ShouldBeNil)
				So(stats.Completed, ShouldEqual, 3)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Duplicates, ShouldEqual, stats.Updates)
				So(b.saved, ShouldHaveLength, 3)

				teams := map[int64]model.Evaluation{}
				for _, e := range b.saved {
					teams[e.TeamID] = e
				}
				So(teams, ShouldContainKey, int64(25))
				So(teams[25].Scalability, ShouldEqual, scoring.Half)
				So(teams[25].UX, ShouldEqual, scoring.Zero)

				var out bytes.Buffer
				simulate.Report(&out, stats)
				So(out.String(), ShouldContainSubstring, "Completed:  3")
			})
		})

		Convey("When one evaluator has the wrong password", func() {
			bad := evaluator(4, "dan", 2)
			bad.Password = "nope"
			sc := &simulate.Scenario{Evaluators: []simulate.Evaluator{evaluator(5, "eve", 2), bad}}

			stats, err := simulate.Run(context.Background(), cfg, sc)

			Convey("Then only that conversation fails", func() {
				So(errors.Is(err, simulate.ErrRunsFailed), ShouldBeTrue)
				So(stats.Completed, ShouldEqual, 1)
				So(stats.Failures, ShouldHaveLength, 1)
				So(stats.Failures[0].Login, ShouldEqual, "dan")
				So(errors.Is(stats.Failures[0].Err, simulate.ErrUnexpected), ShouldBeTrue)
			})
		})

		Convey("When the team is not in the case", func() {
			sc := &simulate.Scenario{Evaluators: []simulate.Evaluator{evaluator(6, "fay", 99)}}
			stats, err := simulate.Run(context.Background(), cfg, sc)

			So(errors.Is(err, simulate.ErrRunsFailed), ShouldBeTrue)
			So(errors.Is(stats.Failures[0].Err, simulate.ErrNoButton), ShouldBeTrue)
		})

		Convey("When the token is wrong", func() {
			cfg.Token = "other"
			sc := &simulate.Scenario{Evaluators: []simulate.Evaluator{evaluator(7, "gus", 1)}}
			stats, err := simulate.Run(context.Background(), cfg, sc)

			So(errors.Is(err, simulate.ErrRunsFailed), ShouldBeTrue)
			So(stats.Failures[0].Err.Error(), ShouldContainSubstring, "status 401")
		})
	})
}

func TestParseScenario(t *testing.T) {
	Convey("Given scenario documents", t, func() {
		Convey("A complete scenario parses", func() {
			sc, err := simulate.ParseScenario([]byte(`
evaluators:
  - participant_id: 10
    login: ann
    password: secret
    case_id: 1
    team_id: 2
    scores: {prod: 1, scal: 0.5, ux: 0, pres: 1}
`))
			So(err, ShouldBeNil)
			So(sc.Evaluators, ShouldHaveLength, 1)
			card, err := sc.Evaluators[0].Card()
			So(err, ShouldBeNil)
			So(card, ShouldEqual, scoring.Card{scoring.Full, scoring.Half, scoring.Zero, scoring.Full})
		})

		Convey("Invalid scenarios are refused", func() {
			for _, doc := range []string{
				`evaluators: []`,
				`evaluators: [{login: a, password: p, case_id: 1, team_id: 1, scores: {prod: 1, scal: 1, ux: 1, pres: 1}}]`,
				`evaluators: [{participant_id: 1, login: a, password: p, case_id: 1, team_id: 1, scores: {prod: 1}}]`,
				`evaluators: [{participant_id: 1, login: a, password: p, case_id: 1, team_id: 1, scores: {prod: 2, scal: 1, ux: 1, pres: 1}}]`,
				`evaluators: [{participant_id: 1, login: a, password: p, case_id: 1, team_id: 1, scores: {design: 1, scal: 1, ux: 1, pres: 1}}]`,
				`evaluators: [{participant_id: 1, login: a, password: p, case_id: 0, team_id: 1, scores: {prod: 1, scal: 1, ux: 1, pres: 1}}]`,
				`evaluators: [
				  {participant_id: 1, login: a, password: p, case_id: 1, team_id: 1, scores: {prod: 1, scal: 1, ux: 1, pres: 1}},
				  {participant_id: 1, login: b, password: p, case_id: 1, team_id: 1, scores: {prod: 1, scal: 1, ux: 1, pres: 1}}]`,
				`evaluators: [`,
			} {
				_, err := simulate.ParseScenario([]byte(doc))
				So(errors.Is(err, simulate.ErrScenario), ShouldBeTrue)
			}
		})
	})
}
