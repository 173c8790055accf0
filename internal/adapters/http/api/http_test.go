package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/delivery"
	"github.com/varvaraparamon/final-eval-bot/internal/adapters/http/api"
	service "github.com/varvaraparamon/final-eval-bot/internal/app"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/conversation"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/session"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

const botToken = "t0ken"

// mockDeps records calls and returns a scripted Submit result.
type mockDeps struct {
	mu        sync.Mutex
	seen      map[string]bool
	submitted []model.Update
	result    service.Result
	err       error
}

func (m *mockDeps) SeenAndRecord(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeps) Unrecord(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDeps) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen))
}

func (m *mockDeps) Submit(_ context.Context, u model.Update) (service.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, u)
	return m.result, m.err
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any {
	return map[string]any{"started": true, "workerCount": 4}
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	opts = append([]api.Option{api.WithBotToken(botToken), api.WithLogger(logger.Nop())}, opts...)
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, opts...).Register(context.Background(), mux)
	return mux
}

func post(mux http.Handler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/updates", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(api.BotTokenHeader, token)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

type response struct {
	Status    string             `json:"status"`
	Duplicate bool               `json:"duplicate"`
	RequestID string             `json:"request_id"`
	State     string             `json:"state"`
	Rejected  bool               `json:"rejected"`
	Messages  []delivery.Message `json:"messages"`
	Code      string             `json:"code"`
	Message   string             `json:"message"`
}

func decode(w *httptest.ResponseRecorder) response {
	var r response
	So(json.Unmarshal(w.Body.Bytes(), &r), ShouldBeNil)
	return r
}

func TestPostUpdate(t *testing.T) {
	Convey("Given the webhook endpoint", t, func() {
		deps := &mockDeps{result: service.Result{
			State:    session.TagAwaitingPassword,
			Messages: []delivery.Message{{Op: delivery.OpSend, Text: conversation.TextAskPassword}},
		}}
		mux := newMux(deps)

		Convey("A valid text update is processed", func() {
			w := post(mux, botToken, `{"update_id":"u1","participant_id":42,"text":"alice"}`)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
			r := decode(w)
			So(r.Status, ShouldEqual, "processed")
			So(r.Duplicate, ShouldBeFalse)
			So(r.State, ShouldEqual, string(session.TagAwaitingPassword))
			So(r.Messages, ShouldHaveLength, 1)
			So(r.Messages[0].Text, ShouldEqual, conversation.TextAskPassword)
			So(deps.submitted, ShouldHaveLength, 1)
			So(deps.submitted[0].ParticipantID, ShouldEqual, 42)
			So(deps.submitted[0].Text, ShouldEqual, "alice")
			So(deps.submitted[0].ReceivedAt.IsZero(), ShouldBeFalse)
		})

		Convey("A redelivered update id is acknowledged as a duplicate", func() {
			body := `{"update_id":"u2","participant_id":42,"choice":"save","message_id":3}`
			So(post(mux, botToken, body).Code, ShouldEqual, http.StatusOK)

			w := post(mux, botToken, body)
			So(w.Code, ShouldEqual, http.StatusOK)
			r := decode(w)
			So(r.Status, ShouldEqual, "duplicate")
			So(r.Duplicate, ShouldBeTrue)
			So(deps.submitted, ShouldHaveLength, 1)
		})

		Convey("A wrong or missing bot token is refused", func() {
			So(post(mux, "nope", `{"update_id":"u3","participant_id":1,"text":"x"}`).Code, ShouldEqual, http.StatusUnauthorized)
			So(post(mux, "", `{"update_id":"u3","participant_id":1,"text":"x"}`).Code, ShouldEqual, http.StatusUnauthorized)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("Malformed bodies are bad requests", func() {
			for _, body := range []string{
				`not json`,
				`{"participant_id":1,"text":"x"}`,
				`{"update_id":"a","text":"x"}`,
				`{"update_id":"a","participant_id":1}`,
				`{"update_id":"a","participant_id":1,"text":"x","choice":"save"}`,
				`{"update_id":"a","participant_id":1,"text":"x","extra":true}`,
				`{"update_id":"a","participant_id":1,"choice":"save","message_id":-1}`,
			} {
				w := post(mux, botToken, body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w).Code, ShouldEqual, "bad_request")
			}
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("Only POST is routed", func() {
			req := httptest.NewRequest(http.MethodGet, "/updates", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostUpdateFailures(t *testing.T) {
	Convey("Given a Submit that fails", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{conversation.ErrUnknownToken, http.StatusBadRequest, "unknown_token"},
			{service.ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
			{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
			{service.ErrStopped, http.StatusServiceUnavailable, "unavailable"},
			{errors.New("boom"), http.StatusInternalServerError, "internal"},
		}
		for _, c := range cases {
			deps := &mockDeps{err: c.err}
			mux := newMux(deps)

			w := post(mux, botToken, `{"update_id":"u9","participant_id":5,"choice":"prod_1"}`)
			So(w.Code, ShouldEqual, c.status)
			So(decode(w).Code, ShouldEqual, c.code)

			// the id is forgotten so the channel may redeliver it
			So(deps.Size(), ShouldEqual, 0)
		}
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given the read endpoints", t, func() {
		mux := newMux(&mockDeps{})

		Convey("/stats returns the provider statistics", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			var got map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got["started"], ShouldEqual, true)
			So(got["workerCount"], ShouldEqual, float64(4))
		})

		Convey("/healthz serves metrics", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "# HELP")
		})
	})
}

// backend is an in-memory Verifier, Catalog and Evaluations.
type backend struct{}

func (backend) Verify(_ context.Context, login, pw string) (model.Identity, error) {
	if login == "alice" && pw == "secret" {
		return model.Identity{ID: 1, Login: login}, nil
	}
	return model.Identity{}, model.ErrBadPassword
}

func (backend) ListCases(context.Context) ([]model.Case, error) {
	return []model.Case{{ID: 1, Title: "Retail"}}, nil
}

func (backend) ListTeams(_ context.Context, caseID int64) ([]model.Team, error) {
	return []model.Team{{ID: 3, Name: "Gamma", CaseID: &caseID}}, nil
}

func (backend) Save(context.Context, model.Evaluation) (int64, error) { return 1, nil }

func TestWebhookWithService(t *testing.T) {
	Convey("Given the webhook in front of a running service", t, func() {
		svc := service.New(backend{}, backend{}, backend{},
			service.WithWorkerCount(2), service.WithLogger(logger.Nop()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = svc.Stop(ctx)
		}()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, api.WithBotToken(botToken), api.WithLogger(logger.Nop())).
			Register(context.Background(), mux)

		steps := []struct {
			body  string
			state session.Tag
		}{
			{`{"update_id":"s1","participant_id":8,"text":"/start"}`, session.TagAwaitingLogin},
			{`{"update_id":"s2","participant_id":8,"text":"alice"}`, session.TagAwaitingPassword},
			{`{"update_id":"s3","participant_id":8,"text":"secret"}`, session.TagAwaitingCaseChoice},
			{`{"update_id":"s4","participant_id":8,"choice":"case_1","message_id":10}`, session.TagAwaitingTeamChoice},
			{`{"update_id":"s5","participant_id":8,"choice":"team_3","message_id":11}`, session.TagAwaitingProductScore},
			{`{"update_id":"s6","participant_id":8,"choice":"prod_1","message_id":12}`, session.TagAwaitingScalabilityScore},
			{`{"update_id":"s7","participant_id":8,"choice":"scal_05","message_id":13}`, session.TagAwaitingUxScore},
			{`{"update_id":"s8","participant_id":8,"choice":"ux_0","message_id":14}`, session.TagAwaitingPresentation},
			{`{"update_id":"s9","participant_id":8,"choice":"pres_1","message_id":15}`, session.TagAwaitingConfirm},
			{`{"update_id":"s10","participant_id":8,"choice":"save","message_id":16}`, session.TagSaved},
		}
		for _, s := range steps {
			w := post(mux, botToken, s.body)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w).State, ShouldEqual, string(s.state))
		}

		Convey("An unknown token never reaches the conversation", func() {
			w := post(mux, botToken, `{"update_id":"s11","participant_id":8,"choice":"prod_7"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
