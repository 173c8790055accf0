package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/varvaraparamon/final-eval-bot/internal/app"
	"github.com/varvaraparamon/final-eval-bot/internal/adapters/delivery"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/conversation"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/session"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type memoryBackend struct {
	mu    sync.Mutex
	saved []model.Evaluation
	slow  chan struct{}
}

func (m *memoryBackend) Verify(_ context.Context, login, pw string) (model.Identity, error) {
	if login != "alice" {
		return model.Identity{}, model.ErrIdentityNotFound
	}
	if pw != "secret" {
		return model.Identity{}, model.ErrBadPassword
	}
	return model.Identity{ID: 7, Login: login}, nil
}

func (m *memoryBackend) ListCases(context.Context) ([]model.Case, error) {
	return []model.Case{{ID: 1, Title: "Fintech"}}, nil
}

func (m *memoryBackend) ListTeams(_ context.Context, caseID int64) ([]model.Team, error) {
	if m.slow != nil {
		<-m.slow
	}
	return []model.Team{{ID: 11, Name: "Alpha", CaseID: &caseID}}, nil
}

func (m *memoryBackend) Save(_ context.Context, e model.Evaluation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, e)
	return int64(len(m.saved)), nil
}

func (m *memoryBackend) CountEvaluations(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.saved)), nil
}

var updateSeq sync.Mutex
var nextUpdate int

func text(pid int64, s string) model.Update {
	return model.Update{ID: newID(), ParticipantID: pid, Text: s}
}

func choice(pid int64, tok string) model.Update {
	return model.Update{ID: newID(), ParticipantID: pid, Choice: tok, MessageID: 50}
}

func newID() string {
	updateSeq.Lock()
	defer updateSeq.Unlock()
	nextUpdate++
	return fmt.Sprintf("u-%d", nextUpdate)
}

func startService(backend *memoryBackend, opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithWorkerCount(2), service.WithQueueSize(16)}, opts...)
	svc := service.New(backend, backend, backend, opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service", t, func() {
		b := &memoryBackend{}
		svc := service.New(b, b, b,
			service.WithWorkerCount(8),
			service.WithQueueSize(500),
			service.WithDedupeSize(1000),
			service.WithShardCount(4),
			service.WithPageSize(5),
		)

		Convey("Then it reports its configuration before starting", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["pageSize"], ShouldEqual, 5)
			So(svc.Size(), ShouldEqual, 0)
		})

		Convey("Then submitting fails until it is started", func() {
			_, err := svc.Submit(context.Background(), text(1, "/start"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		b := &memoryBackend{}
		svc := startService(b)
		defer svc.Stop(context.Background())
		ctx := context.Background()

		Convey("When an evaluator completes the wizard", func() {
			steps := []struct {
				u    model.Update
				want session.Tag
			}{
				{text(42, "/start"), session.TagAwaitingLogin},
				{text(42, "alice"), session.TagAwaitingPassword},
				{text(42, "secret"), session.TagAwaitingCaseChoice},
				{choice(42, "case_1"), session.TagAwaitingTeamChoice},
				{choice(42, "team_11"), session.TagAwaitingProductScore},
				{choice(42, "prod_1"), session.TagAwaitingScalabilityScore},
				{choice(42, "scal_05"), session.TagAwaitingUxScore},
				{choice(42, "ux_0"), session.TagAwaitingPresentation},
				{choice(42, "pres_1"), session.TagAwaitingConfirm},
				{choice(42, "save"), session.TagSaved},
			}
			var last service.Result
			for _, st := range steps {
				res, err := svc.Submit(ctx, st.u)
				So(err, ShouldBeNil)
				So(res.State, ShouldEqual, st.want)
				last = res
			}

			Convey("Then one evaluation is saved and the outbox carries the next choices", func() {
				So(len(b.saved), ShouldEqual, 1)
				So(last.Messages[0], ShouldResemble, delivery.Message{Op: delivery.OpClearMarkup, MessageID: 50})
				So(last.Messages[1].Text, ShouldEqual, conversation.TextSaved)

				stats := svc.GetStats()
				So(stats["sessions"], ShouldEqual, 1)
				So(stats["evaluationsSaved"], ShouldEqual, int64(1))
			})

			Convey("Then logging out frees the session slot", func() {
				res, err := svc.Submit(ctx, choice(42, "logout"))
				So(err, ShouldBeNil)
				So(res.State, ShouldEqual, session.TagUnauthenticated)
				So(svc.GetStats()["sessions"], ShouldEqual, 0)
			})
		})

		Convey("When a button arrives before sign-in", func() {
			res, err := svc.Submit(ctx, choice(5, "save"))
			So(err, ShouldBeNil)
			So(res.Rejected, ShouldBeTrue)
			So(res.State, ShouldEqual, session.TagUnauthenticated)
		})

		Convey("When the token is not part of the protocol", func() {
			_, err := svc.Submit(ctx, choice(5, "drop_table"))
			So(errors.Is(err, conversation.ErrUnknownToken), ShouldBeTrue)
		})

		Convey("When the participant is missing", func() {
			_, err := svc.Submit(ctx, text(0, "/start"))
			So(errors.Is(err, session.ErrParticipantRequired), ShouldBeTrue)
		})

		Convey("When an update id is delivered twice", func() {
			So(svc.SeenAndRecord(ctx, "dup-1"), ShouldBeFalse)
			So(svc.SeenAndRecord(ctx, "dup-1"), ShouldBeTrue)
			svc.Unrecord(ctx, "dup-1")
			So(svc.SeenAndRecord(ctx, "dup-1"), ShouldBeFalse)
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given many participants evaluating at once", t, func() {
		b := &memoryBackend{}
		svc := startService(b, service.WithWorkerCount(4), service.WithQueueSize(64))
		defer svc.Stop(context.Background())
		ctx := context.Background()

		script := []func(pid int64) model.Update{
			func(pid int64) model.Update { return text(pid, "/start") },
			func(pid int64) model.Update { return text(pid, "alice") },
			func(pid int64) model.Update { return text(pid, "secret") },
			func(pid int64) model.Update { return choice(pid, "case_1") },
			func(pid int64) model.Update { return choice(pid, "team_11") },
			func(pid int64) model.Update { return choice(pid, "prod_1") },
			func(pid int64) model.Update { return choice(pid, "scal_1") },
			func(pid int64) model.Update { return choice(pid, "ux_1") },
			func(pid int64) model.Update { return choice(pid, "pres_1") },
			func(pid int64) model.Update { return choice(pid, "save") },
		}

		const participants = 20
		var wg sync.WaitGroup
		errs := make(chan error, participants)
		for p := 1; p <= participants; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for _, next := range script {
					if _, err := svc.Submit(ctx, next(int64(p))); err != nil {
						errs <- err
						return
					}
				}
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			So(err, ShouldBeNil)
		}
		So(len(b.saved), ShouldEqual, participants)
	})
}

func TestService_Timeout(t *testing.T) {
	Convey("Given a catalog that hangs", t, func() {
		b := &memoryBackend{slow: make(chan struct{})}
		svc := startService(b, service.WithWorkerCount(1))
		ctx := context.Background()

		_, _ = svc.Submit(ctx, text(9, "/start"))
		_, _ = svc.Submit(ctx, text(9, "alice"))
		_, _ = svc.Submit(ctx, text(9, "secret"))

		Convey("When the caller stops waiting", func() {
			tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()
			_, err := svc.Submit(tctx, choice(9, "case_1"))
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)

			close(b.slow)
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}
