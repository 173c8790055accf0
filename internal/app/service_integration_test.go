package service_test

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/varvaraparamon/final-eval-bot/internal/app"
	"github.com/varvaraparamon/final-eval-bot/internal/adapters/repository"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/session"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service backed by a SQLite database", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "eval.db"))
		So(err, ShouldBeNil)
		defer store.Close()
		So(store.Migrate(ctx), ShouldBeNil)

		svc := service.New(store, store, store, service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When an unknown evaluator tries to sign in", func() {
			for _, u := range []string{"/start", "nobody", "whatever"} {
				_, err := svc.Submit(ctx, text(3, u))
				So(err, ShouldBeNil)
			}

			Convey("Then the session is back at the start", func() {
				res, err := svc.Submit(ctx, text(3, "hello"))
				So(err, ShouldBeNil)
				So(res.State, ShouldEqual, session.TagUnauthenticated)
				So(res.Rejected, ShouldBeTrue)
			})
		})

		Convey("When the stats are read", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["evaluationsSaved"], ShouldEqual, int64(0))
		})
	})
}
