package model_test

import (
	"errors"
	"testing"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewEvaluation(t *testing.T) {
	convey.Convey("Given a complete score card", t, func() {
		card := scoring.Card{scoring.Full, scoring.Half, scoring.Zero, scoring.Full}

		convey.Convey("When building an evaluation", func() {
			e := model.NewEvaluation(1, 2, 3, card)

			convey.Convey("Then the scores land in their columns", func() {
				convey.So(e.CaseID, convey.ShouldEqual, 1)
				convey.So(e.TeamID, convey.ShouldEqual, 2)
				convey.So(e.EvaluatorID, convey.ShouldEqual, 3)
				convey.So(e.ProductValue, convey.ShouldEqual, scoring.Full)
				convey.So(e.Scalability, convey.ShouldEqual, scoring.Half)
				convey.So(e.UX, convey.ShouldEqual, scoring.Zero)
				convey.So(e.Presentation, convey.ShouldEqual, scoring.Full)
				convey.So(e.Validate(), convey.ShouldBeNil)
			})
		})
	})
}

func TestEvaluationValidate(t *testing.T) {
	convey.Convey("Given evaluations violating invariants", t, func() {
		valid := model.NewEvaluation(1, 2, 3, scoring.Card{})

		broken := map[string]model.Evaluation{
			"missing case":      func() model.Evaluation { e := valid; e.CaseID = 0; return e }(),
			"missing team":      func() model.Evaluation { e := valid; e.TeamID = 0; return e }(),
			"missing evaluator": func() model.Evaluation { e := valid; e.EvaluatorID = 0; return e }(),
			"score off the set": func() model.Evaluation { e := valid; e.UX = 0.3; return e }(),
		}

		for name, e := range broken {
			convey.Convey("When "+name, func() {
				convey.So(errors.Is(e.Validate(), model.ErrInvalidEvaluation), convey.ShouldBeTrue)
			})
		}
	})
}

func TestUpdate(t *testing.T) {
	convey.Convey("Given updates", t, func() {
		convey.So(model.Update{Choice: "save"}.IsChoice(), convey.ShouldBeTrue)
		convey.So(model.Update{Text: "alice"}.IsChoice(), convey.ShouldBeFalse)
	})
}
