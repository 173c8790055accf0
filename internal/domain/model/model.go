// Package model contains the entities shared between the conversation engine
// and its storage collaborators.
package model

import (
	"fmt"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
)

// Identity is an authenticated evaluator.
type Identity struct {
	ID    int64
	Login string
}

// Case groups the teams that are evaluated together.
type Case struct {
	ID    int64
	Title string
}

// Team is an evaluated team. CaseID is nil when the team is not assigned to a case.
type Team struct {
	ID     int64
	Name   string
	CaseID *int64
}

// Evaluation is one saved score card. Rows are append-only.
type Evaluation struct {
	ID           int64
	CaseID       int64
	TeamID       int64
	EvaluatorID  int64
	ProductValue scoring.Score
	Scalability  scoring.Score
	UX           scoring.Score
	Presentation scoring.Score
}

// NewEvaluation assembles an evaluation from a complete score card.
func NewEvaluation(caseID, teamID, evaluatorID int64, card scoring.Card) Evaluation {
	return Evaluation{
		CaseID:       caseID,
		TeamID:       teamID,
		EvaluatorID:  evaluatorID,
		ProductValue: card.Get(scoring.ProductValue),
		Scalability:  card.Get(scoring.Scalability),
		UX:           card.Get(scoring.UX),
		Presentation: card.Get(scoring.Presentation),
	}
}

// Validate checks the invariants that must hold before a row is created.
func (e Evaluation) Validate() error {
	switch {
	case e.CaseID <= 0:
		return fmt.Errorf("%w: case id", ErrInvalidEvaluation)
	case e.TeamID <= 0:
		return fmt.Errorf("%w: team id", ErrInvalidEvaluation)
	case e.EvaluatorID <= 0:
		return fmt.Errorf("%w: evaluator id", ErrInvalidEvaluation)
	}
	for _, s := range []scoring.Score{e.ProductValue, e.Scalability, e.UX, e.Presentation} {
		if !s.Valid() {
			return fmt.Errorf("%w: score %v", ErrInvalidEvaluation, float64(s))
		}
	}
	return nil
}
