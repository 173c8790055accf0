package repository

import (
	"context"
	"fmt"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
)

// Save appends one evaluation row and returns its id once committed.
func (s *Store) Save(ctx context.Context, e model.Evaluation) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("save evaluation: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO final_evaluation
			(case_id, team_id, evaluator_id, product_value, scalability, ux, presentation)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.CaseID, e.TeamID, e.EvaluatorID,
		float64(e.ProductValue), float64(e.Scalability), float64(e.UX), float64(e.Presentation),
	)
	if err != nil {
		return 0, s.fail("save evaluation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.fail("save evaluation", err)
	}
	return id, nil
}

// CountEvaluations returns the number of saved evaluations.
func (s *Store) CountEvaluations(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM final_evaluation`).Scan(&n); err != nil {
		return 0, s.fail("count evaluations", err)
	}
	return n, nil
}
