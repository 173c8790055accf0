package repository

import (
	"context"
	"database/sql"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
)

// ListCases returns all cases by id.
func (s *Store) ListCases(ctx context.Context) ([]model.Case, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM "case" ORDER BY id`)
	if err != nil {
		return nil, s.fail("list cases", err)
	}
	defer rows.Close()

	var out []model.Case
	for rows.Next() {
		var c model.Case
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, s.fail("list cases", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list cases", err)
	}
	return out, nil
}

// ListTeams returns the teams of a case by id.
func (s *Store) ListTeams(ctx context.Context, caseID int64) ([]model.Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, case_id FROM team WHERE case_id = ? ORDER BY id`, caseID)
	if err != nil {
		return nil, s.fail("list teams", err)
	}
	defer rows.Close()

	var out []model.Team
	for rows.Next() {
		var (
			t   model.Team
			cid sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Name, &cid); err != nil {
			return nil, s.fail("list teams", err)
		}
		if cid.Valid {
			t.CaseID = &cid.Int64
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list teams", err)
	}
	return out, nil
}
