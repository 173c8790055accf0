package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/password"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
)

// Verify checks login and password against the "user" table.
func (s *Store) Verify(ctx context.Context, login, pw string) (model.Identity, error) {
	var (
		id   int64
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM "user" WHERE login = ?`, login,
	).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, fmt.Errorf("verify %q: %w", login, ErrNotFound)
	}
	if err != nil {
		return model.Identity{}, s.fail("verify", err)
	}

	ok, err := password.Check(hash, pw)
	if err != nil {
		return model.Identity{}, s.fail("verify", err)
	}
	if !ok {
		return model.Identity{}, fmt.Errorf("verify %q: %w", login, ErrBadPassword)
	}
	return model.Identity{ID: id, Login: login}, nil
}
