package repository

import "context"

// Exec runs raw SQL for seeding test databases.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
