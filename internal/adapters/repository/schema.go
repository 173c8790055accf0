package repository

import (
	"context"
)

// schema creates the four tables if they are missing. Table names match
// the ones used by the admin tooling that seeds accounts and the catalog.
const schema = `
CREATE TABLE IF NOT EXISTS "user" (
	id            INTEGER PRIMARY KEY,
	login         VARCHAR(80)  NOT NULL UNIQUE,
	password_hash VARCHAR(200) NOT NULL
);

CREATE TABLE IF NOT EXISTS "case" (
	id    INTEGER PRIMARY KEY,
	title VARCHAR(200) NOT NULL
);

CREATE TABLE IF NOT EXISTS team (
	id      INTEGER PRIMARY KEY,
	name    VARCHAR(100) NOT NULL UNIQUE,
	case_id INTEGER REFERENCES "case"(id)
);

CREATE TABLE IF NOT EXISTS final_evaluation (
	id            INTEGER PRIMARY KEY,
	case_id       INTEGER NOT NULL REFERENCES "case"(id),
	team_id       INTEGER NOT NULL REFERENCES team(id),
	evaluator_id  INTEGER NOT NULL REFERENCES "user"(id),
	product_value FLOAT   NOT NULL,
	scalability   FLOAT   NOT NULL,
	ux            FLOAT   NOT NULL,
	presentation  FLOAT   NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_team_case_id ON team(case_id);
`

// Migrate creates the schema. It is safe to run on an existing database.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return s.fail("migrate", err)
	}
	return nil
}
