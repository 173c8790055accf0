// Package repository stores accounts, the case and team catalog, and saved
// evaluations in SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
	"github.com/varvaraparamon/final-eval-bot/pkg/metrics"
)

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Store implements the credential verifier, the catalog and the evaluation
// repository over one database.
type Store struct {
	db           *sql.DB
	log          logger.Logger
	maxOpenConns int
}

// Open connects to databaseURL. Accepted forms are a file path,
// "file:<path>", "sqlite:///<path>" and "sqlite://" for a private
// in-memory database.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	s := &Store{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	dsn, memory, err := driverDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrStorage, err)
	}
	switch {
	case memory:
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	case s.maxOpenConns > 0:
		db.SetMaxOpenConns(s.maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %w", ErrStorage, err)
	}
	s.db = db
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.fail("ping", err)
	}
	return nil
}

func driverDSN(databaseURL string) (dsn string, memory bool, err error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return "", false, fmt.Errorf("%w: empty", ErrUnsupportedDatabase)
	case u == "sqlite://" || u == ":memory:":
		return "file::memory:?" + pragmas, true, nil
	case strings.HasPrefix(u, "sqlite:///"):
		u = strings.TrimPrefix(u, "sqlite:///")
	case strings.Contains(u, "://"):
		return "", false, fmt.Errorf("%w: %q", ErrUnsupportedDatabase, schemeOf(u))
	}
	if !strings.HasPrefix(u, "file:") {
		u = "file:" + u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + pragmas, false, nil
}

func schemeOf(u string) string {
	scheme, _, _ := strings.Cut(u, "://")
	return scheme
}

// fail logs and wraps a driver error as a storage error.
func (s *Store) fail(op string, err error) error {
	metrics.RecordErrorByComponent("repository", op)
	s.log.Error(context.Background(), "storage operation failed", logger.String("op", op), logger.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
