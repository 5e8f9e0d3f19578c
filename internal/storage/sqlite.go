package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/sirupsen/logrus"
)

const ledgerSchema = `CREATE TABLE IF NOT EXISTS ledger (
	ledger_key   TEXT PRIMARY KEY,
	processed_at TEXT NOT NULL
)`

// SQLiteStore persists ledger records in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	log logrus.FieldLogger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and creates if needed) the database file at path.
func NewSQLiteStore(path string, logger logrus.FieldLogger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.WithField("path", path).Info("SQLite ledger opened")
	return &SQLiteStore{db: db, log: logger.WithField("component", "ledger")}, nil
}

// Has reports whether a ledger row exists for key.
func (s *SQLiteStore) Has(ctx context.Context, key string) (bool, error) {
	query, args, err := sq.Select("1").From("ledger").Where(sq.Eq{"ledger_key": key}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		s.log.WithError(err).WithField("key", key).Error("Failed to read ledger key")
		return false, fmt.Errorf("sqlite select %s: %w: %w", key, ErrStoreUnavailable, err)
	}
}

// PutIfAbsent inserts a ledger row; an existing row for key is left untouched.
func (s *SQLiteStore) PutIfAbsent(ctx context.Context, key string, at time.Time) error {
	query, args, err := sq.Insert("ledger").
		Columns("ledger_key", "processed_at").
		Values(key, at.UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT(ledger_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to write ledger key")
		return fmt.Errorf("sqlite insert %s: %w: %w", key, ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
