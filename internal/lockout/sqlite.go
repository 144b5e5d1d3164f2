package lockout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/elskow/authguard/internal/migration"
)

const BackendSQLite = "sqlite"

// SQLiteStore persists attempt state in a single-file SQLite database
// journaled in WAL mode so concurrent readers do not block the writer.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// embedded schema migrations.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := OpenSQLiteDB(ctx, path)
	if err != nil {
		return nil, err
	}

	migrator := migration.NewSQLiteMigrator(db, logger)
	if err := migrator.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenSQLiteDB opens the raw lockout database without touching the schema.
func OpenSQLiteDB(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path not configured")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (s *SQLiteStore) Name() string {
	return BackendSQLite
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) GetStatus(ctx context.Context, username string) (Status, error) {
	var (
		failed    sql.NullInt64
		lockUntil sql.NullFloat64
	)
	query := `SELECT failed_count, lock_until FROM locks WHERE username = ?`
	err := s.db.QueryRowContext(ctx, query, username).Scan(&failed, &lockUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, transient(BackendSQLite, "get status", err)
	}

	return Status{
		FailedCount: int(failed.Int64),
		LockUntil:   fromEpochSeconds(lockUntil.Float64),
	}, nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, username string, status Status) error {
	query := `INSERT INTO locks (username, failed_count, lock_until) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			failed_count = excluded.failed_count,
			lock_until = excluded.lock_until`

	_, err := s.db.ExecContext(ctx, query, username, status.FailedCount, epochSeconds(status.LockUntil))
	if err != nil {
		return transient(BackendSQLite, "set status", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context, username string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM locks WHERE username = ?`, username); err != nil {
		return transient(BackendSQLite, "reset", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return transient(BackendSQLite, "ping", err)
	}
	return nil
}

// ClearAll removes every record.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM locks`); err != nil {
		return transient(BackendSQLite, "clear", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
