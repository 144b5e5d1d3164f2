package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/config"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	TargetLockout  = "lockout"
	TargetAccounts = "accounts"

	dialectSQLite   = "sqlite3"
	dialectPostgres = "postgres"
)

// goose keeps its dialect, base FS and logger in package state.
var gooseMu sync.Mutex

type Migrator struct {
	db      *sql.DB
	dialect string
	dir     string
	logger  *zap.Logger
	ownsDB  bool
}

// NewSQLiteMigrator migrates the lockout database. The caller keeps
// ownership of db.
func NewSQLiteMigrator(db *sql.DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:      db,
		dialect: dialectSQLite,
		dir:     "migrations/sqlite",
		logger:  logger,
	}
}

// NewPostgresMigrator opens its own connection to the accounts database.
func NewPostgresMigrator(config *config.DatabaseConfig, logger *zap.Logger) (*Migrator, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Migrator{
		db:      db,
		dialect: dialectPostgres,
		dir:     "migrations/postgres",
		logger:  logger,
		ownsDB:  true,
	}, nil
}

func (m *Migrator) locked(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{m.logger.Sugar()})
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return fn()
}

func (m *Migrator) Up() error {
	return m.locked(func() error {
		if err := goose.Up(m.db, m.dir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

func (m *Migrator) Down() error {
	return m.locked(func() error {
		if err := goose.Down(m.db, m.dir); err != nil {
			return fmt.Errorf("failed to rollback migrations: %w", err)
		}
		return nil
	})
}

// DownTo migrates the database down to a specific version
func (m *Migrator) DownTo(version int64) error {
	return m.locked(func() error {
		current, err := goose.GetDBVersion(m.db)
		if err != nil {
			return err
		}

		for current > version {
			if err := goose.Down(m.db, m.dir); err != nil {
				return fmt.Errorf("failed to migrate down to version %d: %w", version, err)
			}
			current, err = goose.GetDBVersion(m.db)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCurrentVersion returns the current migration version
func (m *Migrator) GetCurrentVersion() (int64, error) {
	var version int64
	err := m.locked(func() error {
		var err error
		version, err = goose.GetDBVersion(m.db)
		return err
	})
	return version, err
}

// GetLatestVersion returns the latest available migration version
func (m *Migrator) GetLatestVersion() (int64, error) {
	var version int64
	err := m.locked(func() error {
		migrations, err := goose.CollectMigrations(m.dir, 0, goose.MaxVersion)
		if err != nil {
			return err
		}
		if len(migrations) > 0 {
			version = migrations[len(migrations)-1].Version
		}
		return nil
	})
	return version, err
}

func (m *Migrator) Status() error {
	return m.locked(func() error {
		if err := goose.Status(m.db, m.dir); err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		return nil
	})
}

func (m *Migrator) Version() (int64, error) {
	return m.GetCurrentVersion()
}

func (m *Migrator) Reset() error {
	if err := m.Down(); err != nil {
		return err
	}
	return m.Up()
}

// Sync moves the schema to the latest embedded version in either direction.
func (m *Migrator) Sync() error {
	currentVersion, err := m.GetCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	latestVersion, err := m.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest migration version: %w", err)
	}

	m.logger.Info("Database migration status",
		zap.String("dialect", m.dialect),
		zap.Int64("current_version", currentVersion),
		zap.Int64("latest_version", latestVersion))

	switch {
	case currentVersion > latestVersion:
		m.logger.Info("Downgrading database schema",
			zap.Int64("from_version", currentVersion),
			zap.Int64("to_version", latestVersion))
		if err := m.DownTo(latestVersion); err != nil {
			return fmt.Errorf("failed to downgrade database: %w", err)
		}
	case currentVersion < latestVersion:
		m.logger.Info("Upgrading database schema",
			zap.Int64("from_version", currentVersion),
			zap.Int64("to_version", latestVersion))
		if err := m.Up(); err != nil {
			return fmt.Errorf("failed to upgrade database: %w", err)
		}
	}
	return nil
}

func (m *Migrator) Close() error {
	if !m.ownsDB {
		return nil
	}
	return m.db.Close()
}

type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Fatalf(format, v...)
}
