package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/elskow/authguard/internal/config"
)

// Manager owns the gorm connection to the accounts database.
type Manager struct {
	db     *gorm.DB
	config *config.DatabaseConfig
	logger *zap.Logger
}

func NewManager(config *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	db, err := newDatabase(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to accounts database: %w", err)
	}

	return &Manager{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// NewManagerFromDialector wraps an already-configured dialector; used when
// the caller owns the underlying *sql.DB.
func NewManagerFromDialector(dialector gorm.Dialector, logger *zap.Logger) (*Manager, error) {
	db, err := gorm.Open(dialector, gormConfig(logger))
	if err != nil {
		return nil, err
	}
	return &Manager{db: db, logger: logger}, nil
}

func (m *Manager) DB() *gorm.DB {
	return m.db
}

func (m *Manager) Close() error {
	m.logger.Info("Closing database connections")
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newDatabase(config *config.DatabaseConfig, zl *zap.Logger) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(config.DSN()), gormConfig(zl))
}

func gormConfig(zl *zap.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			zap.NewStdLog(zl.Named("gorm")),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}
