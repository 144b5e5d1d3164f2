package accounts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/config"
	"github.com/elskow/authguard/internal/credential"
	"github.com/elskow/authguard/internal/database"
	"github.com/elskow/authguard/internal/migration"
)

const (
	SourceConfig   = "config"
	SourcePostgres = "postgres"

	loadTimeout = 10 * time.Second
)

// NewModule returns the accounts module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, verifier *credential.Verifier, log *zap.Logger) (*Registry, error) {
					ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
					defer cancel()
					return LoadRegistry(ctx, &config.Accounts, &config.Database, verifier, log)
				},
			),
		),
	)
}

// LoadRegistry builds the registry from the configured source. The
// postgres connection is only held while the accounts are read.
func LoadRegistry(
	ctx context.Context,
	cfg *config.AccountsConfig,
	dbCfg *config.DatabaseConfig,
	verifier *credential.Verifier,
	log *zap.Logger,
) (*Registry, error) {
	var (
		list []Account
		err  error
	)

	switch cfg.Source {
	case "", SourceConfig:
		list, err = FromSeed(cfg.Seed, verifier)
	case SourcePostgres:
		if cfg.AutoMigrate {
			if err := migrateAccounts(dbCfg, log); err != nil {
				return nil, err
			}
		}
		var manager *database.Manager
		manager, err = database.NewManager(dbCfg, log)
		if err != nil {
			return nil, err
		}
		defer manager.Close()
		list, err = NewRepository(manager.DB()).ListAccounts(ctx)
	default:
		return nil, fmt.Errorf("unsupported accounts source: %s", cfg.Source)
	}
	if err != nil {
		return nil, err
	}

	registry, err := NewRegistry(list)
	if err != nil {
		return nil, err
	}

	log.Info("account registry loaded",
		zap.String("source", sourceName(cfg.Source)),
		zap.Int("accounts", registry.Len()))
	return registry, nil
}

func migrateAccounts(dbCfg *config.DatabaseConfig, log *zap.Logger) error {
	migrator, err := migration.NewPostgresMigrator(dbCfg, log)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Sync()
}

func sourceName(source string) string {
	if source == "" {
		return SourceConfig
	}
	return source
}
