package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/config"
	"github.com/elskow/authguard/internal/lockout"
	"github.com/elskow/authguard/internal/migration"
	"github.com/elskow/authguard/internal/server"
)

func main() {
	target := flag.String("target", migration.TargetLockout, "migration target (lockout/accounts)")
	command := flag.String("command", "up", "migration command (up/down/status/version/reset)")
	flag.Parse()

	if os.Getenv("APP_ENV") == "" {
		os.Setenv("APP_ENV", server.EnvDevelopment)
	}

	// Load config
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := server.NewLogger(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Create migrator
	migrator, closeFn, err := newMigrator(*target, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	defer closeFn()

	// Run migration command
	switch *command {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Successfully ran migrations")

	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatalf("Failed to rollback migrations: %v", err)
		}
		log.Println("Successfully rolled back migrations")

	case "status":
		if err := migrator.Status(); err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}

	case "version":
		version, err := migrator.Version()
		if err != nil {
			log.Fatalf("Failed to get migration version: %v", err)
		}
		log.Printf("Current migration version: %d", version)

	case "reset":
		if err := migrator.Reset(); err != nil {
			log.Fatalf("Failed to reset migrations: %v", err)
		}
		log.Println("Successfully reset migrations")

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

func newMigrator(target string, cfg *config.AppConfig, logger *zap.Logger) (*migration.Migrator, func(), error) {
	switch target {
	case migration.TargetLockout:
		db, err := lockout.OpenSQLiteDB(context.Background(), cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return migration.NewSQLiteMigrator(db, logger), func() { db.Close() }, nil
	case migration.TargetAccounts:
		migrator, err := migration.NewPostgresMigrator(&cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return migrator, func() { migrator.Close() }, nil
	default:
		log.Fatalf("Unknown target: %s", target)
		return nil, nil, nil
	}
}
