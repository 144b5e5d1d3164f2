package app

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/accounts"
	"github.com/elskow/authguard/internal/auth"
	"github.com/elskow/authguard/internal/credential"
	"github.com/elskow/authguard/internal/lockout"
	"github.com/elskow/authguard/internal/server"
)

// Module combines all application modules
func Module() fx.Option {
	return fx.Options(
		// Logger
		fx.Provide(newLogger),

		// Configuration
		fx.Provide(server.LoadConfig),

		// Credential derivation
		credential.NewModule(),

		// Account registry
		accounts.NewModule(),

		// Lockout engine and backend
		lockout.NewModule(),

		// HTTP API
		auth.NewModule(),

		// Server
		fx.Provide(
			fx.Annotate(
				func(engine *lockout.Engine) *lockout.Engine { return engine },
				fx.As(new(server.BackendPinger)),
			),
			server.NewServer,
		),

		// Start the server
		fx.Invoke(registerHooks),
	)
}

func newLogger() (*zap.Logger, error) {
	env := os.Getenv("APP_ENV")
	return server.NewLogger(env)
}

func registerHooks(
	lifecycle fx.Lifecycle,
	srv *server.Server,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := srv.Start(); err != nil {
				log.Error("failed to start server", zap.Error(err))
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			return srv.Stop(ctx)
		},
	})
}
