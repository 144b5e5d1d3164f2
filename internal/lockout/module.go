package lockout

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/accounts"
	"github.com/elskow/authguard/internal/config"
	"github.com/elskow/authguard/internal/credential"
)

// NewModule returns the lockout module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			NewEventRecorder,
			// Provide the selected backend wrapped with per-call fallback
			fx.Annotate(
				func(lc fx.Lifecycle, config *config.AppConfig, events *EventRecorder, log *zap.Logger) *FallbackStore {
					selector := NewSelector(DefaultConnectors(config, log), config.Auth.OperationTimeout, events, log)
					store := NewFallbackStore(selector.Select(context.Background()), config.Auth.OperationTimeout, events, log)

					lc.Append(fx.Hook{
						OnStop: func(ctx context.Context) error {
							log.Info("closing lockout backend", zap.String("backend", store.Name()))
							return store.Close()
						},
					})
					return store
				},
			),
			// Provide engine
			fx.Annotate(
				func(
					config *config.AppConfig,
					store *FallbackStore,
					registry *accounts.Registry,
					verifier *credential.Verifier,
					events *EventRecorder,
					log *zap.Logger,
				) (*Engine, error) {
					policy := Policy{
						MaxFailed:       config.Auth.MaxFailed,
						LockoutDuration: config.Auth.LockoutDuration,
					}
					return NewEngine(store, registry, verifier, policy, events, log)
				},
			),
		),
	)
}
