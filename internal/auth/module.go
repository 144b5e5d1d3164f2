package auth

import (
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/authguard/internal/config"
	"github.com/elskow/authguard/internal/lockout"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide handler
			fx.Annotate(
				func(config *config.AppConfig, engine *lockout.Engine, log *zap.Logger) *Handler {
					return NewHandler(engine, log, config.Auth.AllowPolicyOverride)
				},
			),
			// Provide middleware
			fx.Annotate(
				func(config *config.AppConfig) *AdminMiddleware {
					return NewAdminMiddleware(&config.Auth)
				},
			),
			// Provide router
			fx.Annotate(
				func(h *Handler, admin *AdminMiddleware, log *zap.Logger) http.Handler {
					return NewRouter(h, admin, log)
				},
			),
		),
	)
}
