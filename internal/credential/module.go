package credential

import (
	"go.uber.org/fx"

	"github.com/elskow/authguard/internal/config"
)

func NewModule() fx.Option {
	return fx.Provide(
		func(config *config.AppConfig) *Verifier {
			return NewVerifier(config.Auth.PBKDF2Iterations)
		},
	)
}
