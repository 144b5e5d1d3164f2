package server

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/elskow/authguard/internal/config"
	"github.com/elskow/authguard/internal/credential"
	"github.com/elskow/authguard/internal/lockout"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"

	envPrefix    = "AUTHGUARD"
	envConfigDir = "AUTHGUARD_CONFIG_DIR"
)

var ErrInvalidConfig = errors.New("invalid configuration")

func LoadConfig() (*config.AppConfig, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if dir := os.Getenv(envConfigDir); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config/server")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config config.AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Load environment-specific configurations
	if envSettings := v.GetStringMap(fmt.Sprintf("auth.%s", env)); len(envSettings) > 0 {
		if err := v.UnmarshalKey(fmt.Sprintf("auth.%s", env), &config.Auth); err != nil {
			return nil, fmt.Errorf("error unmarshaling env config: %w", err)
		}
	}

	if err := Validate(&config, env); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", "8080")
	v.SetDefault("server.grpc_port", "9090")

	v.SetDefault("grpc.enable_reflection", false)
	v.SetDefault("grpc.health_interval", 10*time.Second)

	v.SetDefault("auth.max_failed", lockout.DefaultMaxFailed)
	v.SetDefault("auth.lockout_duration", lockout.DefaultLockoutDuration)
	v.SetDefault("auth.pbkdf2_iterations", credential.DefaultIterations)
	v.SetDefault("auth.operation_timeout", lockout.DefaultOperationTimeout)
	v.SetDefault("auth.admin_jwt_secret", "")
	v.SetDefault("auth.allow_policy_override", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sqlite.path", "data/lockout.db")

	v.SetDefault("accounts.source", "config")
	v.SetDefault("accounts.auto_migrate", false)
	v.SetDefault("accounts.seed", []map[string]interface{}{
		{"username": "admin", "password": "123456"},
		{"username": "user", "password": "password"},
	})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "authguard")
	v.SetDefault("database.sslmode", "disable")
}

// Validate rejects configurations the service must not start with.
func Validate(cfg *config.AppConfig, env string) error {
	policy := lockout.Policy{
		MaxFailed:       cfg.Auth.MaxFailed,
		LockoutDuration: cfg.Auth.LockoutDuration,
	}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Auth.PBKDF2Iterations < credential.MinIterations {
		return fmt.Errorf("%w: pbkdf2_iterations must be at least %d, got %d",
			ErrInvalidConfig, credential.MinIterations, cfg.Auth.PBKDF2Iterations)
	}
	if cfg.Auth.OperationTimeout <= 0 {
		return fmt.Errorf("%w: operation_timeout must be positive", ErrInvalidConfig)
	}
	if env == EnvProduction && cfg.Auth.AdminJWTSecret == "" {
		return fmt.Errorf("%w: admin_jwt_secret is required in production", ErrInvalidConfig)
	}
	if env == EnvProduction && cfg.Auth.AllowPolicyOverride {
		return fmt.Errorf("%w: allow_policy_override must be off in production", ErrInvalidConfig)
	}
	return nil
}
