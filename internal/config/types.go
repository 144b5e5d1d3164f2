package config

import "time"

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	HTTPPort string `mapstructure:"http_port"`
	GRPCPort string `mapstructure:"grpc_port"`
}

type GRPCConfig struct {
	EnableReflection bool          `mapstructure:"enable_reflection"`
	HealthInterval   time.Duration `mapstructure:"health_interval"`
}

type AuthConfig struct {
	MaxFailed           int           `mapstructure:"max_failed"`
	LockoutDuration     time.Duration `mapstructure:"lockout_duration"`
	PBKDF2Iterations    int           `mapstructure:"pbkdf2_iterations"`
	OperationTimeout    time.Duration `mapstructure:"operation_timeout"`
	AdminJWTSecret      string        `mapstructure:"admin_jwt_secret"`
	AllowPolicyOverride bool          `mapstructure:"allow_policy_override"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type SeedUser struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AccountsConfig struct {
	// Source is "config" (seed users below) or "postgres".
	Source      string     `mapstructure:"source"`
	Seed        []SeedUser `mapstructure:"seed"`
	AutoMigrate bool       `mapstructure:"auto_migrate"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Accounts AccountsConfig `mapstructure:"accounts"`
	Database DatabaseConfig `mapstructure:"database"`
}
