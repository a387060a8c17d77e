package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Webhooks  WebhooksConfig  `mapstructure:"webhooks"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retention RetentionConfig `mapstructure:"retention"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type WebhooksConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// AllowInternalTargets disables the internal-address guard on delivery
	// hosts. Only for local development against loopback receivers.
	AllowInternalTargets bool `mapstructure:"allow_internal_targets"`
}

type RateLimitConfig struct {
	DefaultPerHour int `mapstructure:"default_per_hour"`
	RetryAfter     int `mapstructure:"retry_after"` // seconds
}

type RetentionConfig struct {
	Horizon       time.Duration `mapstructure:"horizon"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("webhooks.max_attempts", 3)
	viper.SetDefault("webhooks.backoff_base", "2s")
	viper.SetDefault("webhooks.request_timeout", "10s")
	viper.SetDefault("rate_limit.default_per_hour", 1000)
	viper.SetDefault("rate_limit.retry_after", 3600)
	viper.SetDefault("retention.horizon", "720h")
	viper.SetDefault("retention.sweep_interval", "1h")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
