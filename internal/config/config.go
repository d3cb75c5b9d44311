// Package config provides configuration management for the application.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Media      MediaConfig      `mapstructure:"media"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProviderConfig describes the remote messaging API.
type ProviderConfig struct {
	BaseURL          string               `mapstructure:"base_url"`
	Timeout          int                  `mapstructure:"timeout"`
	TemplateCacheTTL int                  `mapstructure:"template_cache_ttl"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"`
	Timeout          int     `mapstructure:"timeout"`
	FailureRatio     float64 `mapstructure:"failure_ratio"`
	ConsecutiveFails uint32  `mapstructure:"consecutive_fails"`
}

// WebhookConfig covers the inbound webhook surface. AppSecret signs
// every inbound payload; MaxAttempts bounds normalization retries per
// staged log.
type WebhookConfig struct {
	AppSecret   string `mapstructure:"app_secret"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

type SchedulerConfig struct {
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	SweepBatchSize       int `mapstructure:"sweep_batch_size"`
}

type NotifierConfig struct {
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	FromAddress     string `mapstructure:"from_address"`
}

type MediaConfig struct {
	TokenTTLSeconds int    `mapstructure:"token_ttl_seconds"`
	StorageDir      string `mapstructure:"storage_dir"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

type MiddlewareConfig struct {
	RateLimit       int      `mapstructure:"rate_limit"`
	RateLimitBurst  int      `mapstructure:"rate_limit_burst"`
	RateLimitWindow int      `mapstructure:"rate_limit_window"`
	UseRedisLimiter bool     `mapstructure:"use_redis_limiter"`
	EnableCORS      bool     `mapstructure:"enable_cors"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 10)
	viper.SetDefault("server.write_timeout", 10)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("provider.base_url", "https://graph.facebook.com/v19.0")
	viper.SetDefault("provider.timeout", 30)
	viper.SetDefault("provider.template_cache_ttl", 300)
	viper.SetDefault("provider.circuit_breaker.max_requests", 3)
	viper.SetDefault("provider.circuit_breaker.interval", 60)
	viper.SetDefault("provider.circuit_breaker.timeout", 60)
	viper.SetDefault("provider.circuit_breaker.failure_ratio", 0.6)
	viper.SetDefault("provider.circuit_breaker.consecutive_fails", 5)
	viper.SetDefault("webhook.max_attempts", 3)
	viper.SetDefault("scheduler.sweep_interval_seconds", 30)
	viper.SetDefault("scheduler.sweep_batch_size", 20)
	viper.SetDefault("notifier.interval_minutes", 5)
	viper.SetDefault("media.token_ttl_seconds", 300)
	viper.SetDefault("media.storage_dir", "./media")
	viper.SetDefault("media.public_base_url", "http://localhost:8080/media")
	viper.SetDefault("middleware.rate_limit", 100)
	viper.SetDefault("middleware.rate_limit_burst", 1000)
	viper.SetDefault("middleware.rate_limit_window", 60)
	viper.SetDefault("middleware.use_redis_limiter", true)
	viper.SetDefault("middleware.enable_cors", true)
	viper.SetDefault("middleware.allowed_origins", []string{"*"})

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Webhook.AppSecret == "" {
		return nil, fmt.Errorf("webhook.app_secret is required")
	}

	return &config, nil
}

// GetDSN returns PostgreSQL connection string.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}
