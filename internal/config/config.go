// Package config loads application configuration from defaults, an optional
// YAML file, and DONORHUB_-prefixed environment variables, in that order of
// precedence (later layers win).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "DONORHUB_"

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	CORS          CORSConfig          `koanf:"cors"`
	Jobs          JobsConfig          `koanf:"jobs"`
	Digest        DigestConfig        `koanf:"digest"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	MetricsPort     int           `koanf:"metrics_port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxConns        int           `koanf:"max_conns" validate:"min=1"`
	MinConns        int           `koanf:"min_conns" validate:"min=0"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"min=1"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// JobsConfig contains job processor settings.
type JobsConfig struct {
	BatchSize    int           `koanf:"batch_size" validate:"min=1"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// DigestConfig contains digest aggregation schedules (cron expressions).
type DigestConfig struct {
	AggregationSchedule string `koanf:"aggregation_schedule" validate:"required"`
	WeeklyStatsSchedule string `koanf:"weekly_stats_schedule" validate:"required"`
}

// NotificationsConfig contains outbound notification settings.
type NotificationsConfig struct {
	Email   EmailConfig   `koanf:"email"`
	Discord DiscordConfig `koanf:"discord"`
}

// EmailConfig contains SMTP settings.
type EmailConfig struct {
	Enabled      bool          `koanf:"enabled"`
	SMTPHost     string        `koanf:"smtp_host"`
	SMTPPort     int           `koanf:"smtp_port"`
	SMTPUser     string        `koanf:"smtp_user"`
	SMTPPassword string        `koanf:"smtp_password"`
	FromAddress  string        `koanf:"from_address"`
	SendInterval time.Duration `koanf:"send_interval"`
}

// DiscordConfig contains webhook settings. An empty URL disables the
// side channel.
type DiscordConfig struct {
	WebhookURL string        `koanf:"webhook_url"`
	Username   string        `koanf:"username"`
	AvatarURL  string        `koanf:"avatar_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MetricsPort:     9090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Jobs: JobsConfig{
			BatchSize:    10,
			PollInterval: 30 * time.Second,
		},
		Digest: DigestConfig{
			AggregationSchedule: "0 18 * * *",
			WeeklyStatsSchedule: "0 9 * * 1",
		},
		Notifications: NotificationsConfig{
			Email: EmailConfig{
				SMTPPort:     587,
				SendInterval: 200 * time.Millisecond,
			},
			Discord: DiscordConfig{
				Username: "DonorHub",
				Timeout:  10 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration. path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// DONORHUB_DATABASE__MAX_CONNS maps to database.max_conns: a double
	// underscore separates nesting levels, single underscores stay inside
	// key names.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
