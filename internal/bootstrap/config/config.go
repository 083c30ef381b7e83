package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Andon    AndonConfig    `mapstructure:"andon"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env"`
	// Diagnostic adds error chains to API error payloads.
	Diagnostic bool   `mapstructure:"diagnostic"`
	Timezone   string `mapstructure:"timezone" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type DatabaseConfig struct {
	Driver        string        `mapstructure:"driver" validate:"oneof=sqlite sqlite3 postgres"`
	DSN           string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns  int           `mapstructure:"max_open_conns" validate:"gte=0"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type HTTPConfig struct {
	Addr               string        `mapstructure:"addr" validate:"required"`
	CORSOrigins        []string      `mapstructure:"cors_origins"`
	WriteRatePerMinute int           `mapstructure:"write_rate_per_minute" validate:"gte=0"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
}

type AndonConfig struct {
	Threshold     int `mapstructure:"threshold" validate:"gte=1"`
	Window        int `mapstructure:"window" validate:"gte=1"`
	MaxEscalation int `mapstructure:"max_escalation" validate:"gte=1"`
}

type NotifyConfig struct {
	NATS    NATSConfig    `mapstructure:"nats"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" validate:"required_if=Enabled true"`
	Subject string `mapstructure:"subject" validate:"required_if=Enabled true"`
}

type WebhookConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	URL              string        `mapstructure:"url" validate:"required_if=Enabled true"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// Location resolves App.Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Int("andon_threshold", cfg.Andon.Threshold),
	)

	return cfg, nil
}

func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, fe.Namespace()+" failed "+fe.Tag())
			}
			return errs.Validation("invalid config: %s", strings.Join(parts, "; "))
		}
		return errs.Wrap(err, "validate config")
	}
	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return errs.Validation("invalid config: app.timezone %q: %v", cfg.App.Timezone, err)
	}
	return nil
}

// Defaults returns the configuration used when no file or env overrides exist.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "factoryqc")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.diagnostic", false)
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".data/factoryqc.sqlite")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.write_rate_per_minute", 600)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)

	v.SetDefault("andon.threshold", 3)
	v.SetDefault("andon.window", 10)
	v.SetDefault("andon.max_escalation", 3)

	v.SetDefault("notify.nats.enabled", false)
	v.SetDefault("notify.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("notify.nats.subject", "andon.alerts")
	v.SetDefault("notify.webhook.enabled", false)
	v.SetDefault("notify.webhook.timeout", 5*time.Second)
	v.SetDefault("notify.webhook.failure_threshold", 5)
}
