// Package config loads ECOWatch settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all process settings. It is built once in main and passed to
// constructors.
type Config struct {
	App       AppConfig
	WAQI      WAQIConfig
	Cache     CacheConfig
	Mail      MailConfig
	Dashboard DashboardConfig
	Telemetry TelemetryConfig
	PubSub    PubSubConfig
}

// AppConfig holds HTTP server and logging settings.
type AppConfig struct {
	Port       string
	Env        string
	LogLevel   zerolog.Level
	RequireTLS bool
}

// WAQIConfig holds air quality provider settings.
type WAQIConfig struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

// CacheConfig holds reading cache settings.
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

// MailConfig holds SMTP sender settings.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DialTimeout time.Duration
}

// Enabled reports whether credentials are present.
func (m MailConfig) Enabled() bool {
	return m.Username != "" && m.Password != ""
}

// DashboardConfig holds page rendering settings.
type DashboardConfig struct {
	DefaultCity    string
	StylesheetPath string
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// PubSubConfig holds the render worker subscription.
type PubSubConfig struct {
	ProjectID    string
	Subscription string
}

// Load reads settings from the environment. Values from the given dotenv
// files (default ".env") fill variables that are not already set; a missing
// default file is not an error. Invalid numbers or durations are reported
// together.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	p := &parser{}
	cfg := &Config{
		App: AppConfig{
			Port:       getEnv("APP_PORT", "8080"),
			Env:        getEnv("APP_ENV", "development"),
			LogLevel:   p.level("LOG_LEVEL", zerolog.InfoLevel),
			RequireTLS: p.boolean("REQUIRE_TLS", false),
		},
		WAQI: WAQIConfig{
			Token:   os.Getenv("API_TOKEN"),
			BaseURL: getEnv("WAQI_BASE_URL", "https://api.waqi.info"),
			Timeout: p.duration("FETCH_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			TTL:        p.duration("CACHE_TTL", 10*time.Minute),
			MaxEntries: p.integer("CACHE_MAX_ENTRIES", 256),
		},
		Mail: MailConfig{
			Host:        getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:        p.integer("SMTP_PORT", 465),
			Username:    os.Getenv("SENDER_EMAIL"),
			Password:    os.Getenv("SENDER_PASSWORD"),
			DialTimeout: p.duration("SMTP_DIAL_TIMEOUT", 15*time.Second),
		},
		Dashboard: DashboardConfig{
			DefaultCity:    getEnv("DEFAULT_CITY", "Bangalore"),
			StylesheetPath: getEnv("STYLESHEET_PATH", "style.css"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      p.boolean("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  p.ratio("OTEL_TRACES_SAMPLER_ARG", 1),
		},
		PubSub: PubSubConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Subscription: getEnv("PUBSUB_SUBSCRIPTION", "ecowatch-render"),
		},
	}

	if cfg.Cache.MaxEntries <= 0 {
		p.fail("CACHE_MAX_ENTRIES", strconv.Itoa(cfg.Cache.MaxEntries), errors.New("must be positive"))
	}
	if cfg.WAQI.Timeout <= 0 {
		p.fail("FETCH_TIMEOUT", cfg.WAQI.Timeout.String(), errors.New("must be positive"))
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so all bad values are reported at once.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return b
}

func (p *parser) level(key string, def zerolog.Level) zerolog.Level {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return lvl
}

// ratio parses a float in [0, 1].
func (p *parser) ratio(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	if f < 0 || f > 1 {
		p.fail(key, raw, errors.New("must be between 0 and 1"))
		return def
	}
	return f
}
