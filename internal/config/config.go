// Package config loads service configuration from the environment.
//
// Values come from process environment variables. An optional .env file in
// the working directory is loaded first (godotenv never overrides variables
// that are already set), which keeps local development to a single file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   int
	DBPath string
	AppURL string

	LogLevel slog.Level

	// Auth
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	SuperUserEmails    []string

	// Credits
	BaseCredits        int
	CreditPolicy       string // "success" or "all"
	CreditsRequirePaid bool

	// Generation
	Generator         string // "openai" or "mock"
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	DefaultModel      string
	DefaultSize       string
	DefaultQuality    string
	DefaultStyle      string
	GenerationTimeout time.Duration
	PollInterval      time.Duration
	WorkerCount       int
	TemplateDir       string

	// Queue
	QueueBackend  string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisQueueKey string

	// Storage
	StorageBackend string // "local" or "gcs"
	StorageDir     string
	GCSBucket      string
	CDNBaseURL     string

	// Payment
	StripeSecretKey string

	RemoveBgURL string
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, so tests can supply a map.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Port:   p.int("PORT", 8080),
		DBPath: p.str("DB_PATH", "data/ailogo.db"),

		LogLevel: p.level("LOG_LEVEL", slog.LevelInfo),

		JWTSecret:          p.str("JWT_SECRET", ""),
		GitHubClientID:     p.str("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: p.str("GITHUB_CLIENT_SECRET", ""),
		SuperUserEmails:    p.list("SUPER_USER_EMAILS"),

		BaseCredits:        p.int("BASE_CREDITS", 3),
		CreditPolicy:       p.str("CREDIT_POLICY", "success"),
		CreditsRequirePaid: p.bool("CREDITS_REQUIRE_PAID", true),

		Generator:         p.str("GENERATOR", "openai"),
		OpenAIAPIKey:      p.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     p.str("OPENAI_BASE_URL", "https://api.openai.com"),
		DefaultModel:      p.str("DEFAULT_MODEL", "dall-e-3"),
		DefaultSize:       p.str("DEFAULT_SIZE", "1024x1024"),
		DefaultQuality:    p.str("DEFAULT_QUALITY", "hd"),
		DefaultStyle:      p.str("DEFAULT_STYLE", "vivid"),
		GenerationTimeout: p.duration("GENERATION_TIMEOUT", 10*time.Minute),
		PollInterval:      p.duration("POLL_INTERVAL", 5*time.Second),
		WorkerCount:       p.int("WORKER_COUNT", 4),
		TemplateDir:       p.str("TEMPLATE_DIR", ""),

		QueueBackend:  p.str("QUEUE_BACKEND", "memory"),
		RedisAddr:     p.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword: p.str("REDIS_PASSWORD", ""),
		RedisQueueKey: p.str("REDIS_QUEUE_KEY", "ailogo:jobs"),

		StorageBackend: p.str("STORAGE_BACKEND", "local"),
		StorageDir:     p.str("STORAGE_DIR", "data/files"),
		GCSBucket:      p.str("GCS_BUCKET", ""),
		CDNBaseURL:     p.str("CDN_BASE_URL", ""),

		StripeSecretKey: p.str("STRIPE_SECRET_KEY", ""),
		RemoveBgURL:     p.str("REMOVEBG_URL", ""),
	}
	cfg.AppURL = strings.TrimRight(p.str("APP_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")
	cfg.GitHubCallbackURL = p.str("GITHUB_CALLBACK_URL", cfg.AppURL+"/auth/github/callback")
	if cfg.CDNBaseURL == "" && cfg.StorageBackend == "local" {
		cfg.CDNBaseURL = cfg.AppURL + "/files"
	}
	cfg.CDNBaseURL = strings.TrimRight(cfg.CDNBaseURL, "/")

	if len(p.errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(p.errs...))
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.BaseCredits < 0 {
		errs = append(errs, errors.New("BASE_CREDITS must not be negative"))
	}
	switch c.CreditPolicy {
	case "success", "all":
	default:
		errs = append(errs, fmt.Errorf("CREDIT_POLICY %q must be success or all", c.CreditPolicy))
	}
	switch c.Generator {
	case "mock":
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when GENERATOR=openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("GENERATOR %q must be openai or mock", c.Generator))
	}
	switch c.QueueBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when QUEUE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("QUEUE_BACKEND %q must be memory or redis", c.QueueBackend))
	}
	switch c.StorageBackend {
	case "local":
		if c.StorageDir == "" {
			errs = append(errs, errors.New("STORAGE_DIR is required when STORAGE_BACKEND=local"))
		}
	case "gcs":
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when STORAGE_BACKEND=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q must be local or gcs", c.StorageBackend))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.WorkerCount <= 0 {
		errs = append(errs, errors.New("WORKER_COUNT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsSuperUser reports whether email is listed in SUPER_USER_EMAILS.
func (c Config) IsSuperUser(email string) bool {
	if email == "" {
		return false
	}
	for _, e := range c.SuperUserEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a log level", key, v))
		return def
	}
	return l
}

func (p *parser) list(key string) []string {
	var out []string
	for _, s := range strings.Split(p.getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
