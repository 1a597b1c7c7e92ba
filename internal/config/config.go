// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as the bot credentials, Redis connection, relay behavior, rate
// limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-feedback-bot/internal/domain"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the ops API.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-feedback-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AntiSpamConfig defines the per-user rate limiting policy.
type AntiSpamConfig struct {
	ThrottleAfter  int           // messages allowed per window
	ThrottleWindow time.Duration // width of the counting window
	SoftBanAfter   int           // throttling violations before a soft ban
	SoftBanFor     time.Duration // soft ban duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	BotToken    string // TELEGRAM_BOT_TOKEN, required
	AdminChatID int64  // ADMIN_CHAT_ID, required (group ids are negative)
	Greeting    string // reply to /start; empty uses the built-in text

	// Redis
	RedisURL  string // e.g. redis://localhost:6379/0
	KeyPrefix string // namespaces every key this instance writes

	// Relay behavior
	TicketsEnabled         bool          // post hashtag tickets in the admin chat
	ForceCategorySelection bool          // reject messages until a category is chosen
	LogToAdminChat         bool          // /log replays into the admin chat
	RetentionTTL           time.Duration // lifetime of routing and log records
	TicketGroupWindow      time.Duration // how long one ticket absorbs new messages
	UnansweredTag          string        // empty uses the built-in tag

	// Anti-spam
	AntiSpam AntiSpamConfig

	// Categories / languages
	Categories      []domain.Category // parsed from CATEGORIES, "name|Caption" CSV
	CategoryTTL     time.Duration     // lifetime of a user's category choice
	Languages       []string          // supported UI languages, BCP 47 codes
	DefaultLanguage string

	// Ops HTTP server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Rate limiting (ops API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Telegram
		BotToken:    getenv("TELEGRAM_BOT_TOKEN", ""),
		AdminChatID: getint64("ADMIN_CHAT_ID", 0),
		Greeting:    getenv("GREETING_TEXT", ""),

		// Redis
		RedisURL:  getenv("REDIS_URL", "redis://localhost:6379/0"),
		KeyPrefix: getenv("KEY_PREFIX", "feedback-bot"),

		// Relay behavior
		TicketsEnabled:         getbool("TICKETS_ENABLED", true),
		ForceCategorySelection: getbool("FORCE_CATEGORY_SELECTION", false),
		LogToAdminChat:         getbool("LOG_TO_ADMIN_CHAT", true),
		RetentionTTL:           getdur("RETENTION_TTL", 60*24*time.Hour),
		TicketGroupWindow:      getdur("TICKET_GROUP_WINDOW", 10*time.Minute),
		UnansweredTag:          getenv("UNANSWERED_TAG", ""),

		// Anti-spam
		AntiSpam: AntiSpamConfig{
			ThrottleAfter:  getint("THROTTLE_AFTER", 5),
			ThrottleWindow: getdur("THROTTLE_WINDOW", time.Minute),
			SoftBanAfter:   getint("SOFT_BAN_AFTER", 5),
			SoftBanFor:     getdur("SOFT_BAN_FOR", 24*time.Hour),
		},

		// Categories / languages
		CategoryTTL:     getdur("CATEGORY_TTL", 15*24*time.Hour),
		Languages:       splitCSV(getenv("LANGUAGES", "en")),
		DefaultLanguage: getenv("DEFAULT_LANGUAGE", "en"),

		// Ops HTTP server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Rate limiting (ops API)
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-feedback-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	cats, err := parseCategories(getenv("CATEGORIES", ""))
	if err != nil {
		return cfg, err
	}
	cfg.Categories = cats

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.BotToken) == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN must not be empty")
	}
	if cfg.AdminChatID == 0 {
		return cfg, errors.New("ADMIN_CHAT_ID must be set")
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return cfg, errors.New("REDIS_URL must not be empty")
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		return cfg, errors.New("KEY_PREFIX must not be empty")
	}
	if cfg.RetentionTTL <= 0 {
		return cfg, errors.New("RETENTION_TTL must be > 0")
	}
	if cfg.TicketGroupWindow <= 0 {
		return cfg, errors.New("TICKET_GROUP_WINDOW must be > 0")
	}
	if cfg.AntiSpam.ThrottleAfter < 1 {
		return cfg, errors.New("THROTTLE_AFTER must be >= 1")
	}
	if cfg.AntiSpam.ThrottleWindow <= 0 || cfg.AntiSpam.SoftBanFor <= 0 {
		return cfg, errors.New("anti-spam windows must be positive durations")
	}
	if cfg.AntiSpam.SoftBanAfter < 1 {
		return cfg, errors.New("SOFT_BAN_AFTER must be >= 1")
	}
	if cfg.ForceCategorySelection && len(cfg.Categories) == 0 {
		return cfg, errors.New("FORCE_CATEGORY_SELECTION requires CATEGORIES")
	}
	if cfg.CategoryTTL <= 0 {
		return cfg, errors.New("CATEGORY_TTL must be > 0")
	}
	if len(cfg.Languages) == 0 {
		return cfg, errors.New("LANGUAGES must not be empty")
	}
	if !contains(cfg.Languages, cfg.DefaultLanguage) {
		return cfg, errors.New("DEFAULT_LANGUAGE must be one of LANGUAGES")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// parseCategories decodes the CATEGORIES variable. Entries are
// comma-separated; each is "name" or "name|Button caption". Ids are
// assigned by position starting at 1, so keyboard payloads stay stable as
// long as the list order does.
func parseCategories(s string) ([]domain.Category, error) {
	entries := splitCSV(s)
	if len(entries) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]domain.Category, 0, len(entries))
	for i, e := range entries {
		name, caption, _ := strings.Cut(e, "|")
		name = strings.TrimSpace(name)
		caption = strings.TrimSpace(caption)
		if name == "" {
			return nil, fmt.Errorf("CATEGORIES entry %d has an empty name", i+1)
		}
		if strings.ContainsAny(name, " #") {
			return nil, fmt.Errorf("CATEGORIES name %q must be a bare hashtag word", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("CATEGORIES name %q is duplicated", name)
		}
		seen[name] = struct{}{}
		if caption == "" {
			caption = name
		}
		out = append(out, domain.Category{ID: i + 1, Name: name, Caption: caption})
	}
	return out, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
