package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

const (
	AIModeMock    = "mock"
	AIModeGateway = "gateway"
)

const DefaultJWTSecret = "change_me"

type S3Config struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	PresignTTLSeconds int
}

func (c S3Config) MissingRequired() []string {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "S3_REGION")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

func (c S3Config) Diagnostics() (level string, code string, msg string) {
	allEmpty := strings.TrimSpace(c.Endpoint) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Bucket) == "" &&
		strings.TrimSpace(c.AccessKeyID) == "" &&
		strings.TrimSpace(c.SecretAccessKey) == ""

	if allEmpty {
		return "info", "s3_not_configured", "not configured (all empty)"
	}

	missing := c.MissingRequired()
	if len(missing) > 0 {
		return "warn", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}

	return "info", "s3_ready", "ready"
}

// DiagnosticsSummary returns a summary for logging. Secrets are reported as set/not set.
func (c S3Config) DiagnosticsSummary() string {
	return fmt.Sprintf("endpoint=%s region=%s bucket=%s presign_ttl=%ds access_key_id=%s secret_access_key=%s",
		NonEmptyOrDash(c.Endpoint),
		NonEmptyOrDash(c.Region),
		NonEmptyOrDash(c.Bucket),
		c.PresignTTLSeconds,
		SetOrNot(c.AccessKeyID),
		SetOrNot(c.SecretAccessKey),
	)
}

type BlobConfig struct {
	Mode string // local|s3|auto
	S3   S3Config
}

type AIConfig struct {
	Mode            string // mock | gateway
	GatewayURL      string
	GatewayAPIKey   string
	Model           string
	MaxOutputTokens int
	Temperature     float64
}

type ChatConfig struct {
	HistoryLimit int
	TimeZone     string
	AgentSlug    string
}

// Config holds the process configuration resolved from the environment.
type Config struct {
	Env      string // local | staging | production
	Port     int
	LogLevel string

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string
	DatabaseURLPooled string
	DatabaseURLDirect string
	SQLitePath        string

	RunMigrationsOnStartup bool

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate limiting
	RateLimitRPS        int
	RateLimitBurst      int
	DemoChatPerMinute   int
	DemoChatBurst       int
	UploadMaxImageBytes int

	// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP replace the peer
	// address. Only enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// Auth
	JWTSecret      string
	JWTIssuer      string
	JWTTTLMinutes  int
	AuthDevEnabled bool

	Blob BlobConfig
	AI   AIConfig
	Chat ChatConfig

	// Warnings collected while resolving values; logged by the caller once a logger exists.
	Warnings []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	return LoadFrom(v)
}

// LoadFrom resolves configuration from the given viper instance.
func LoadFrom(v *viper.Viper) *Config {
	setDefaults(v)

	cfg := &Config{}

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	if env == "" {
		env = strings.ToLower(strings.TrimSpace(v.GetString("ENV")))
	}
	if env == "" {
		env = "local"
	}
	cfg.Env = env
	cfg.Port = v.GetInt("PORT")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL")))

	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	cfg.DatabaseURLPooled = strings.TrimSpace(v.GetString("DATABASE_URL_POOLED"))
	cfg.DatabaseURLRaw = strings.TrimSpace(v.GetString("DATABASE_URL"))
	cfg.DatabaseURLDirect = strings.TrimSpace(v.GetString("DATABASE_URL_DIRECT"))
	cfg.DatabaseURL = firstNonEmpty(cfg.DatabaseURLPooled, cfg.DatabaseURLRaw, cfg.DatabaseURLDirect)
	cfg.SQLitePath = strings.TrimSpace(v.GetString("SQLITE_PATH"))
	cfg.RunMigrationsOnStartup = v.GetBool("RUN_MIGRATIONS_ON_STARTUP")

	cfg.CORSAllowedOrigins = parseCORSOrigins(v.GetString("CORS_ALLOWED_ORIGINS"), env)
	cfg.CORSAllowCredentials = v.GetBool("CORS_ALLOW_CREDENTIALS")

	cfg.RateLimitRPS = v.GetInt("RATE_LIMIT_RPS")
	cfg.RateLimitBurst = v.GetInt("RATE_LIMIT_BURST")
	cfg.DemoChatPerMinute = positiveOr(v.GetInt("DEMO_CHAT_PER_MINUTE"), 10)
	cfg.DemoChatBurst = positiveOr(v.GetInt("DEMO_CHAT_BURST"), 3)
	cfg.TrustProxyHeaders = v.GetBool("TRUST_PROXY_HEADERS")
	cfg.UploadMaxImageBytes = positiveOr(v.GetInt("UPLOAD_MAX_IMAGE_MB"), 8) * 1024 * 1024

	cfg.JWTSecret = strings.TrimSpace(v.GetString("JWT_SECRET"))
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultJWTSecret
	}
	if cfg.JWTSecret == DefaultJWTSecret && env != "local" {
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET is set to the default value in a non-local environment")
	}
	cfg.JWTIssuer = strings.TrimSpace(v.GetString("JWT_ISSUER"))
	cfg.JWTTTLMinutes = positiveOr(v.GetInt("JWT_TTL_MINUTES"), 10080)
	if v.IsSet("AUTH_DEV_ENABLED") {
		cfg.AuthDevEnabled = v.GetBool("AUTH_DEV_ENABLED")
	} else {
		cfg.AuthDevEnabled = env == "local"
	}

	cfg.Blob = BlobConfig{
		Mode: parseMode(cfg, "BLOB_MODE", v.GetString("BLOB_MODE"), BlobModeLocal, BlobModeLocal, BlobModeS3, BlobModeAuto),
		S3: S3Config{
			Endpoint:          strings.TrimSpace(v.GetString("S3_ENDPOINT")),
			Region:            strings.TrimSpace(v.GetString("S3_REGION")),
			Bucket:            strings.TrimSpace(v.GetString("S3_BUCKET")),
			AccessKeyID:       strings.TrimSpace(v.GetString("S3_ACCESS_KEY_ID")),
			SecretAccessKey:   strings.TrimSpace(v.GetString("S3_SECRET_ACCESS_KEY")),
			PresignTTLSeconds: positiveOr(v.GetInt("S3_PRESIGN_TTL_SECONDS"), 900),
		},
	}

	temperature := v.GetFloat64("AI_TEMPERATURE")
	if temperature < 0 {
		temperature = 0
	}
	if temperature > 2 {
		temperature = 2
	}
	cfg.AI = AIConfig{
		Mode:            parseMode(cfg, "AI_MODE", v.GetString("AI_MODE"), AIModeMock, AIModeMock, AIModeGateway),
		GatewayURL:      strings.TrimRight(strings.TrimSpace(v.GetString("AI_GATEWAY_URL")), "/"),
		GatewayAPIKey:   strings.TrimSpace(v.GetString("AI_GATEWAY_API_KEY")),
		Model:           strings.TrimSpace(v.GetString("AI_MODEL")),
		MaxOutputTokens: positiveOr(v.GetInt("AI_MAX_OUTPUT_TOKENS"), 1200),
		Temperature:     temperature,
	}

	cfg.Chat = ChatConfig{
		HistoryLimit: positiveOr(v.GetInt("CHAT_HISTORY_LIMIT"), 20),
		TimeZone:     strings.TrimSpace(v.GetString("CHAT_TIMEZONE")),
		AgentSlug:    strings.TrimSpace(v.GetString("CHAT_AGENT_SLUG")),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("JWT_ISSUER", "orbitha")
	v.SetDefault("JWT_TTL_MINUTES", 10080)
	v.SetDefault("BLOB_MODE", BlobModeLocal)
	v.SetDefault("AI_MODE", AIModeMock)
	v.SetDefault("AI_GATEWAY_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("AI_MODEL", "google/gemini-2.5-flash")
	v.SetDefault("AI_MAX_OUTPUT_TOKENS", 1200)
	v.SetDefault("AI_TEMPERATURE", 0.7)
	v.SetDefault("CHAT_HISTORY_LIMIT", 20)
	v.SetDefault("CHAT_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("CHAT_AGENT_SLUG", "orbitha-fitness")
	v.SetDefault("DEMO_CHAT_PER_MINUTE", 10)
	v.SetDefault("DEMO_CHAT_BURST", 3)
	v.SetDefault("UPLOAD_MAX_IMAGE_MB", 8)
	v.SetDefault("S3_PRESIGN_TTL_SECONDS", 900)
}

// IsProduction reports whether the environment requires the hardened checks.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "staging"
}

// Validate returns the configuration problems that must stop a non-local deployment.
func (c *Config) Validate() []string {
	var problems []string

	if c.Blob.Mode == BlobModeS3 {
		if missing := c.Blob.S3.MissingRequired(); len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("BLOB_MODE=s3 but S3 config is incomplete, missing: %s", strings.Join(missing, ", ")))
		}
	}

	if c.AI.Mode == AIModeGateway && c.AI.GatewayAPIKey == "" {
		problems = append(problems, "AI_GATEWAY_API_KEY is required when AI_MODE=gateway")
	}

	if c.IsProduction() {
		if c.JWTSecret == DefaultJWTSecret {
			problems = append(problems, fmt.Sprintf("JWT_SECRET must not be %q in %s", DefaultJWTSecret, c.Env))
		}
		if c.DatabaseURL == "" && c.SQLitePath == "" {
			problems = append(problems, fmt.Sprintf("no DATABASE_URL or SQLITE_PATH configured in %s", c.Env))
		}
		if c.AuthDevEnabled {
			problems = append(problems, fmt.Sprintf("AUTH_DEV_ENABLED must be off in %s", c.Env))
		}
	}

	return problems
}

func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:5173"}
		}
		return nil
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func parseMode(cfg *Config, key, raw, defaultVal string, allowed ...string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	if mode == "" {
		return defaultVal
	}
	for _, a := range allowed {
		if mode == a {
			return mode
		}
	}
	cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown %s=%q, fallback to %s", key, mode, defaultVal))
	return defaultVal
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func SetOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func NonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}
