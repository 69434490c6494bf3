package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"roast-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	LogLevel        string

	// Critique provider.
	AIAPIKey          string
	ServiceRoleSecret string
	LLMProvider       string
	LLMEndpoint       string
	LLMModel          string
	LLMTemperature    float64
	LLMTopP           float64
	LLMTopK           int
	LLMMaxTokens      int
	CritiqueTimeout   time.Duration
	VertexProject     string
	VertexRegion      string

	// Roast records.
	DatabaseURL   string
	SQLitePath    string
	RedisURL      string
	CountCacheTTL time.Duration

	// Upload archive.
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	GCSBucket       string

	RoastRatePerMinute float64
	RoastRateBurst     int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" && os.Getenv("SQLITE_PATH") == "" {
		telemetry.Warn("config.no_database", map[string]any{"env": env})
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "*")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		AIAPIKey:          firstEnv("AI_API_KEY", "LOVABLE_API_KEY"),
		ServiceRoleSecret: os.Getenv("SERVICE_ROLE_SECRET"),
		LLMProvider:       normalizeProvider(getEnv("LLM_PROVIDER", "gateway")),
		LLMEndpoint:       getEnv("LLM_ENDPOINT", "https://ai.gateway.lovable.dev/v1/chat/completions"),
		LLMModel:          getEnv("LLM_MODEL", "google/gemini-2.5-flash"),
		LLMTemperature:    getEnvFloat("LLM_TEMPERATURE", 0.9),
		LLMTopP:           getEnvFloat("LLM_TOP_P", 0.95),
		LLMTopK:           getEnvInt("LLM_TOP_K", 40),
		LLMMaxTokens:      getEnvInt("LLM_MAX_OUTPUT_TOKENS", 2048),
		CritiqueTimeout:   getEnvDuration("CRITIQUE_TIMEOUT", 30*time.Second),
		VertexProject:     getEnv("VERTEX_PROJECT", os.Getenv("GOOGLE_CLOUD_PROJECT")),
		VertexRegion:      getEnv("VERTEX_REGION", "us-central1"),

		DatabaseURL:   dbURL,
		SQLitePath:    os.Getenv("SQLITE_PATH"),
		RedisURL:      os.Getenv("REDIS_URL"),
		CountCacheTTL: getEnvDuration("COUNT_CACHE_TTL", 30*time.Second),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "none")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		GCSBucket:       getEnv("GCS_BUCKET", ""),

		RoastRatePerMinute: getEnvFloat("ROAST_RATE_PER_MINUTE", 10),
		RoastRateBurst:     getEnvInt("ROAST_RATE_BURST", 3),
	}
	telemetry.SetLevel(cfg.LogLevel)
	return cfg
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := strings.TrimSpace(os.Getenv(k)); val != "" {
			return val
		}
	}
	return ""
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "error": err.Error()})
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid_float", map[string]any{"key": key, "error": err.Error()})
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs":
		return "gcs"
	case "local":
		return "local"
	default:
		return "none"
	}
}

// ParseProvider resolves a provider name or alias, ignoring case and
// surrounding space. Blank means gateway; ok is false for unknown names.
func ParseProvider(raw string) (name string, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "gateway":
		return "gateway", true
	case "openai":
		return "openai", true
	case "anthropic", "claude":
		return "anthropic", true
	case "vertex", "gemini":
		return "vertex", true
	}
	return "", false
}

func normalizeProvider(raw string) string {
	if name, ok := ParseProvider(raw); ok {
		return name
	}
	return "gateway"
}

// IsDevLike reports whether env allows in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
