package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
	MaxUploadBytes int64

	DatabaseURL string
	SslCertPath string

	// object storage: "s3", "minio" or "none"
	StorageDriver  string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	RedisURL     string
	SelectionTTL time.Duration

	// agent: "workflow" or "gemini"
	AIProvider                string
	AIAPIKey                  string
	GenModel                  string
	EmbedModel                string
	EmbedDim                  int
	AITimeout                 time.Duration
	WorkflowAPIKey            string
	ReviewFlowURL             string
	RevisionFlowURL           string
	TranslateENFlowURL        string
	TranslateIDFlowURL        string
	TranslateBilingualFlowURL string
	ReferenceTopK             int

	// auth: "stub" or "jwt"
	AuthMode  string
	JWTSecret string
}

// LoadConfig loads the environment variables and return config. It exits the
// process when the configuration is unusable.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 25)) << 20,

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),

		StorageDriver:  getEnv("STORAGE_DRIVER", "s3"),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", "clausewise-contracts"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SelectionTTL: getEnvDuration("SELECTION_TTL", 24*time.Hour),

		AIProvider:                getEnv("AI_PROVIDER", "workflow"),
		AIAPIKey:                  getEnv("GEMINI_API_KEY", ""),
		GenModel:                  getEnv("GEN_MODEL", "gemini-1.5-flash"),
		EmbedModel:                getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:                  getEnvInt("EMBED_DIM", 768),
		AITimeout:                 getEnvDuration("AI_TIMEOUT", 5*time.Minute),
		WorkflowAPIKey:            getEnv("WORKFLOW_API_KEY", ""),
		ReviewFlowURL:             getEnv("REVIEW_FLOW_URL", ""),
		RevisionFlowURL:           getEnv("REVISION_FLOW_URL", ""),
		TranslateENFlowURL:        getEnv("TRANSLATE_EN_FLOW_URL", ""),
		TranslateIDFlowURL:        getEnv("TRANSLATE_ID_FLOW_URL", ""),
		TranslateBilingualFlowURL: getEnv("TRANSLATE_BILINGUAL_FLOW_URL", ""),
		ReferenceTopK:             getEnvInt("REFERENCE_TOP_K", 6),

		AuthMode:  getEnv("AUTH_MODE", "stub"),
		JWTSecret: getEnv("JWT_SECRET", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL not set")
	}
	if cfg.AuthMode == "jwt" && cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set when AUTH_MODE=jwt")
	}
	if cfg.AIProvider == "gemini" && cfg.AIAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY must be set when AI_PROVIDER=gemini")
	}

	return cfg, nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("env value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("env value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
