package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/markdave123-py/integraldb/internal/core"
)

// Cache backends for fetched document bytes.
const (
	CacheLocal = "local"
	CacheS3    = "s3"
)

type Config struct {
	DatabaseURL string
	SslCertPath string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int

	EmbedRPS              float64
	EmbedBurst            int
	EmbedRateLimitBackoff time.Duration
	EmbedMaxRetries       int

	ChunkSize    int
	ChunkOverlap int
	MinTextChars int
	SyncWorkers  int

	UpdateInterval time.Duration
	StateFile      string

	EnableGmail     bool
	GmailMaxResults int64
	GmailLabel      string
	EnableDrive     bool
	DrivePageSize   int64

	GoogleCredentialsFile string
	GoogleTokenFile       string

	CacheBackend  string
	AttachmentDir string
	AwsAccessKey  string
	AwsSecretKey  string
	AwsRegion     string
	BucketName    string

	Port        string
	JWTSecret   string
	CORSOrigins []string
}

// LoadConfig loads the .env file (if any) and the environment variables and returns the config.
// It does not validate; call Validate before wiring clients.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: firstEnv("DATABASE_URL", "SUPABASE_DB_URL"),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),

		AIAPIKey:   firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY"),
		EmbedModel: getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),

		EmbedRPS:              getEnvFloat("EMBED_RPS", 5),
		EmbedBurst:            getEnvInt("EMBED_BURST", 5),
		EmbedRateLimitBackoff: getEnvDuration("EMBED_RATE_LIMIT_BACKOFF", 5*time.Second),
		EmbedMaxRetries:       getEnvInt("EMBED_MAX_RETRIES", 1),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MinTextChars: getEnvInt("MIN_TEXT_CHARS", 10),
		SyncWorkers:  getEnvInt("SYNC_WORKERS", 1),

		UpdateInterval: getEnvDuration("UPDATE_INTERVAL", time.Hour),
		StateFile:      getEnv("STATE_FILE", "ingest_state.json"),

		EnableGmail:     getEnvBool("ENABLE_GMAIL", true),
		GmailMaxResults: int64(getEnvInt("GMAIL_MAX_RESULTS", 50)),
		GmailLabel:      getEnv("GMAIL_LABEL", "INBOX"),
		EnableDrive:     getEnvBool("ENABLE_DRIVE", true),
		DrivePageSize:   int64(getEnvInt("DRIVE_PAGE_SIZE", 200)),

		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GoogleTokenFile:       getEnv("GOOGLE_TOKEN_FILE", "token.json"),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", CacheLocal)),
		AttachmentDir: getEnv("ATTACHMENT_DIR", "attachments"),
		AwsAccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:  getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:     getEnv("AWS_REGION", "us-east-2"),
		BucketName:    getEnv("BUCKET_NAME", ""),

		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:8501")),
	}

	return cfg
}

// Validate reports every missing or inconsistent setting in one ConfigurationError.
func (c *Config) Validate() error {
	var problems []string

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL not set")
	}
	if c.AIAPIKey == "" {
		problems = append(problems, "GOOGLE_API_KEY not set")
	}
	if c.ChunkSize <= 0 {
		problems = append(problems, "CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, fmt.Sprintf("CHUNK_OVERLAP=%d must be in [0, CHUNK_SIZE=%d)", c.ChunkOverlap, c.ChunkSize))
	}
	if c.SyncWorkers < 1 {
		problems = append(problems, "SYNC_WORKERS must be at least 1")
	}
	if c.EmbedMaxRetries < 0 {
		problems = append(problems, "EMBED_MAX_RETRIES must not be negative")
	}
	if !c.EnableGmail && !c.EnableDrive {
		problems = append(problems, "both ENABLE_GMAIL and ENABLE_DRIVE are false")
	}
	switch c.CacheBackend {
	case CacheLocal:
	case CacheS3:
		if c.AwsAccessKey == "" || c.AwsSecretKey == "" {
			problems = append(problems, "AWS credentials not set for CACHE_BACKEND=s3")
		}
		if c.BucketName == "" {
			problems = append(problems, "BUCKET_NAME not set for CACHE_BACKEND=s3")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", core.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Helper to read environment variables with a default fallback.
// Empty values count as unset; surrounding quotes are stripped.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		if v := strings.Trim(strings.TrimSpace(value), `"'`); v != "" {
			return v
		}
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := getEnv(k, ""); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config value is not a number, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

// getEnvDuration accepts Go durations ("90s") and bare integers as seconds ("3600").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
