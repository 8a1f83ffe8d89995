package infra

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAPIURL = "http://localhost:8080"

// Config represents application configuration loaded from environment variables.
// The client section drives cmd/apexgrab, the server section cmd/jobserver.
type Config struct {
	AppEnv string

	APIBaseURL      string
	PollInterval    time.Duration
	PollMaxFailures int
	RequestTimeout  time.Duration
	OutputDir       string
	StateDir        string
	SessionKey      string

	Port               string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	GeoIPDBPath        string
	CORSAllowedOrigins []string
	JobDuration        time.Duration
	JobTTL             time.Duration
}

// LoadDotEnv reads .env files when present. Missing files are not an error.
func LoadDotEnv() {
	_ = godotenv.Load(".env", ".env.local")
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "production"),
		APIBaseURL:         strings.TrimRight(getEnv("APEXGRAB_API_URL", defaultAPIURL), "/"),
		PollInterval:       time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 1000)),
		PollMaxFailures:    getEnvInt("POLL_MAX_FAILURES", 0),
		RequestTimeout:     time.Second * time.Duration(getEnvInt("HTTP_CLIENT_TIMEOUT_SECONDS", 30)),
		OutputDir:          getEnv("OUTPUT_DIR", "."),
		StateDir:           getEnv("APEXGRAB_STATE_DIR", defaultStateDir()),
		SessionKey:         getEnv("APEXGRAB_SESSION", strconv.Itoa(os.Getppid())),
		Port:               getEnv("PORT", "8080"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		JobDuration:        getEnvDuration("JOBSERVER_JOB_DURATION", 10*time.Second),
		JobTTL:             getEnvDuration("JOBSERVER_JOB_TTL", 30*time.Minute),
	}

	parsed, err := url.Parse(cfg.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("APEXGRAB_API_URL must be an absolute URL, got %q", cfg.APIBaseURL)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	if cfg.PollMaxFailures < 0 {
		return nil, fmt.Errorf("POLL_MAX_FAILURES must not be negative")
	}
	if cfg.JobDuration <= 0 {
		return nil, fmt.Errorf("JOBSERVER_JOB_DURATION must be positive")
	}

	return cfg, nil
}

func defaultStateDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "apexgrab")
	}
	return filepath.Join(dir, "apexgrab")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
