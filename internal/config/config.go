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
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	SinkMongo    = "mongo"
	SinkPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      string
	LogLevel  string
	ServerURL string
	ClientURL string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	SearchIndex       string

	AnalyticsSink   string
	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnMaxIdle   time.Duration
	DBConnMaxLife   time.Duration
	AnalyticsPurge  time.Duration
	RedisURL        string
	SessionSecret   string
	SessionTTL      time.Duration
	CASBaseURL      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	DirectoryURL     string
	DirectoryAPIKey  string
	DirectoryTimeout time.Duration
	DirectoryRate    float64
	DirectoryBurst   int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	UploadsDir string

	SubmitLimit  int
	SubmitWindow time.Duration

	Synonyms map[string]string
}

func (c Config) IsDevelopment() bool {
	return c.Env != EnvProduction
}

// fileConfig is the optional YAML overlay. Environment variables win over it.
type fileConfig struct {
	Synonyms   map[string]string `yaml:"synonyms"`
	RateLimits struct {
		Submit struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"submit"`
	} `yaml:"rate_limits"`
	Directory struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"directory"`
}

// Load reads envFile into the environment when it exists, then the YAML file
// named by CONFIG_FILE, then the environment itself.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	submitLimit := 10
	if file.RateLimits.Submit.Limit > 0 {
		submitLimit = file.RateLimits.Submit.Limit
	}
	submitWindow := 15 * time.Minute
	if w, err := time.ParseDuration(file.RateLimits.Submit.Window); err == nil && w > 0 {
		submitWindow = w
	}
	dirRate := 5.0
	if file.Directory.RatePerSecond > 0 {
		dirRate = file.Directory.RatePerSecond
	}
	dirBurst := 5
	if file.Directory.Burst > 0 {
		dirBurst = file.Directory.Burst
	}

	port := envOr("PORT", "4000")
	cfg := Config{
		Env:               strings.ToLower(envOr("APP_ENV", EnvDevelopment)),
		Port:              port,
		LogLevel:          envOr("LOG_LEVEL", "info"),
		ServerURL:         strings.TrimRight(envOr("SERVER_BASE_URL", "http://localhost:"+port), "/"),
		ClientURL:         strings.TrimRight(envOr("CLIENT_BASE_URL", "http://localhost:3000"), "/"),
		MongoURI:          envOr("MONGO_URI", ""),
		MongoDatabase:     envOr("MONGO_DATABASE", "ylabs"),
		MongoTransactions: boolOr("MONGO_TRANSACTIONS", true),
		SearchIndex:       envOr("SEARCH_INDEX", "default"),
		AnalyticsSink:     strings.ToLower(envOr("ANALYTICS_SINK", SinkMongo)),
		DatabaseURL:       envOr("DATABASE_URL", ""),
		DBMaxOpenConns:    intOr("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    intOr("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxIdle:     durationOr("DB_CONN_MAX_IDLE", 5*time.Minute),
		DBConnMaxLife:     durationOr("DB_CONN_MAX_LIFE", 30*time.Minute),
		AnalyticsPurge:    durationOr("ANALYTICS_PURGE_INTERVAL", 24*time.Hour),
		RedisURL:          envOr("REDIS_URL", ""),
		SessionSecret:     envOr("SESSION_SECRET", ""),
		SessionTTL:        durationOr("SESSION_TTL", 365*24*time.Hour),
		CASBaseURL:        envOr("CAS_BASE_URL", "https://secure.its.yale.edu/cas"),
		RequestTimeout:    durationOr("REQUEST_TIMEOUT", 15*time.Second),
		ShutdownTimeout:   durationOr("SHUTDOWN_TIMEOUT", 10*time.Second),
		DirectoryURL:      envOr("YALIES_API_URL", "https://api.yalies.io"),
		DirectoryAPIKey:   envOr("YALIES_API_KEY", ""),
		DirectoryTimeout:  durationOr("YALIES_TIMEOUT", 5*time.Second),
		DirectoryRate:     floatOr("YALIES_RATE_PER_SEC", dirRate),
		DirectoryBurst:    intOr("YALIES_BURST", dirBurst),
		SMTPHost:          envOr("SMTP_HOST", ""),
		SMTPPort:          intOr("SMTP_PORT", 587),
		SMTPUser:          envOr("SMTP_USER", ""),
		SMTPPassword:      envOr("SMTP_PASSWORD", ""),
		MailFrom:          envOr("MAIL_FROM", "noreply@yalelabs.io"),
		UploadsDir:        envOr("UPLOADS_DIR", "uploads"),
		SubmitLimit:       intOr("SUBMIT_RATE_LIMIT", submitLimit),
		SubmitWindow:      durationOr("SUBMIT_RATE_WINDOW", submitWindow),
		Synonyms:          file.Synonyms,
	}

	missing := make([]string, 0, 3)
	if cfg.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if cfg.AnalyticsSink == SinkPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.AnalyticsSink != SinkMongo && cfg.AnalyticsSink != SinkPostgres {
		return Config{}, fmt.Errorf("ANALYTICS_SINK must be %q or %q", SinkMongo, SinkPostgres)
	}
	if cfg.SubmitLimit <= 0 || cfg.SubmitWindow <= 0 {
		return Config{}, fmt.Errorf("rate limit values must be positive: SUBMIT_RATE_LIMIT, SUBMIT_RATE_WINDOW")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationOr(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return duration
}

func intOr(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func floatOr(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func boolOr(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
