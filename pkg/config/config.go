package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Planner    PlannerConfig
	Enrichment EnrichmentConfig
	Exports    ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlannerConfig controls the calendar allocation engine.
type PlannerConfig struct {
	InstructionalDays string
	MaxRangeDays      int
}

// EnrichmentConfig configures the external lesson enrichment call.
type EnrichmentConfig struct {
	Enabled          bool
	URL              string
	APIKey           string
	Timeout          time.Duration
	CacheTTL         time.Duration
	BreakerFailures  uint32
	BreakerTimeout   time.Duration
	Workers          int
	WorkerRetries    int
	WarmupRetryDelay time.Duration
}

// ExportsConfig controls rendered roadmap files and their download links.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Planner = PlannerConfig{
		InstructionalDays: v.GetString("INSTRUCTIONAL_DAYS"),
		MaxRangeDays:      v.GetInt("PLANNER_MAX_RANGE_DAYS"),
	}

	breakerFailures := v.GetInt("ENRICHMENT_BREAKER_FAILURES")
	if breakerFailures <= 0 {
		breakerFailures = 5
	}
	cfg.Enrichment = EnrichmentConfig{
		Enabled:          v.GetBool("ENABLE_ENRICHMENT"),
		URL:              v.GetString("ENRICHMENT_URL"),
		APIKey:           v.GetString("ENRICHMENT_API_KEY"),
		Timeout:          parseDuration(v.GetString("ENRICHMENT_TIMEOUT"), 20*time.Second),
		CacheTTL:         parseDuration(v.GetString("ENRICHMENT_CACHE_TTL"), 24*time.Hour),
		BreakerFailures:  uint32(breakerFailures),
		BreakerTimeout:   parseDuration(v.GetString("ENRICHMENT_BREAKER_TIMEOUT"), time.Minute),
		Workers:          v.GetInt("ENRICHMENT_WORKERS"),
		WorkerRetries:    v.GetInt("ENRICHMENT_WORKER_RETRIES"),
		WarmupRetryDelay: parseDuration(v.GetString("ENRICHMENT_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "term_roadmap")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "sma-roadmap-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("INSTRUCTIONAL_DAYS", "SUN,MON,TUE,WED,THU")
	v.SetDefault("PLANNER_MAX_RANGE_DAYS", 731)

	v.SetDefault("ENABLE_ENRICHMENT", false)
	v.SetDefault("ENRICHMENT_URL", "")
	v.SetDefault("ENRICHMENT_API_KEY", "")
	v.SetDefault("ENRICHMENT_TIMEOUT", "20s")
	v.SetDefault("ENRICHMENT_CACHE_TTL", "24h")
	v.SetDefault("ENRICHMENT_BREAKER_FAILURES", 5)
	v.SetDefault("ENRICHMENT_BREAKER_TIMEOUT", "1m")
	v.SetDefault("ENRICHMENT_WORKERS", 1)
	v.SetDefault("ENRICHMENT_WORKER_RETRIES", 2)
	v.SetDefault("ENRICHMENT_RETRY_DELAY", "5s")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
}

// isMissingFile tolerates an absent .env when SetConfigFile points at it explicitly.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
