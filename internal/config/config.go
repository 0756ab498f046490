package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config aggregates runtime configuration for the front-end server and the mock API.
type Config struct {
	App      AppConfig
	API      APIConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// APIConfig points at the remote exchange API.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// SessionConfig controls browser sessions and the token store.
type SessionConfig struct {
	CookieName    string
	CookieSecure  bool
	IdleMinutes   int
	MaxSessions   int
	TokenTTLHours int
	StoreBackend  string
	SweepMinutes  int
	AuthGraceMS   int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines the mock API's token and password parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminEmail            string
	AdminPassword         string
	MockAPIAddr           string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := strings.ToLower(getEnv("TOKEN_STORE_BACKEND", StoreMemory))
	switch backend {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return nil, fmt.Errorf("invalid TOKEN_STORE_BACKEND: %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "exchange-web"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(getEnv("API_URL", "http://127.0.0.1:8080/api"), "/"),
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 10),
		},
		Session: SessionConfig{
			CookieName:    getEnv("SESSION_COOKIE_NAME", "sid"),
			CookieSecure:  getEnvAsBool("SESSION_COOKIE_SECURE", false),
			IdleMinutes:   getEnvAsInt("SESSION_IDLE_MINUTES", 30),
			MaxSessions:   getEnvAsInt("SESSION_MAX", 10000),
			TokenTTLHours: getEnvAsInt("SESSION_TOKEN_TTL_HOURS", 24*7),
			StoreBackend:  backend,
			SweepMinutes:  getEnvAsInt("SESSION_SWEEP_MINUTES", 0),
			AuthGraceMS:   getEnvAsInt("SESSION_AUTH_GRACE_MS", 1500),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "exchange:token:"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail:            getEnv("AUTH_ADMIN_EMAIL", "admin@example.com"),
			AdminPassword:         os.Getenv("AUTH_ADMIN_PASSWORD"),
			MockAPIAddr:           getEnv("MOCK_API_ADDR", "127.0.0.1:8080"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout for the exchange API.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// IdleTimeout is how long an unused browser session stays in memory.
func (s SessionConfig) IdleTimeout() time.Duration {
	if s.IdleMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.IdleMinutes) * time.Minute
}

// TokenTTL bounds how long a persisted token survives in the store.
func (s SessionConfig) TokenTTL() time.Duration {
	if s.TokenTTLHours <= 0 {
		return 0
	}
	return time.Duration(s.TokenTTLHours) * time.Hour
}

// SweepInterval is how often the Postgres token store is pruned. Zero lets
// the sweeper derive it from the TTL.
func (s SessionConfig) SweepInterval() time.Duration {
	if s.SweepMinutes <= 0 {
		return 0
	}
	return time.Duration(s.SweepMinutes) * time.Minute
}

// AuthGrace is how long a guard waits for an in-flight resolution before
// rendering the loading placeholder.
func (s SessionConfig) AuthGrace() time.Duration {
	if s.AuthGraceMS <= 0 {
		return 0
	}
	return time.Duration(s.AuthGraceMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
