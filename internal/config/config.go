package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration

	StoreDriver string
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	AutoMigrate bool

	JWTSecret        string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	BcryptCost       int
	CookieSecure     bool
	CookieDomain     string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	CacheMaxEntries    int
	CacheSweepInterval time.Duration
	CacheTTLPosts      time.Duration
	CacheTTLComments   time.Duration
	CacheTTLUsers      time.Duration
	CacheTTLStats      time.Duration

	AdminEmail    string
	AdminPassword string
	AdminName     string

	LogFormat      string
	LogLevel       string
	MetricsEnabled bool
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 1)),
		AutoMigrate: getBool("DB_AUTO_MIGRATE", true),

		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
		JWTAccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:    getDuration("JWT_REFRESH_TTL", 168*time.Hour),
		BcryptCost:       getInt("BCRYPT_COST", 10),
		CookieSecure:     getBool("COOKIE_SECURE", false),
		CookieDomain:     strings.TrimSpace(os.Getenv("COOKIE_DOMAIN")),

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 20),

		CacheMaxEntries:    getInt("CACHE_MAX_ENTRIES", 10000),
		CacheSweepInterval: getDuration("CACHE_SWEEP_INTERVAL", time.Minute),
		CacheTTLPosts:      getDuration("CACHE_TTL_POSTS", 120*time.Second),
		CacheTTLComments:   getDuration("CACHE_TTL_COMMENTS", 120*time.Second),
		CacheTTLUsers:      getDuration("CACHE_TTL_USERS", 300*time.Second),
		CacheTTLStats:      getDuration("CACHE_TTL_STATS", 120*time.Second),

		AdminEmail:    strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		MetricsEnabled: getBool("METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}

	if c.JWTRefreshTTL <= c.JWTAccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL")
	}

	for name, ttl := range map[string]time.Duration{
		"CACHE_TTL_POSTS":    c.CacheTTLPosts,
		"CACHE_TTL_COMMENTS": c.CacheTTLComments,
		"CACHE_TTL_USERS":    c.CacheTTLUsers,
		"CACHE_TTL_STATS":    c.CacheTTLStats,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
