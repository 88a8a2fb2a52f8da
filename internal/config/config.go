package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Dispatch DispatchConfig
	Watch    WatchConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PostgresConfig is optional. With an empty Name the action journal is off.
type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

func (c PostgresConfig) Enabled() bool {
	return c.Name != ""
}

type CacheConfig struct {
	FieldsTTL time.Duration
	PricesTTL time.Duration
}

type DispatchConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

// WatchConfig is read by courtwatch only.
type WatchConfig struct {
	Token    string
	Date     string
	Interval time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var (
		cfg Config
		err error
	)

	cfg.Server.Host = getEnv("SERVER_HOST", "localhost")
	if cfg.Server.Port, err = getInt("SERVER_PORT", 8080); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, o)
			}
		}
	}

	cfg.Backend.BaseURL = strings.TrimSpace(os.Getenv("BACKEND_BASE_URL"))
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("%s: missing BACKEND_BASE_URL", op)
	}
	if u, perr := url.Parse(cfg.Backend.BaseURL); perr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid BACKEND_BASE_URL %q", op, cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout, err = getDuration("BACKEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Backend.RPS, err = getFloat("BACKEND_RPS", 10); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Backend.Burst, err = getInt("BACKEND_BURST", 5); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Postgres.Name = os.Getenv("POSTGRES_DB")
	if cfg.Postgres.Enabled() {
		cfg.Postgres.Host = getEnv("POSTGRES_HOST", "localhost")
		if cfg.Postgres.Port, err = getInt("POSTGRES_PORT", 5432); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		cfg.Postgres.User = os.Getenv("POSTGRES_USER")
		if cfg.Postgres.User == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
		}

		cfg.Postgres.Password = os.Getenv("POSTGRES_PASSWORD")
		if cfg.Postgres.Password == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
		}

		cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", "disable")
	}

	if cfg.Cache.FieldsTTL, err = getDuration("CACHE_FIELDS_TTL", 60*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Cache.PricesTTL, err = getDuration("CACHE_PRICES_TTL", 60*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Dispatch.RateLimit, err = getInt("DISPATCH_RATE_LIMIT", 10); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Dispatch.RateWindow, err = getDuration("DISPATCH_RATE_WINDOW", time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Watch.Token = os.Getenv("BOOKING_TOKEN")
	cfg.Watch.Date = os.Getenv("WATCH_DATE")
	if cfg.Watch.Interval, err = getDuration("WATCH_INTERVAL", time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
