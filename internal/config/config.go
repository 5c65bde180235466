package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	HTTPPort string `yaml:"http_port"`
	LogLevel string `yaml:"log_level"`
	Env      string `yaml:"env"`

	WeatherBaseURL    string        `yaml:"weather_base_url"`
	WeatherAPIKey     string        `yaml:"weather_api_key"`
	CitySearchBaseURL string        `yaml:"city_search_base_url"`
	HTTPClientTimeout time.Duration `yaml:"-"`

	SessionBackend string        `yaml:"session_backend"`
	SessionTTL     time.Duration `yaml:"-"`
	SessionCookie  string        `yaml:"session_cookie"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	// Seconds in the YAML file; converted after parsing.
	HTTPClientTimeoutSeconds int `yaml:"http_client_timeout_seconds"`
	SessionTTLSeconds        int `yaml:"session_ttl_seconds"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:                 "8080",
		LogLevel:                 "info",
		WeatherBaseURL:           "https://api.openweathermap.org",
		CitySearchBaseURL:        "https://api.teleport.org/api",
		SessionBackend:           SessionBackendMemory,
		SessionCookie:            "weather_session",
		RedisAddr:                "localhost:6379",
		KafkaTopic:               "weather_observations",
		HTTPClientTimeoutSeconds: 10,
		SessionTTLSeconds:        1800,
	}
}

// Load reads an optional .env file, then the YAML file named by CONFIG_PATH,
// then applies environment overrides on top.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.WeatherBaseURL = strings.TrimRight(getEnv("WEATHER_BASE_URL", cfg.WeatherBaseURL), "/")
	cfg.WeatherAPIKey = getEnv("OWM_API_KEY", cfg.WeatherAPIKey)
	cfg.CitySearchBaseURL = strings.TrimRight(getEnv("CITY_SEARCH_BASE_URL", cfg.CitySearchBaseURL), "/")
	cfg.SessionBackend = strings.ToLower(getEnv("SESSION_BACKEND", cfg.SessionBackend))
	cfg.SessionCookie = getEnv("SESSION_COOKIE", cfg.SessionCookie)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.KafkaBrokers = getEnvSlice("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.HTTPClientTimeoutSeconds = getEnvInt("HTTP_CLIENT_TIMEOUT_SECONDS", cfg.HTTPClientTimeoutSeconds)
	cfg.SessionTTLSeconds = getEnvInt("SESSION_TTL_SECONDS", cfg.SessionTTLSeconds)

	cfg.HTTPClientTimeout = time.Duration(cfg.HTTPClientTimeoutSeconds) * time.Second
	cfg.SessionTTL = time.Duration(cfg.SessionTTLSeconds) * time.Second

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if c.HTTPClientTimeout <= 0 {
		return fmt.Errorf("http client timeout must be positive, got %s", c.HTTPClientTimeout)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
