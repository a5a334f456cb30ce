package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SessionStoreRedis  = "redis"
	SessionStoreCookie = "cookie"
)

// EnvConfigFile names an optional YAML file whose keys mirror the env names
const EnvConfigFile = "TASKDASH_CONFIG"

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPath        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	SessionStore  string
	SessionSecret string
	GinMode       string
	ListenAddr    string
	PageCache     bool
	PageCacheTTL  time.Duration
	StrictReads   bool
	LogLevel      string
	LogFormat     string
	OpenAIAPIKey  string
}

var defaults = map[string]any{
	"DB_DRIVER":      DriverMySQL,
	"DB_HOST":        "localhost",
	"DB_PORT":        "3306",
	"DB_USER":        "taskuser",
	"DB_PASSWORD":    "taskpassword",
	"DB_NAME":        "task_management",
	"DB_PATH":        "taskdash.db",
	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     "6379",
	"REDIS_PASSWORD": "",
	"SESSION_STORE":  SessionStoreRedis,
	"SESSION_SECRET": "default-secret-key-change-me",
	"GIN_MODE":       "debug",
	"LISTEN_ADDR":    ":8080",
	"PAGE_CACHE":     true,
	"PAGE_CACHE_TTL": "5m",
	"STRICT_READS":   false,
	"LOG_LEVEL":      "info",
	"LOG_FORMAT":     "text",
	"OPENAI_API_KEY": "",
}

// Load reads configuration from the environment, layered over an optional
// config file named by TASKDASH_CONFIG.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		DBDriver:      strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBUser:        v.GetString("DB_USER"),
		DBPassword:    v.GetString("DB_PASSWORD"),
		DBName:        v.GetString("DB_NAME"),
		DBPath:        v.GetString("DB_PATH"),
		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		SessionStore:  strings.ToLower(v.GetString("SESSION_STORE")),
		SessionSecret: v.GetString("SESSION_SECRET"),
		GinMode:       v.GetString("GIN_MODE"),
		ListenAddr:    v.GetString("LISTEN_ADDR"),
		PageCache:     v.GetBool("PAGE_CACHE"),
		PageCacheTTL:  v.GetDuration("PAGE_CACHE_TTL"),
		StrictReads:   v.GetBool("STRICT_READS"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     strings.ToLower(v.GetString("LOG_FORMAT")),
		OpenAIAPIKey:  v.GetString("OPENAI_API_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.SessionStore {
	case SessionStoreRedis, SessionStoreCookie:
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}

	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.PageCacheTTL < 0 {
		return fmt.Errorf("PAGE_CACHE_TTL must not be negative")
	}
	return nil
}

// RedisAddr returns host:port for the Redis server
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProduction reports whether gin runs in release mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
