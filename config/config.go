// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"os"
	"strings"
	"time"
)

const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Media    MediaConfig    `koanf:"media"`
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Feed     FeedConfig     `koanf:"feed"`
	Log      LogConfig      `koanf:"log"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s sslmode=disable host=%s port=%s",
		c.Username, c.Password, c.Name, c.Host, c.Port,
	)
}

// RedisConfig leaves the tag cache disabled when Host is empty.
type RedisConfig struct {
	Host       string        `koanf:"host"`
	Port       string        `koanf:"port"`
	Expiration time.Duration `koanf:"expiration"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type MediaConfig struct {
	// Backend is one of "badger", "http" or "memory".
	Backend     string        `koanf:"backend"`
	Path        string        `koanf:"path"`
	URL         string        `koanf:"url"`
	PublicURL   string        `koanf:"public_url"`
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
}

type ServerConfig struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

type FeedConfig struct {
	PageSize int `koanf:"page_size"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host: "localhost",
			Port: "5432",
			Name: "gramm",
		},
		Redis: RedisConfig{
			Port:       "6379",
			Expiration: 24 * time.Hour,
		},
		Media: MediaConfig{
			Backend:     "badger",
			Path:        "/data/media",
			PublicURL:   "/media",
			Timeout:     10 * time.Second,
			Concurrency: 4,
		},
		Server: ServerConfig{
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		Feed: FeedConfig{PageSize: 12},
		Log: LogConfig{
			Level:  "warning",
			Format: "text",
		},
	}
}

var envMappings = map[string]string{
	"db_host":           "database.host",
	"db_port":           "database.port",
	"db_username":       "database.username",
	"db_password":       "database.password",
	"db_name":           "database.name",
	"redis_host":        "redis.host",
	"redis_port":        "redis.port",
	"redis_expiration":  "redis.expiration",
	"media_backend":     "media.backend",
	"media_path":        "media.path",
	"media_url":         "media.url",
	"media_public_url":  "media.public_url",
	"media_timeout":     "media.timeout",
	"media_concurrency": "media.concurrency",
	"http_port":         "server.port",
	"jwt_secret":        "auth.jwt_secret",
	"jwt_ttl":           "auth.token_ttl",
	"bcrypt_cost":       "auth.bcrypt_cost",
	"feed_page_size":    "feed.page_size",
	"log_level":         "log.level",
	"log_format":        "log.format",
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps known variables onto config keys. Unknown ones map to ""
// and are ignored.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Media.Backend {
	case "badger", "memory":
	case "http":
		if c.Media.URL == "" {
			errs = append(errs, errors.New("MEDIA_URL is required for the http media backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media backend %q", c.Media.Backend))
	}
	if c.Media.Timeout <= 0 {
		errs = append(errs, errors.New("media timeout must be positive"))
	}
	if c.Media.Concurrency < 1 {
		errs = append(errs, errors.New("media concurrency must be at least 1"))
	}
	if c.Feed.PageSize < 1 {
		errs = append(errs, errors.New("feed page size must be at least 1"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port %d", c.Server.Port))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
