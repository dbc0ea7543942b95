// Package config loads runtime settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Services holds the base URL of every collaborator.
type Services struct {
	Auth      string `yaml:"auth"`
	Billing   string `yaml:"billing"`
	Customer  string `yaml:"customer"`
	Tables    string `yaml:"tables"`
	Dashboard string `yaml:"dashboard"`
}

// Credentials selects where the session tokens are persisted.
type Credentials struct {
	// Store is one of memory, file, postgres or redis.
	Store         string `yaml:"store"`
	Namespace     string `yaml:"namespace"`
	File          string `yaml:"file"`
	Passphrase    string `yaml:"passphrase"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type Config struct {
	Addr         string        `yaml:"addr"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	LoginTimeout time.Duration `yaml:"login_timeout"`
	Services     Services      `yaml:"services"`
	Credentials  Credentials   `yaml:"credentials"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Addr:         ":8080",
		HTTPTimeout:  10 * time.Second,
		LoginTimeout: 15 * time.Second,
		Services: Services{
			Auth:      "http://localhost:8001",
			Billing:   "http://localhost:8003",
			Customer:  "http://localhost:8004",
			Tables:    "http://localhost:8005",
			Dashboard: "http://localhost:8008",
		},
		Credentials: Credentials{
			Store:     "memory",
			Namespace: "default",
			File:      "restoadmin.credentials",
			RedisAddr: "localhost:6379",
		},
	}
}

// Load reads path (when non-empty and present) and applies environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	cfg.Addr = getenv("ADDR", cfg.Addr)
	cfg.HTTPTimeout = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.LoginTimeout = getenvDuration("LOGIN_TIMEOUT", cfg.LoginTimeout)

	cfg.Services.Auth = getenv("AUTH_API_URL", cfg.Services.Auth)
	cfg.Services.Billing = getenv("BILLING_API_URL", cfg.Services.Billing)
	cfg.Services.Customer = getenv("CUSTOMER_API_URL", cfg.Services.Customer)
	cfg.Services.Tables = getenv("TABLES_API_URL", cfg.Services.Tables)
	cfg.Services.Dashboard = getenv("DASHBOARD_API_URL", cfg.Services.Dashboard)

	c := &cfg.Credentials
	c.Store = getenv("CREDENTIAL_STORE", c.Store)
	c.Namespace = getenv("CREDENTIAL_NAMESPACE", c.Namespace)
	c.File = getenv("CREDENTIAL_FILE", c.File)
	c.Passphrase = getenv("CREDENTIAL_PASSPHRASE", c.Passphrase)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)
	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getenv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getenvInt("REDIS_DB", c.RedisDB)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Credentials.Store {
	case "memory":
	case "file":
		if c.Credentials.Passphrase == "" {
			return errors.New("CREDENTIAL_PASSPHRASE is required for the file credential store")
		}
	case "postgres":
		if c.Credentials.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres credential store")
		}
	case "redis":
	default:
		return fmt.Errorf("unknown credential store %q", c.Credentials.Store)
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
