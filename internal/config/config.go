// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Home holds the encrypted secrets file.
	Home        string
	Passphrase  string
	DatabaseURL string
	// SecretsKey is the base64 AES key for secrets kept in Postgres.
	SecretsKey string

	MetricsAddr   string
	HTTPTimeout   time.Duration
	NotifyTimeout time.Duration
	LogLevel      slog.Level
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	home := os.Getenv("RAILSCHED_HOME")
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("RAILSCHED_HOME not set and no home directory: %w", err)
		}
		home = filepath.Join(dir, ".railsched")
	}
	cfg := Config{
		Home:        home,
		Passphrase:  os.Getenv("RAILSCHED_PASSPHRASE"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	var err error
	if cfg.HTTPTimeout, err = seconds("HTTP_TIMEOUT_SECONDS", 20); err != nil {
		return Config{}, err
	}
	if cfg.NotifyTimeout, err = seconds("NOTIFY_TIMEOUT_SECONDS", 10); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if key := os.Getenv("SECRETS_ENC_KEY"); key != "" {
		cfg.SecretsKey, err = readKey(key)
		if err != nil {
			return Config{}, fmt.Errorf("SECRETS_ENC_KEY: %w", err)
		}
	}
	if cfg.DatabaseURL != "" && cfg.SecretsKey == "" {
		return Config{}, fmt.Errorf("SECRETS_ENC_KEY is required with DATABASE_URL (32 bytes base64)")
	}
	return cfg, nil
}

// SecretsFile is the path of the local encrypted store.
func (c Config) SecretsFile() string { return filepath.Join(c.Home, "secrets.json") }

func seconds(name string, def int) (time.Duration, error) {
	n, err := strconv.Atoi(getenv(name, strconv.Itoa(def)))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return time.Duration(n) * time.Second, nil
}

// readKey accepts the key itself or a path to a file holding it, for
// mounted secrets.
func readKey(s string) (string, error) {
	if b, err := os.ReadFile(s); err == nil {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty key")
	}
	return s, nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
