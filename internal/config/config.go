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

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "TIMESHEET_"

// insecureSecret is the development default; Validate refuses it elsewhere.
const insecureSecret = "supersecretkey"

type Config struct {
	Addr           string        `yaml:"addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	APITimeout     time.Duration `yaml:"timeout"`
	DatabasePath   string        `yaml:"database_path"`
	TokenDuration  time.Duration `yaml:"token_duration"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
	Locale         string        `yaml:"locale"`
	Brand          string        `yaml:"brand"`
	ExportDir      string        `yaml:"export_dir"`
	Workers        int           `yaml:"workers"`
	Log            LogConfig     `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig builds the configuration from environment defaults, then
// applies the YAML file at path when one is given.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:           getEnv("ADDR", ":8080"),
		JWTSecret:      getEnv("JWT_SECRET", insecureSecret),
		APITimeout:     getEnvDuration("TIMEOUT", 15*time.Second),
		DatabasePath:   getEnv("DATABASE_PATH", "timesheet.db"),
		TokenDuration:  getEnvDuration("TOKEN_DURATION", 24*time.Hour),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),
		Locale:         getEnv("LOCALE", "it"),
		Brand:          getEnv("BRAND", "Timesheet"),
		ExportDir:      getEnv("EXPORT_DIR", "exports"),
		Workers:        getEnvInt("WORKERS", 2),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Env returns the deployment environment, "production" unless
// TIMESHEET_ENV says otherwise.
func Env() string {
	return getEnv("ENV", "production")
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "addr cannot be empty")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "jwt_secret cannot be empty")
	} else if c.JWTSecret == insecureSecret && Env() != "development" {
		problems = append(problems, fmt.Sprintf("jwt_secret uses the insecure default; set %sJWT_SECRET or %sENV=development", EnvPrefix, EnvPrefix))
	}
	if c.APITimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid timeout %v: must be positive", c.APITimeout))
	}
	if c.TokenDuration < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid token_duration %v: must be at least 1 minute", c.TokenDuration))
	}
	if c.DatabasePath == "" {
		problems = append(problems, "database_path cannot be empty")
	}
	if c.ExportDir == "" {
		problems = append(problems, "export_dir cannot be empty")
	}
	switch strings.ToLower(c.Locale) {
	case "it", "en":
	default:
		problems = append(problems, fmt.Sprintf("invalid locale %q: must be one of [it en]", c.Locale))
	}
	if c.Workers < 1 || c.Workers > 64 {
		problems = append(problems, fmt.Sprintf("invalid workers %d: must be between 1 and 64", c.Workers))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log.format %q: must be text or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
