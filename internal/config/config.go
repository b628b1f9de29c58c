// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	Invite   InviteConfig
	Auth     AuthConfig
	Email    EmailConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig selects and configures the storage driver.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// Path is the database file location (sqlite only).
	Path string
	// DSN is the connection string (postgres only).
	DSN string
}

// InviteConfig holds invitation issuance configuration.
type InviteConfig struct {
	// BaseURL is the frontend origin signup links point at.
	BaseURL string
	// TTL is how long an invitation stays consumable.
	TTL time.Duration
	// TokenBytes is the entropy of invitation tokens in bytes.
	TokenBytes int
	// PublicRPS and PublicBurst rate-limit the public token endpoints per
	// client IP.
	PublicRPS   float64
	PublicBurst int
}

// AuthConfig holds signup and authentication configuration.
type AuthConfig struct {
	PasswordMinLength int
}

// EmailConfig holds the email provider configuration. With an empty
// Endpoint or APIKey delivery is disabled and invitations are created
// without sending mail.
type EmailConfig struct {
	Endpoint string
	APIKey   string
	From     string
}

// Load reads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	port := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	dbDriver := flag.String("db-driver", "", "Database driver: sqlite or postgres (default: sqlite)")
	dbPath := flag.String("db-path", "", "SQLite database path (default: refhq.db)")
	dbDSN := flag.String("db-dsn", "", "Postgres connection string")

	baseURL := flag.String("base-url", "", "Frontend base URL for signup links")
	inviteTTL := flag.String("invite-ttl", "", "Invitation lifetime (default: 168h)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// .env fills gaps only; real env vars win.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*port, "SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Driver: getConfigValue(*dbDriver, "DB_DRIVER", "sqlite"),
			Path:   getConfigValue(*dbPath, "DB_PATH", "refhq.db"),
			DSN:    getConfigValue(*dbDSN, "DB_DSN", ""),
		},
		Invite: InviteConfig{
			BaseURL:     getConfigValue(*baseURL, "BASE_URL", "http://localhost:3000"),
			TokenBytes:  getIntConfigValue("", "INVITE_TOKEN_BYTES", 32),
			PublicRPS:   getFloatConfigValue("", "PUBLIC_RPS", 1),
			PublicBurst: getIntConfigValue("", "PUBLIC_BURST", 5),
		},
		Auth: AuthConfig{
			PasswordMinLength: getIntConfigValue("", "PASSWORD_MIN_LENGTH", 6),
		},
		Email: EmailConfig{
			Endpoint: getConfigValue("", "EMAIL_ENDPOINT", ""),
			APIKey:   getConfigValue("", "EMAIL_API_KEY", ""),
			From:     getConfigValue("", "EMAIL_FROM", "RefHQ <noreply@refhq.example>"),
		},
	}

	ttlStr := getConfigValue(*inviteTTL, "INVITE_TTL", "168h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid invite TTL %q: %w", ttlStr, err)
	}
	cfg.Invite.TTL = ttl

	for _, d := range []struct {
		dst  *time.Duration
		flag string
		env  string
		def  string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
	} {
		s := getConfigValue(d.flag, d.env, d.def)
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.env, s, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("DB_PATH is required with the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("DB_DSN is required with the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite or postgres)", c.Database.Driver)
	}

	if c.Invite.TTL <= 0 {
		return errors.New("invite TTL must be positive")
	}
	if c.Invite.TokenBytes < 16 {
		return fmt.Errorf("invite token bytes must be at least 16, got %d", c.Invite.TokenBytes)
	}
	if c.Invite.BaseURL == "" {
		return errors.New("BASE_URL is required")
	}
	if c.Auth.PasswordMinLength < 1 {
		return errors.New("password minimum length must be positive")
	}

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Real environment beats the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
