package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/google"
)

const (
	defaultLLMBaseURL = "https://openrouter.ai/api/v1"
	defaultLLMModel   = "anthropic/claude-3-haiku"
)

// Config is the process configuration assembled from flags, the
// environment and an optional .env file.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	JWTAudience string

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	Google        google.Config
	EncryptionKey string

	Location *time.Location

	LogFormat string
	LogLevel  string
}

// loadDotEnv reads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// stringFlagOrEnv returns the flag value when it was set explicitly, then the
// environment variable, then the flag default.
func stringFlagOrEnv(cmd *cobra.Command, flag, env string) string {
	value, _ := cmd.Flags().GetString(flag)
	if cmd.Flags().Changed(flag) {
		return value
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return value
}

// envOrDefault returns the trimmed environment value or def.
func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// loadConfig resolves the configuration shared by every command that talks
// to the database. Only DATABASE_URL is required here; serve checks the rest.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: stringFlagOrEnv(cmd, "database-url", "DATABASE_URL"),
		JWTSecret:   envOrDefault("SUPABASE_JWT_SECRET", ""),
		JWTAudience: envOrDefault("SUPABASE_JWT_AUDIENCE", ""),
		LLMAPIKey:   envOrDefault("OPENROUTER_API_KEY", ""),
		LLMBaseURL:  envOrDefault("OPENROUTER_BASE_URL", defaultLLMBaseURL),
		LLMModel:    envOrDefault("OPENROUTER_MODEL", defaultLLMModel),
		Google: google.Config{
			ClientID:     envOrDefault("GOOGLE_CLIENT_ID", ""),
			ClientSecret: envOrDefault("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  envOrDefault("GOOGLE_REDIRECT_URI", ""),
		},
		EncryptionKey: envOrDefault("TOKEN_ENCRYPTION_KEY", ""),
		LogFormat:     stringFlagOrEnv(cmd, "log-format", "LOG_FORMAT"),
		LogLevel:      stringFlagOrEnv(cmd, "log-level", "LOG_LEVEL"),
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required (flag --database-url or env)")
	}

	loc, err := loadLocation(envOrDefault("TZ_LOCATION", ""))
	if err != nil {
		return nil, err
	}
	cfg.Location = loc
	return cfg, nil
}

// loadLocation resolves an IANA zone name. An empty name means the process
// local zone.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_LOCATION %q: %w", name, err)
	}
	return loc, nil
}
