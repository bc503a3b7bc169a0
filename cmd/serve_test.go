package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
	"github.com/teemow/todoagent/internal/tools/tasks_tools"
)

// newTestCmd defines the persistent root flags locally so loadConfig can be
// exercised without executing the command tree.
func newTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("env-file", "", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("log-format", "json", "")
	cmd.Flags().String("log-level", "info", "")
	return cmd
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "SUPABASE_JWT_SECRET", "SUPABASE_JWT_AUDIENCE",
		"OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "OPENROUTER_MODEL",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI",
		"TOKEN_ENCRYPTION_KEY", "TZ_LOCATION", "LOG_FORMAT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestStringFlagOrEnv(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		env      string
		expected string
	}{
		{name: "default", expected: "flag-default"},
		{name: "env overrides default", env: "from-env", expected: "from-env"},
		{name: "explicit flag wins", flag: "from-flag", env: "from-env", expected: "from-flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SETTING", tt.env)
			cmd := &cobra.Command{Use: "test"}
			cmd.Flags().String("setting", "flag-default", "")
			if tt.flag != "" {
				require.NoError(t, cmd.Flags().Set("setting", tt.flag))
			}
			assert.Equal(t, tt.expected, stringFlagOrEnv(cmd, "setting", "TEST_SETTING"))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("database url is required", func(t *testing.T) {
		clearEnv(t)
		_, err := loadConfig(newTestCmd(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "sqlite::memory:")

		cfg, err := loadConfig(newTestCmd(t))
		require.NoError(t, err)
		assert.Equal(t, "sqlite::memory:", cfg.DatabaseURL)
		assert.Equal(t, defaultLLMBaseURL, cfg.LLMBaseURL)
		assert.Equal(t, defaultLLMModel, cfg.LLMModel)
		assert.Empty(t, cfg.LLMAPIKey)
		assert.False(t, cfg.Google.Configured())
		assert.Equal(t, "json", cfg.LogFormat)
	})

	t.Run("environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "postgres://localhost/todo")
		t.Setenv("OPENROUTER_API_KEY", "sk-test")
		t.Setenv("OPENROUTER_MODEL", "openai/gpt-4o-mini")
		t.Setenv("GOOGLE_CLIENT_ID", "id")
		t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
		t.Setenv("GOOGLE_REDIRECT_URI", "https://todo.example.com/api/google-calendar/callback")
		t.Setenv("TZ_LOCATION", "Europe/Madrid")

		cfg, err := loadConfig(newTestCmd(t))
		require.NoError(t, err)
		assert.Equal(t, "sk-test", cfg.LLMAPIKey)
		assert.Equal(t, "openai/gpt-4o-mini", cfg.LLMModel)
		assert.True(t, cfg.Google.Configured())
		assert.Equal(t, "Europe/Madrid", cfg.Location.String())
	})

	t.Run("flag beats environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "postgres://from-env")
		cmd := newTestCmd(t)
		require.NoError(t, cmd.Flags().Set("database-url", "todo.db"))

		cfg, err := loadConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, "todo.db", cfg.DatabaseURL)
	})

	t.Run("invalid zone", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "todo.db")
		t.Setenv("TZ_LOCATION", "Mars/Olympus")

		_, err := loadConfig(newTestCmd(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TZ_LOCATION")
	})
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, loadDotEnv(""))
	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TODOAGENT_DOTENV_PROBE=loaded\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("TODOAGENT_DOTENV_PROBE") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("TODOAGENT_DOTENV_PROBE"))
}

func TestRunServe_RejectsIncompleteConfig(t *testing.T) {
	cfg := &Config{DatabaseURL: "todo.db"}

	tests := []struct {
		name    string
		opts    ServeOptions
		wantErr string
	}{
		{name: "unknown transport", opts: ServeOptions{Transport: "sse"}, wantErr: "unsupported transport"},
		{name: "http without jwt secret", opts: ServeOptions{Transport: transportHTTP}, wantErr: "SUPABASE_JWT_SECRET"},
		{name: "stdio without owner", opts: ServeOptions{Transport: transportStdio}, wantErr: "--owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runServe(cfg, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGenerateToolsMarkdown(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, nil)
	tools := tasks_tools.NewRegistry(sc, instrumentation.TransportMCP).Tools()

	markdown := generateToolsMarkdown(tools)

	assert.Contains(t, markdown, "# Tools Reference")
	assert.Contains(t, markdown, "- [createTask](#createtask)")
	assert.Contains(t, markdown, "### deleteTasksBulk")
	assert.Contains(t, markdown, "- `title` (string, required)")
	assert.Contains(t, markdown, "- `confirm` (boolean, required)")
	assert.Contains(t, markdown, string(tasks.PriorityHigh))
	assert.Less(t,
		strings.Index(markdown, "### createTask"),
		strings.Index(markdown, "### listFolders"),
		"tools keep their dispatch order")
}
