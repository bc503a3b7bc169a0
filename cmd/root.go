package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/logging"
)

// rootCmd represents the base command for the todoagent application
var rootCmd = &cobra.Command{
	Use:   "todoagent",
	Short: "Conversational to-do list with an LLM agent",
	Long: `todoagent manages per-user task lists through a natural-language agent.

It can run as:
  - An HTTP API server with the agent, task, folder and calendar endpoints
  - An MCP (Model Context Protocol) server over streamable HTTP or stdio`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "todoagent version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("database-url", "", "Database URL (postgres://… or a SQLite path). Can also use DATABASE_URL env var.")
	rootCmd.PersistentFlags().String("log-format", logging.FormatJSON, "Log format: json or text. Can also use LOG_FORMAT env var.")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newPurgeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// newLogger builds the process logger. Logs always go to stderr so the
// stdio MCP transport keeps stdout for protocol frames.
func newLogger(cfg *Config) *slog.Logger {
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}
