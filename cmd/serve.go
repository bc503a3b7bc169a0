package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"
	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/todoagent/internal/agent"
	"github.com/teemow/todoagent/internal/api"
	"github.com/teemow/todoagent/internal/auth"
	"github.com/teemow/todoagent/internal/calendar"
	"github.com/teemow/todoagent/internal/chat"
	"github.com/teemow/todoagent/internal/database"
	"github.com/teemow/todoagent/internal/google"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/resources"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
	"github.com/teemow/todoagent/internal/tools/tasks_tools"
)

// Transport types
const (
	transportHTTP  = "streamable-http"
	transportStdio = "stdio"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// ServeOptions holds the serve flags after environment fallbacks
type ServeOptions struct {
	Transport string
	HTTPAddr  string

	// Owner is the fixed identity of the stdio transport
	Owner string

	CORSOrigins   string
	RateLimit     int
	MaxIterations int
	CalendarWait  time.Duration

	Metrics MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API and MCP server",
		Long: `Start todoagent.

Supports two transport types:
  - streamable-http: the HTTP API (agent, tasks, folders, calendar) with the
    MCP endpoint mounted at /mcp (default)
  - stdio: an MCP server on standard input/output acting for --owner

Required environment:
  DATABASE_URL          postgres://… or a SQLite path
  SUPABASE_JWT_SECRET   HS256 secret of the identity provider (HTTP only)

Optional environment:
  OPENROUTER_API_KEY, OPENROUTER_BASE_URL, OPENROUTER_MODEL
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URI
  TOKEN_ENCRYPTION_KEY  base64 AES-256 key for stored Google tokens
  TZ_LOCATION           IANA zone for local dates (default: process zone)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.HTTPAddr = stringFlagOrEnv(cmd, "http-addr", "HTTP_ADDR")
			opts.CORSOrigins = stringFlagOrEnv(cmd, "cors-origins", "CORS_ORIGINS")
			opts.Metrics.Addr = stringFlagOrEnv(cmd, "metrics-addr", "METRICS_ADDR")
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "false" {
				opts.Metrics.Enabled = false
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Transport, "transport", transportHTTP, "Transport type: streamable-http or stdio")
	cmd.Flags().String("http-addr", server.DefaultHTTPAddr, "HTTP server address. Can also use HTTP_ADDR env var.")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "Owner id the stdio transport acts for (required for stdio)")
	cmd.Flags().String("cors-origins", "*", "Comma-separated list of allowed CORS origins, or *. Can also use CORS_ORIGINS env var.")
	cmd.Flags().IntVar(&opts.RateLimit, "rate-limit", 120, "Requests per minute per client IP; 0 disables limiting")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", agent.MaxIterations, "Maximum model calls per agent request")
	cmd.Flags().DurationVar(&opts.CalendarWait, "calendar-wait", tasks_tools.DefaultCalendarWait, "How long createTask waits for the calendar event before answering")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(cfg *Config, opts ServeOptions) error {
	switch opts.Transport {
	case transportHTTP:
		if cfg.JWTSecret == "" {
			return errors.New("SUPABASE_JWT_SECRET is required for the streamable-http transport")
		}
	case transportStdio:
		if opts.Owner == "" {
			return errors.New("--owner is required for the stdio transport")
		}
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.Transport, transportHTTP, transportStdio)
	}

	logger := newLogger(cfg)

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	var auditLogger *instrumentation.AuditLogger
	if provider.Enabled() {
		metrics = provider.Metrics()
		auditLogger = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	}

	// No metrics listener in stdio mode.
	if opts.Transport != transportStdio && opts.Metrics.Enabled && provider.ServesPrometheus() {
		metricsServer, err := server.NewMetricsServer(opts.Metrics.Addr, provider, logger)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Run(shutdownCtx); err != nil {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
	}

	db, err := database.Open(shutdownCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(shutdownCtx); err != nil {
		return err
	}

	encryption, err := google.NewTokenEncryptionFromBase64(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("invalid TOKEN_ENCRYPTION_KEY: %w", err)
	}
	if !encryption.Enabled() {
		logger.Warn("TOKEN_ENCRYPTION_KEY not set, Google tokens are stored unencrypted")
	}
	tokenStore := google.NewSQLTokenStore(db, encryption)
	tokens := google.NewRefreshingTokenProvider(tokenStore, cfg.Google.OAuth2(), logger, metrics)

	bridge := calendar.NewBridge(tokens, calendar.NewGoogleInserter(),
		calendar.WithLocation(cfg.Location),
		calendar.WithLogger(logger),
		calendar.WithMetrics(metrics),
	)

	store := tasks.NewStore(db,
		tasks.WithScheduler(bridge),
		tasks.WithLocation(cfg.Location),
		tasks.WithLogger(logger),
		tasks.WithMetrics(metrics),
	)

	serverContext := server.NewServerContext(shutdownCtx, db, store,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithAuditLogger(auditLogger),
		server.WithLocation(cfg.Location),
		server.WithChatStore(chat.NewStore(db)),
	)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("todoagent", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := resources.RegisterUserResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register user resources: %w", err)
	}
	if err := tasks_tools.RegisterTasksTools(mcpSrv, serverContext, tasks_tools.WithCalendarWait(opts.CalendarWait)); err != nil {
		return fmt.Errorf("failed to register task tools: %w", err)
	}

	if opts.Transport == transportStdio {
		return runStdioServer(mcpSrv, opts.Owner)
	}

	return runHTTPServer(shutdownCtx, cfg, opts, serverContext, mcpSrv, bridge, tokenStore)
}

// runStdioServer serves MCP on stdin/stdout. Every call acts for owner.
func runStdioServer(mcpSrv *mcpserver.MCPServer, owner string) error {
	identity := auth.Identity{Owner: owner}
	err := mcpserver.ServeStdio(mcpSrv,
		mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
			return auth.WithIdentity(ctx, identity)
		}),
	)
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, cfg *Config, opts ServeOptions, sc *server.ServerContext, mcpSrv *mcpserver.MCPServer, bridge *calendar.Bridge, tokens google.TokenStore) error {
	logger := sc.Logger()

	var verifierOpts []auth.VerifierOption
	if cfg.JWTAudience != "" {
		verifierOpts = append(verifierOpts, auth.WithAudience(cfg.JWTAudience))
	}
	verifier, err := auth.NewVerifier(cfg.JWTSecret, verifierOpts...)
	if err != nil {
		return err
	}
	states, err := google.NewStateSigner(cfg.JWTSecret)
	if err != nil {
		return err
	}

	ag := newAgent(cfg, opts, sc)
	if ag == nil {
		logger.Warn("OPENROUTER_API_KEY not set, the agent endpoint will answer with an error")
	}
	if !cfg.Google.Configured() {
		logger.Warn("Google OAuth client not configured, calendar events fall back to manual links")
	}

	mcpHTTP := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(identityFromRequest),
	)

	health := server.NewHealthChecker(sc)
	handler := api.New(sc, api.Config{
		Agent:       ag,
		Verifier:    verifier,
		Calendar:    bridge,
		Google:      cfg.Google,
		States:      states,
		Tokens:      tokens,
		MCP:         mcpHTTP,
		Health:      health,
		CORSOrigins: opts.CORSOrigins,
		RateLimit:   opts.RateLimit,
	}).Routes()

	httpServer := server.NewHTTPServer(opts.HTTPAddr, handler, logger)

	logger.Info("todoagent listening",
		"addr", httpServer.Addr(),
		"mcp_endpoint", "/mcp",
		"model", cfg.LLMModel,
		"location", cfg.Location.String())

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// newAgent returns nil when no LLM key is configured.
func newAgent(cfg *Config, opts ServeOptions, sc *server.ServerContext) *agent.Agent {
	if cfg.LLMAPIKey == "" {
		return nil
	}
	clientConfig := openai.DefaultConfig(cfg.LLMAPIKey)
	clientConfig.BaseURL = cfg.LLMBaseURL

	registry := tasks_tools.NewRegistry(sc, instrumentation.TransportAgent,
		tasks_tools.WithCalendarWait(opts.CalendarWait))

	return agent.New(openai.NewClientWithConfig(clientConfig), cfg.LLMModel, registry,
		agent.WithMaxIterations(opts.MaxIterations),
		agent.WithLocation(cfg.Location),
		agent.WithLogger(sc.Logger()),
		agent.WithMetrics(sc.Metrics()),
	)
}

// identityFromRequest carries the identity established by the bearer
// middleware into the MCP tool context.
func identityFromRequest(ctx context.Context, r *http.Request) context.Context {
	if id, ok := auth.FromContext(r.Context()); ok {
		return auth.WithIdentity(ctx, id)
	}
	return ctx
}
