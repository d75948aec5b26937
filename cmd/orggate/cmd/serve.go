package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/orggate/orggate/internal/adapter/inbound/mcpserver"
	auditstore "github.com/orggate/orggate/internal/adapter/outbound/audit"
	"github.com/orggate/orggate/internal/adapter/outbound/rest"
	"github.com/orggate/orggate/internal/adapter/outbound/sfcli"
	"github.com/orggate/orggate/internal/catalog"
	"github.com/orggate/orggate/internal/config"
	"github.com/orggate/orggate/internal/domain/guard"
	"github.com/orggate/orggate/internal/domain/org"
	"github.com/orggate/orggate/internal/domain/policy"
	"github.com/orggate/orggate/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio",
	Long: `Serve the org platform tools over stdio MCP.

Expected to be executed by an AI client, not by a human. All logging
goes to stderr; stdout carries the protocol stream.

Examples:
  # Serve with config file settings
  orggate serve

  # Restrict to specific orgs and block all mutations
  orggate serve --orgs prod,sandbox1 --read-only`,
	RunE: runServe,
}

var (
	flagOrgs     []string
	flagReadOnly bool
)

func init() {
	serveCmd.Flags().StringSliceVar(&flagOrgs, "orgs", nil, "allowed orgs (overrides org.allowed_orgs)")
	serveCmd.Flags().BoolVar(&flagReadOnly, "read-only", false, "block all mutating operations")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration without validation so CLI flags can override
	// first.
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(flagOrgs) > 0 {
		cfg.Org.AllowedOrgs = flagOrgs
	}
	if cmd.Flags().Changed("read-only") {
		cfg.Org.ReadOnly = flagReadOnly
	}

	// A broken policy config is fatal. Serving with a policy the
	// operator did not write is the one failure mode this tool exists
	// to prevent.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Signal context for graceful shutdown. stop() restores default
	// signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	// Logger to stderr; stdout is reserved for the MCP stream.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	return run(ctx, cfg, logger)
}

// run wires all components together and serves until shutdown.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runner := sfcli.New(cfg.CLI.Bin, logger, sfcli.WithTimeout(cfg.CLI.Timeout))
	resolver := org.NewResolver(org.NewCache(cfg.Org.CacheTTL), runner, logger)
	gate := policy.NewGate(cfg.Org.ReadOnly, cfg.Org.AllowedOrgs)

	var guards *guard.Engine
	if len(cfg.Guards) > 0 {
		rules := make([]guard.Rule, len(cfg.Guards))
		for i, g := range cfg.Guards {
			rules[i] = guard.Rule{Name: g.Name, Expression: g.Expression}
		}
		var err error
		guards, err = guard.NewEngine(rules)
		if err != nil {
			return fmt.Errorf("failed to compile guards: %w", err)
		}
		logger.Info("guards compiled", "rules", len(rules))
	}

	var auditSvc *service.AuditService
	var auditDrops func() int64
	if cfg.Audit.Enabled {
		store, err := auditstore.NewSQLiteStore(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer func() { _ = store.Close() }()

		auditSvc = service.NewAuditService(store, logger)
		auditSvc.Start(ctx)
		defer auditSvc.Stop()
		auditDrops = auditSvc.Drops
		logger.Info("audit trail enabled", "path", cfg.Audit.Path)
	}

	dispatcher := service.NewDispatcher(
		resolver,
		gate,
		guards,
		service.NewConfirmer(logger),
		service.NewEmitter(logger),
		auditSvc,
		logger,
	)

	deps := &catalog.Deps{
		Runner:   runner,
		Rest:     rest.New(nil),
		Resolver: resolver,
		Gate:     gate,
		Logger:   logger,
	}

	registry := prometheus.NewRegistry()
	metrics := mcpserver.NewMetrics(registry, auditDrops)
	if cfg.Server.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.Server.MetricsAddr, registry, logger)
	}

	server := mcpserver.New(Version, dispatcher, deps, metrics, logger)

	logger.Info("orggate starting",
		"version", Version,
		"read_only", cfg.Org.ReadOnly,
		"allowed_orgs", strings.Join(cfg.Org.AllowedOrgs, ","),
		"guards", len(cfg.Guards),
		"audit", cfg.Audit.Enabled,
	)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("orggate stopped")
	return nil
}

// startMetricsServer serves Prometheus metrics on a side listener. Best
// effort: a metrics bind failure is logged, not fatal.
func startMetricsServer(ctx context.Context, addr string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// parseLogLevel converts a string log level to slog.Level. Returns
// slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
