package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/tasklink/internal/server"
)

// shutdownTimeout bounds connection draining after a stop signal.
const shutdownTimeout = 30 * time.Second

func (a *App) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "management",
		Short:   "Serve the REST API with websocket updates",
		Long: `Start an HTTP API over the configured systems and pair store.

Endpoints live under /api/v1. Pair links and drift found by detection
passes are pushed to websocket clients on /api/v1/updates/ws.`,
		Example: `  # Start on the configured address (default localhost:8080)
  tasklink serve

  # Require a bearer token and allow one browser origin
  TASKLINK_SERVER_AUTH_TOKEN=s3cret tasklink serve --cors-origins https://app.example.com`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	cmd.Flags().String("host", "", "bind address (default from server.host)")
	cmd.Flags().IntP("port", "p", -1, "port (default from server.port, 0 picks a free port)")
	cmd.Flags().Int("rate-limit", -1, "requests per minute per IP, 0 disables (default from server.rate_limit)")
	cmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (default from server.cors_origins)")
	return cmd
}

func (a *App) runServe(cmd *cobra.Command, _ []string) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	client, err := a.Client()
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig()
	cfg.Host = settings.Server.Host
	cfg.Port = settings.Server.Port
	cfg.RateLimit = settings.Server.RateLimit
	cfg.AuthToken = settings.Server.AuthToken
	cfg.CORSOrigins = settings.Server.CORSOrigins
	if settings.Server.Prefix != "" {
		cfg.PathPrefix = strings.TrimSuffix(settings.Server.Prefix, "/")
	}
	if settings.Server.CacheTTL > 0 {
		cfg.CacheTTL = settings.Server.CacheTTL
	}

	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.RateLimit, _ = cmd.Flags().GetInt("rate-limit")
	}
	if cmd.Flags().Changed("cors-origins") {
		cfg.CORSOrigins, _ = cmd.Flags().GetStringSlice("cors-origins")
	}

	ctx := cmd.Context()
	srv := server.New(client, cfg, a.logger)
	srv.Start(ctx)

	httpServer := &http.Server{
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}

	a.logger.Info().
		Str("addr", ln.Addr().String()).
		Bool("auth", cfg.AuthToken != "").
		Int("rate_limit", cfg.RateLimit).
		Msg("API server starting")
	fmt.Fprintf(a.stdout, "Listening on http://%s\n", ln.Addr())

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		_ = srv.Shutdown(context.Background())
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// websocket connections are hijacked and not drained by Shutdown;
	// stopping the hub closes them
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("Background services did not stop cleanly")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.logger.Info().Msg("Server stopped gracefully")
	return nil
}
