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

	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/cmdutil"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/bunx"
	ledgermw "github.com/terraconstructs/herbledger/cmd/herbledger/internal/middleware"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/server"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/telemetry"
)

var gatewayURL string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ledger API server",
	Long:  `Starts the HTTP server exposing the role registry, batch ledger, event log and content endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(sctx); err != nil {
				logger.Warn().Err(err).Msg("telemetry shutdown failed")
			}
		}()

		bundle, err := cmdutil.NewBundle(cfg, logger, cmdutil.BundleOptions{Metrics: true})
		if err != nil {
			return err
		}
		defer bundle.Close()
		logger.Info().Str("database", string(bunx.DetectDatabaseType(cfg.DatabaseURL))).Msg("connected to database")

		serverMetrics, err := telemetry.NewServerMetrics()
		if err != nil {
			return fmt.Errorf("create server metrics: %w", err)
		}
		authMetrics, err := telemetry.NewAuthMetrics()
		if err != nil {
			return fmt.Errorf("create auth metrics: %w", err)
		}

		if cfg.DevMode() {
			logger.Warn().Str("header", ledgermw.PrincipalHeader).Msg("jwt_secret not set; trusting principal header")
		}
		authn := ledgermw.NewAuthn(ledgermw.AuthnOptions{
			Secret:  []byte(cfg.JWTSecret),
			Metrics: authMetrics,
			Logger:  logger,
		})

		handler := server.NewH2CHandler(server.RouterOptions{
			Ledger:        bundle.Ledger,
			Roles:         bundle.Roles,
			Trail:         bundle.Trail.WithGateway(gatewayURL),
			Content:       bundle.Content,
			Validator:     bundle.Validator,
			Gateway:       gatewayURL,
			Authn:         authn,
			Logger:        logger,
			Metrics:       serverMetrics,
			HealthHandler: server.HealthHandler(bundle.Ledger, cfg.DevMode(), logger),
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ServerAddr).Str("url", cfg.ServerURL).Msg("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&gatewayURL, "gateway", "", "IPFS HTTP gateway base for content links (default https://ipfs.io/ipfs)")
	rootCmd.AddCommand(serveCmd)
}
