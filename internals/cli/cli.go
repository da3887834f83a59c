// Package cli provides the broker's cobra-based command-line
// bootstrap.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/broadwave/pubsub/internals/config"
	"github.com/broadwave/pubsub/internals/heartbeat"
	"github.com/broadwave/pubsub/internals/log"
	"github.com/broadwave/pubsub/internals/registry"
	"github.com/broadwave/pubsub/internals/telemetry"
	"github.com/broadwave/pubsub/subscriberService"
	subscriberHTTP "github.com/broadwave/pubsub/subscriberService/http"
	"github.com/broadwave/pubsub/topicManagerService"
	topicManagerHTTP "github.com/broadwave/pubsub/topicManagerService/http"
)

var (
	// Version is set via ldflags at build time.
	Version = "dev"
	Commit  = "unknown"
)

// NewRootCommand builds the broker's command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "pubsubd",
		Short:   "In-memory publish/subscribe broker",
		Version: Version,
	}
	root.SetVersionTemplate(fmt.Sprintf("pubsubd version %s (%s)\n", Version, Commit))

	root.PersistentFlags().String("env-file", ".env", "path to an optional .env file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "emit logs as JSON")

	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the broker's HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := godotenv.Load(envFile); err != nil {
				// Absence of an .env file is routine in containers; only
				// surface it at debug level once logging is configured.
				defer func() { log.WithComponent("cli").Debug().Err(err).Msg("no env file loaded") }()
			}

			cfg := config.NewConfig()

			if port, _ := cmd.Flags().GetString("port"); port != "" {
				cfg.Port = port
			}

			logLevel, _ := cmd.Flags().GetString("log-level")
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logJSON, _ := cmd.Flags().GetBool("log-json")
			if logJSON {
				cfg.LogJSON = true
			}
			log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSON: cfg.LogJSON})

			return run(cfg)
		},
	}
	cmd.Flags().String("port", "", "override PORT")
	return cmd
}

func run(cfg *config.Config) error {
	logger := log.WithComponent("cli")

	tel := telemetry.New()
	reg := registry.New(cfg, tel)
	topicMgrSvc := topicManagerService.New(reg)
	subscriberSvc := subscriberService.New(reg)
	hb := heartbeat.New(cfg.HeartbeatInterval, subscriberSvc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	topicManagerHTTP.NewHandler(topicMgrSvc, tel).RegisterRoutes(router)
	subscriberHTTP.RegisterSubscriberRoutes(router, reg, subscriberSvc, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hb.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
		logger.Info().Msg("shutting down")
	}

	cancel()
	hb.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	if err := subscriberSvc.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("subscriber service shutdown error")
	}
	reg.Close()

	logger.Info().Msg("shutdown complete")
	return nil
}
