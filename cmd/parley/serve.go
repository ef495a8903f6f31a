package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/voyago/parley"
	"github.com/voyago/parley/internal/config"
	"github.com/voyago/parley/internal/logging"
	redisAdapter "github.com/voyago/parley/pkg/adapters/redis"
	"github.com/voyago/parley/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session relay server",
	Long:  `Starts the Parley relay, exposing the WebSocket endpoint at /ws plus /healthz and /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if listen, _ := cmd.Flags().GetString("listen"); cmd.Flags().Changed("listen") {
			cfg.Listen = listen
		}
		if addr, _ := cmd.Flags().GetString("redis"); cmd.Flags().Changed("redis") {
			cfg.Redis.Addr = addr
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("Invalid config: %v\n", err)
			os.Exit(1)
		}

		logger := logging.New(logging.ParseLevel(cfg.LogLevel))

		var directory ports.SessionStore
		if cfg.Redis.Addr != "" {
			store := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
				// Records for sessions whose teardown write was lost expire
				// one reap cycle after they would have been reaped.
				redisAdapter.WithTTL(cfg.IdleAfter+cfg.ReapInterval),
			)
			defer store.Close()
			directory = store
			logger.Info("using redis session directory", "addr", cfg.Redis.Addr)
		}

		reg := prometheus.NewRegistry()
		opts := []parley.Option{
			parley.WithLogger(logger),
			parley.WithMetrics(reg),
			parley.WithReapInterval(cfg.ReapInterval),
			parley.WithIdleAfter(cfg.IdleAfter),
			parley.WithOriginPatterns(cfg.Origins),
		}
		if directory != nil {
			opts = append(opts, parley.WithDirectory(directory))
		}
		relay := parley.New(opts...)

		reaperCtx, stopReaper := context.WithCancel(context.Background())
		defer stopReaper()
		go relay.Run(reaperCtx)

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: relay.Handler(),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting parley relay",
				"listen", cfg.Listen,
				"reap_interval", cfg.ReapInterval,
				"idle_after", cfg.IdleAfter,
			)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			logger.Error("server error", "err", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("starting shutdown", "signal", sig.String())

			// End live sessions first so clients get end_session notices.
			relay.Shutdown(context.Background())
			stopReaper()

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("error killing server", "err", err)
				}
			}
			logger.Info("parley relay stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for the session directory (empty: in-memory)")
}
