package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/helix/helix/agent"
	"github.com/ZanzyTHEbar/helix/helix/config"
	"github.com/ZanzyTHEbar/helix/helix/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat and event stream API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Helix.Addr = addr
		}

		rt, err := newRuntime(ctx, cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to start")
			return err
		}
		defer rt.Close()

		srv := server.New(cfg.Helix.Addr, rt.orch, rt.registry,
			server.WithHub(rt.notifier.Hub),
			server.WithPublisher(rt.publisher),
			server.WithExecutor(agent.NewQueueExecutor(rt.log, logger)),
			server.WithAllowedOrigin(cfg.Helix.AllowedOrigin),
			server.WithLogger(logger),
		)
		if err := srv.Start(ctx); err != nil {
			return err
		}

		config.Watch(logger, func(next *config.Config) {
			config.SetLevel(next.Log.Level)
		})

		<-ctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides helix.addr)")
}
