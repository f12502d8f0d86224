package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/postamail/posta/internal/logging"
	"github.com/postamail/posta/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the backend server for the desktop shell",
		Long: `Start the posta backend. The server binds to the loopback interface
only; the desktop shell connects to it over HTTP for commands and over
a WebSocket for change events.

Endpoints:
  /api/v1/*   Command API (JSON over POST)
  /events     WebSocket change notifications
  /healthz    Liveness probe
  /readyz     Readiness probe
  /metrics    Prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().Int("port", server.DefaultPort, "Loopback port to listen on")
	cmd.Flags().String("mirror-dir", "", "Directory to mirror card layouts to (e.g. a synced folder). Empty disables mirroring.")

	return cmd
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(context.Background())

	// Pick up card layouts pushed by other machines before serving.
	if changed, err := app.service.PullFromMirror(ctx); err != nil {
		app.logger.Warn("mirror pull failed", logging.Err(err))
	} else if changed {
		app.logger.Info("cards updated from mirror")
	}

	srv, err := server.New(server.Config{
		Port:    viper.GetInt("port"),
		Service: app.service,
		Logger:  app.logger,
		Metrics: app.provider.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		// Drain the Serve error after shutdown completes.
		if err := <-serverDone; err != nil {
			return err
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
	}
	return nil
}
