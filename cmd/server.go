package cmd

import (
	"context"
	"errors"
	"nessql/api"
	"nessql/config"
	"nessql/logger"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverPort      string
	serverStaticDir string
)

var serverCmd = &cobra.Command{
	Use:         "server",
	Short:       "Starts the scan API server",
	Long:        `Serves the scan databases in the data directory over the HTTP API under /api. Press Ctrl+C to shut down gracefully.`,
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("--- Server Command: Run ---")

		port := serverPort
		if !cmd.Flags().Changed("port") {
			port = config.AppConfig.Server.Port
		}
		if port == "" {
			logger.Error("Server Command: Server port is empty after checking flag and config, defaulting to 5000")
			port = "5000"
		}
		staticDir := serverStaticDir
		if !cmd.Flags().Changed("static-dir") {
			staticDir = config.AppConfig.Server.StaticDir
		}

		server := &http.Server{
			Addr:              ":" + port,
			Handler:           api.NewServerMux(staticDir),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Server Command: Listening on :%s", port)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server Command: ListenAndServe error: %v", err)
				return err
			}
			return nil
		case <-ctx.Done():
			logger.Info("Server Command: Shutdown signal received...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server Command: Graceful shutdown failed: %v", err)
			return err
		}
		logger.Info("Server Command: Gracefully stopped.")
		return nil
	},
}

func init() {
	serverCmd.Flags().StringVarP(&serverPort, "port", "p", "5000", "port for the server to listen on (overrides config)")
	serverCmd.Flags().StringVar(&serverStaticDir, "static-dir", "", "directory of static files served outside /api (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
