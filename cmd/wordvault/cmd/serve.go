package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/api"
	"github.com/wordvault/wordvault/internal/platform/postgres"
	"github.com/wordvault/wordvault/internal/service/auth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync server",
	Long: `Run the HTTP sync server backed by PostgreSQL. Requires database.url
and auth.jwt_secret to be configured; migrations are applied on
startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServer(); err != nil {
			return err
		}

		db, err := postgres.Open(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close database", "error", err)
			}
		}()

		tokens, err := auth.NewTokenService(cfg.Auth)
		if err != nil {
			return fmt.Errorf("set up token service: %w", err)
		}

		router := api.NewRouter(
			postgres.NewPostgresUserStore(db, log),
			postgres.NewPostgresRecordStore(db, log),
			tokens,
			auth.NewBcryptHasher(cfg.Auth.BCryptCost),
			log,
		)

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		// Start the server in a goroutine to allow for graceful shutdown.
		serverErr := make(chan error, 1)
		go func() {
			log.Info("Starting sync server", "port", cfg.Server.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErr <- err
			}
		}()

		shutdownCh := make(chan os.Signal, 1)
		signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serverErr:
			return fmt.Errorf("server failed: %w", err)
		case sig := <-shutdownCh:
			log.Info("Shutting down server...", "signal", sig.String())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
