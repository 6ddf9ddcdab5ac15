// Package cmd implements the wordvault command tree.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/config"
	"github.com/wordvault/wordvault/internal/engine"
	"github.com/wordvault/wordvault/internal/platform/logger"
)

var (
	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wordvault",
	Short: "Vocabulary engine and sync server",
	Long: `wordvault tracks word lookups, schedules flashcards for spaced
repetition and synchronizes learning data across devices.

Most commands operate on the local vault in the configured data
directory. The serve command runs the sync server the other
commands talk to.

Configuration comes from wordvault.yaml, a .env file and WORDVAULT_*
environment variables; every setting has a usable default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// Interactive commands keep structured logs out of the
		// terminal. The server logs to stdout unless told otherwise.
		if cfg.Logging.File == "" && cmd.Name() != "serve" {
			cfg.Logging.File = filepath.Join(cfg.Engine.DataDir, "wordvault.log")
		}

		log, err = logger.Setup(cfg.Logging)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withEngine runs fn against a started engine and closes it afterwards,
// which flushes whatever the command wrote. One-shot commands never run
// the background autosync schedule; an explicit sync is available.
func withEngine(fn func(ctx context.Context, eng *engine.Engine) error) error {
	return withEngineCallbacks(engine.Callbacks{}, fn)
}

func withEngineCallbacks(cb engine.Callbacks, fn func(ctx context.Context, eng *engine.Engine) error) error {
	syncCfg := cfg.Sync
	syncCfg.AutoInterval = 0

	eng, err := engine.New(cfg.Engine, syncCfg, engine.Options{Logger: log, Callbacks: cb})
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		_ = eng.Close(ctx)
		return err
	}

	runErr := fn(ctx, eng)
	if err := eng.Close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
