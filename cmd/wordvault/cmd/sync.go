package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/engine"
	"github.com/wordvault/wordvault/internal/remote"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize learning data with the sync server",
	Long: `Run one sync cycle: pull remote changes since the last checkpoint,
merge them without losing local progress, and push local records.
The first cycle on a device downloads everything.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cb := engine.Callbacks{
			OnSyncProgress: func(current, total int, message string) {
				fmt.Fprintf(os.Stderr, "  %s (%d/%d)\n", message, current, total)
			},
		}
		return withEngineCallbacks(cb, func(ctx context.Context, eng *engine.Engine) error {
			results, err := eng.SyncNow(ctx)
			if errors.Is(err, engine.ErrSyncDisabled) {
				return fmt.Errorf("cloud sync is not configured, set sync.base_url first")
			}
			if errors.Is(err, remote.ErrNotAuthenticated) {
				return fmt.Errorf("not signed in, run: wordvault login <email>")
			}
			if err != nil {
				return err
			}

			summary := <-results
			if summary.Full {
				fmt.Println("first sync: full download")
			}
			for _, res := range summary.Collections {
				switch {
				case res.Err != nil:
					fmt.Printf("%-12s failed: %v\n", res.Collection, res.Err)
				case res.Skipped:
					fmt.Printf("%-12s skipped, cycle already in flight\n", res.Collection)
				default:
					fmt.Printf("%-12s pulled %d, applied %d, pushed %d\n",
						res.Collection, res.Pulled, res.Applied, res.Pushed)
				}
			}
			if summary.Err() != nil {
				return fmt.Errorf("sync completed with errors")
			}
			return nil
		})
	},
}

var syncResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear sync checkpoints",
	Long: `Clear the per-collection sync checkpoints so the next sync runs as
a full first sync. Local learning data is untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			if err := eng.DisableSync(ctx); err != nil {
				return err
			}
			fmt.Println("checkpoints cleared, the next sync downloads everything")
			return nil
		})
	},
}

func init() {
	syncCmd.AddCommand(syncResetCmd)
	rootCmd.AddCommand(syncCmd)
}
