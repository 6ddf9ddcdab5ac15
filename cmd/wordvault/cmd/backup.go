package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/engine"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and restore JSON snapshots",
	Long: `Snapshots carry the full learning state: word history, flashcards,
the review queue and the blacklist. The engine also maintains one
automatically next to its database.`,
}

var backupExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write a snapshot of all learning data",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			written, err := eng.ExportBackup(ctx, path)
			if err != nil {
				return err
			}
			fmt.Printf("snapshot written to %s\n", written)
			return nil
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [path]",
	Short: "Load a snapshot into the vault",
	Long: `Load a snapshot into the vault, overwriting records it mentions and
leaving the rest untouched. Without a path the engine's own
automatic snapshot is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			restored, err := eng.RestoreBackup(ctx, path)
			if err != nil {
				return err
			}
			if !restored {
				fmt.Println("snapshot is empty, nothing restored")
				return nil
			}
			fmt.Println("snapshot restored")
			return nil
		})
	},
}

func init() {
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}
