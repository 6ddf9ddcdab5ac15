package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault statistics and sync state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			stats := eng.Stats()
			fmt.Printf("words       %d\n", stats.Words)
			fmt.Printf("flashcards  %d (%d due)\n", stats.Cards, stats.DueCards)
			fmt.Printf("queue       %d pending, %d reviewing, %d mastered\n",
				stats.Pending, stats.Reviewing, stats.Mastered)
			fmt.Printf("blacklisted %d\n", stats.Blacklisted)

			session := eng.Session()
			switch {
			case session == nil:
				fmt.Println("account     signed out")
			case session.Expired(time.Now()):
				fmt.Printf("account     %s (token expired, run: wordvault refresh)\n", session.Email)
			default:
				fmt.Printf("account     %s\n", session.Email)
			}

			states := eng.SyncStates()
			if len(states) == 0 {
				fmt.Println("sync        not configured")
				return nil
			}
			collections := make([]string, 0, len(states))
			for name := range states {
				collections = append(collections, name)
			}
			sort.Strings(collections)
			for _, name := range collections {
				fmt.Printf("sync        %-12s %s\n", name, states[name])
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
