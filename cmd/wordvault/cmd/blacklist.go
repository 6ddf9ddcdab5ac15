package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/engine"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage the word blacklist",
	Long: `Blacklisted words are invisible to the engine: lookups are ignored
and they never appear in decks. The blacklist is local to this
device and does not sync.`,
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add <word>",
	Short: "Blacklist a word",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			if err := eng.Blacklist(args[0]); err != nil {
				return err
			}
			fmt.Printf("%s blacklisted\n", domain.NormalizeWord(args[0]))
			return nil
		})
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove <word>",
	Short: "Remove a word from the blacklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			if err := eng.Unblacklist(args[0]); err != nil {
				return err
			}
			fmt.Printf("%s removed from blacklist\n", domain.NormalizeWord(args[0]))
			return nil
		})
	},
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklisted words",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			words := eng.BlacklistedWords()
			if len(words) == 0 {
				fmt.Println("blacklist is empty")
				return nil
			}
			for _, word := range words {
				fmt.Println(word)
			}
			return nil
		})
	},
}

func init() {
	blacklistCmd.AddCommand(blacklistAddCmd)
	blacklistCmd.AddCommand(blacklistRemoveCmd)
	blacklistCmd.AddCommand(blacklistListCmd)
	rootCmd.AddCommand(blacklistCmd)
}
