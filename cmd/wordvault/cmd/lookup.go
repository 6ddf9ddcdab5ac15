package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/engine"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <word> [sentence]",
	Short: "Record a word lookup",
	Long: `Record that a word was looked up, optionally with the sentence it
appeared in. The word is normalized before use; looking up a
blacklisted word does nothing.

Examples:
  wordvault lookup ephemeral
  wordvault lookup ephemeral "Fame is ephemeral."`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sentence := ""
		if len(args) == 2 {
			sentence = args[1]
		}
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			record, err := eng.RecordLookup(ctx, args[0], sentence)
			if err != nil {
				return err
			}
			if record == nil {
				fmt.Println("ignored (word is blacklisted)")
				return nil
			}
			fmt.Printf("%s  lookups: %d\n", record.Word, record.Count)
			for _, c := range record.Contexts {
				fmt.Printf("  %q\n", c)
			}
			return nil
		})
	},
}

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "List the word history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			records := eng.AllWords()
			if len(records) == 0 {
				fmt.Println("no words yet")
				return nil
			}
			for _, record := range records {
				fmt.Printf("%-24s %d\n", record.Word, record.Count)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(wordsCmd)
}
