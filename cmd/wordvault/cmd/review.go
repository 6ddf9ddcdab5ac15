package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/engine"
)

var reviewWrong bool

var reviewCmd = &cobra.Command{
	Use:   "review <word>",
	Short: "Submit a flashcard review result",
	Long: `Record the outcome of reviewing a word's flashcard and reschedule
it. A correct answer raises the mastery level, a wrong one resets it.

Examples:
  wordvault review ephemeral
  wordvault review ephemeral --wrong`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			card, err := eng.SubmitReview(ctx, args[0], !reviewWrong)
			if err != nil {
				return err
			}
			fmt.Printf("%s  level %d  ease %.2f  reviews %d\n",
				card.Word, card.MasteryLevel, card.EaseFactor, card.ReviewCount)
			fmt.Printf("next review %s\n", card.NextReviewAt.Local().Format(time.RFC1123))
			return nil
		})
	},
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewWrong, "wrong", false, "the answer was wrong")
	rootCmd.AddCommand(reviewCmd)
}
