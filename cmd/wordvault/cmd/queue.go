package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/engine"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the review queue",
	Long: `The review queue tracks words the learner wants to re-encounter in
real material. A word starts pending, enters staged reviewing the
first time it is used, and is mastered after the final stage.`,
}

var queueAddCmd = &cobra.Command{
	Use:   "add <word>",
	Short: "Add a word to the review queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			if err := eng.EnqueuePending(args[0]); err != nil {
				return err
			}
			fmt.Printf("%s queued for review\n", domain.NormalizeWord(args[0]))
			return nil
		})
	},
}

var queueUseCmd = &cobra.Command{
	Use:   "use <word>",
	Short: "Record that a queued word was encountered",
	Long: `Record an encounter with a queued word. A pending word moves to
reviewing stage 0; a reviewing word advances one stage when due.
The final stage promotes the word to mastered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			entry, err := eng.MarkUsed(args[0])
			if err != nil {
				return err
			}
			printReview(entry)
			return nil
		})
	},
}

var (
	queueDue      bool
	queuePending  bool
	queueMastered bool
)

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the review queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			all := !queueDue && !queuePending && !queueMastered
			shown := 0
			if queuePending || all {
				shown += printReviewGroup("pending", eng.PendingReviews())
			}
			if queueDue || all {
				shown += printReviewGroup("due", eng.DueReviews())
			}
			if queueMastered || all {
				shown += printReviewGroup("mastered", eng.MasteredReviews())
			}
			if shown == 0 {
				fmt.Println("queue is empty")
			}
			return nil
		})
	},
}

func printReviewGroup(label string, entries []*domain.ReviewEntry) int {
	if len(entries) == 0 {
		return 0
	}
	fmt.Printf("%s:\n", label)
	for _, entry := range entries {
		printReview(entry)
	}
	return len(entries)
}

func printReview(entry *domain.ReviewEntry) {
	switch entry.State {
	case domain.ReviewStateReviewing:
		fmt.Printf("  %-24s stage %d, next %s\n",
			entry.Word, entry.Stage, entry.NextReviewAt.Local().Format(time.RFC1123))
	case domain.ReviewStateMastered:
		fmt.Printf("  %-24s mastered %s\n",
			entry.Word, entry.MasteredAt.Local().Format("2006-01-02"))
	default:
		fmt.Printf("  %-24s pending\n", entry.Word)
	}
}

func init() {
	queueListCmd.Flags().BoolVar(&queueDue, "due", false, "only words due for review")
	queueListCmd.Flags().BoolVar(&queuePending, "pending", false, "only pending words")
	queueListCmd.Flags().BoolVar(&queueMastered, "mastered", false, "only mastered words")
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueUseCmd)
	queueCmd.AddCommand(queueListCmd)
	rootCmd.AddCommand(queueCmd)
}
