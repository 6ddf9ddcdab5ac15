package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/engine"
	"github.com/wordvault/wordvault/internal/store"
)

var (
	deckSize     int
	deckNewRatio float64
	deckSave     bool
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Build a practice deck",
	Long: `Draw a shuffled practice deck from the word history, mixing due
flashcards with words never studied. Without flags the configured
deck size and new-word ratio apply.

Examples:
  wordvault deck
  wordvault deck --size 10 --new-ratio 0.5 --save`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			words := eng.BuildDeck(ctx, deckSize, deckNewRatio)
			if len(words) == 0 {
				fmt.Println("nothing to practice")
				return nil
			}
			for i, word := range words {
				fmt.Printf("%2d. %s\n", i+1, word)
			}
			if deckSave {
				session := &domain.DeckSession{Words: words}
				if err := eng.SaveDeckSession(ctx, session); err != nil {
					return err
				}
				fmt.Println("deck saved, pick it up with: wordvault deck resume")
			}
			return nil
		})
	},
}

var deckResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Show the saved deck session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			session, err := eng.LoadDeckSession(ctx)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Println("no deck in progress")
				return nil
			}
			if err != nil {
				return err
			}
			remaining := session.Remaining()
			fmt.Printf("deck of %d, %d remaining\n", len(session.Words), len(remaining))
			for i, word := range remaining {
				fmt.Printf("%2d. %s\n", session.Position+i+1, word)
			}
			return nil
		})
	},
}

var deckClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the saved deck session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			if err := eng.ClearDeckSession(ctx); err != nil {
				return err
			}
			fmt.Println("deck cleared")
			return nil
		})
	},
}

func init() {
	deckCmd.Flags().IntVar(&deckSize, "size", 0, "deck size (0 uses the configured size)")
	deckCmd.Flags().Float64Var(&deckNewRatio, "new-ratio", -1, "fraction of new words (negative uses the configured ratio)")
	deckCmd.Flags().BoolVar(&deckSave, "save", false, "persist the deck as a session")
	deckCmd.AddCommand(deckResumeCmd)
	deckCmd.AddCommand(deckClearCmd)
	rootCmd.AddCommand(deckCmd)
}
