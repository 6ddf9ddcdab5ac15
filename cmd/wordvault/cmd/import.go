package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordvault/wordvault/internal/engine"
	"github.com/wordvault/wordvault/internal/importer"
)

var (
	importSheet  string
	importHeader bool
)

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import a spreadsheet word list",
	Long: `Read an xlsx word list into the vault, one word per row with an
optional example sentence in the second column. Imported words
count as lookups, so they sync and appear in decks like any other.

Examples:
  wordvault import words.xlsx
  wordvault import words.xlsx --sheet Vocabulary --header`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine.Engine) error {
			result, err := importer.New(eng, log).ImportFile(ctx, args[0], importer.Options{
				Sheet:     importSheet,
				HasHeader: importHeader,
			})
			if err != nil {
				return err
			}

			fmt.Printf("rows %d: imported %d, duplicates %d, blanks %d, ignored %d\n",
				result.Rows, result.Imported, result.Duplicates, result.Blanks, result.Ignored)
			for _, rowErr := range result.Errors {
				fmt.Printf("  %s\n", rowErr)
			}
			return nil
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name (default: first sheet)")
	importCmd.Flags().BoolVar(&importHeader, "header", false, "skip the first row")
	rootCmd.AddCommand(importCmd)
}
