// Package importer seeds word history from spreadsheet word lists.
// Sheets are expected to carry one word per row with an optional usage
// context in the next column, the format produced by exporting a
// vocabulary list from a spreadsheet app.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/store"
)

// Vault is the slice of the engine the importer writes through. Going
// through the engine keeps imported words in memory, coalesced, and
// eligible for sync like any organic lookup.
type Vault interface {
	RecordLookup(ctx context.Context, word, sentence string) (*domain.LookupRecord, error)
	GetWord(word string) (*domain.LookupRecord, error)
}

// Options controls how a sheet is read.
type Options struct {
	// Sheet is the worksheet name. Empty means the first sheet.
	Sheet string

	// HasHeader skips the first row.
	HasHeader bool
}

// Result summarizes one import run.
type Result struct {
	// Rows is the number of data rows examined.
	Rows int

	// Imported counts words added to the vault.
	Imported int

	// Blanks counts rows with no word in the first column.
	Blanks int

	// Duplicates counts words already in the vault or repeated within
	// the sheet.
	Duplicates int

	// Ignored counts words the vault refused, typically blacklisted.
	Ignored int

	// Errors holds per-row failures. A failed row never aborts the run.
	Errors []string
}

// Importer reads xlsx word lists into a vault.
type Importer struct {
	vault  Vault
	logger *slog.Logger
}

// New creates an importer writing through the given vault.
// Panics if vault is nil.
func New(vault Vault, logger *slog.Logger) *Importer {
	if vault == nil {
		panic("vault cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		vault:  vault,
		logger: logger.With(slog.String("component", "importer")),
	}
}

// ImportFile reads every (word, context) row of the sheet into the
// vault. Blank words and words already known are skipped; malformed
// rows are collected in the result rather than failing the run.
func (i *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			i.logger.Warn("Failed to close workbook", slog.String("error", cerr.Error()))
		}
	}()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	result := &Result{}
	seen := make(map[string]struct{})

	for n, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if n == 0 && opts.HasHeader {
			continue
		}
		result.Rows++

		var word, sentence string
		if len(row) > 0 {
			word = row[0]
		}
		if len(row) > 1 {
			sentence = row[1]
		}

		key := domain.NormalizeWord(word)
		if key == "" {
			result.Blanks++
			continue
		}
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		_, err := i.vault.GetWord(key)
		switch {
		case err == nil:
			result.Duplicates++
			continue
		case !errors.Is(err, store.ErrLookupNotFound):
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", n+1, err))
			continue
		}

		rec, err := i.vault.RecordLookup(ctx, key, sentence)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", n+1, err))
			continue
		}
		if rec == nil {
			result.Ignored++
			continue
		}
		result.Imported++
	}

	i.logger.Info("Import completed",
		slog.String("sheet", sheet),
		slog.Int("rows", result.Rows),
		slog.Int("imported", result.Imported),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("blanks", result.Blanks),
		slog.Int("ignored", result.Ignored),
		slog.Int("errors", len(result.Errors)))

	return result, nil
}
