package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/platform/logger"
	"github.com/wordvault/wordvault/internal/store"
)

// ErrMalformedBackup is returned when the snapshot file exists but
// cannot be parsed. Callers treat it like a missing snapshot.
var ErrMalformedBackup = errors.New("malformed backup")

// Snapshot is the on-disk backup format: every record of every local
// collection, flattened into one JSON document.
type Snapshot struct {
	CreatedAt time.Time              `json:"created_at"`
	Words     []*domain.LookupRecord `json:"words"`
	Cards     []*domain.CardProgress `json:"cards"`
	Review    []*domain.ReviewEntry  `json:"review"`
	Blacklist []string               `json:"blacklist"`
}

// Empty reports whether the snapshot holds no learning data at all.
func (s *Snapshot) Empty() bool {
	return len(s.Words) == 0 && len(s.Cards) == 0 &&
		len(s.Review) == 0 && len(s.Blacklist) == 0
}

// Stores bundles the collections a snapshot covers.
type Stores struct {
	Lookups   store.LookupStore
	Cards     store.CardStore
	Reviews   store.ReviewStore
	Blacklist store.BlacklistStore
}

// Manager reads and writes the snapshot file at a fixed path.
type Manager struct {
	path   string
	logger *slog.Logger
}

// NewManager creates a Manager for the given snapshot path.
// If logger is nil, slog.Default() is used.
func NewManager(path string, log *slog.Logger) *Manager {
	if path == "" {
		panic("path cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		path:   path,
		logger: log.With(slog.String("component", "backup")),
	}
}

// Path returns the snapshot file location.
func (m *Manager) Path() string {
	return m.path
}

// Capture reads every collection into a fresh snapshot.
func (m *Manager) Capture(ctx context.Context, s Stores) (*Snapshot, error) {
	words, err := s.Lookups.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture words: %w", err)
	}
	cards, err := s.Cards.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture cards: %w", err)
	}
	review, err := s.Reviews.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture review queue: %w", err)
	}
	entries, err := s.Blacklist.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture blacklist: %w", err)
	}

	blacklist := make([]string, 0, len(entries))
	for _, e := range entries {
		blacklist = append(blacklist, e.Word)
	}

	return &Snapshot{
		CreatedAt: time.Now().UTC(),
		Words:     words,
		Cards:     cards,
		Review:    review,
		Blacklist: blacklist,
	}, nil
}

// Save writes the snapshot to disk, replacing any previous one. The
// write is atomic: data lands in a temp file that is renamed over the
// target, so readers never observe a half-written snapshot.
func (m *Manager) Save(snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Backup captures the stores' current contents and saves them.
func (m *Manager) Backup(ctx context.Context, s Stores) error {
	log := logger.FromContextOrDefault(ctx, m.logger)

	snap, err := m.Capture(ctx, s)
	if err != nil {
		return err
	}
	if err := m.Save(snap); err != nil {
		return err
	}

	log.Debug("Backup written",
		slog.String("path", m.path),
		slog.Int("words", len(snap.Words)),
		slog.Int("cards", len(snap.Cards)),
		slog.Int("review", len(snap.Review)))
	return nil
}

// Load reads the snapshot from disk. A missing file returns (nil, nil);
// an unreadable or unparseable file returns ErrMalformedBackup.
func (m *Manager) Load() (*Snapshot, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	return &snap, nil
}

// Restore loads the snapshot and writes its records into the stores,
// reporting whether anything was restored. A missing or malformed
// snapshot restores nothing and is not an error; records that fail
// validation individually are logged and skipped.
func (m *Manager) Restore(ctx context.Context, s Stores) (bool, error) {
	log := logger.FromContextOrDefault(ctx, m.logger)

	snap, err := m.Load()
	if err != nil {
		log.Warn("Ignoring unusable backup snapshot",
			slog.String("path", m.path),
			slog.String("error", err.Error()))
		return false, nil
	}
	if snap == nil || snap.Empty() {
		return false, nil
	}

	restored := 0
	for _, r := range snap.Words {
		if err := s.Lookups.Put(ctx, r); err != nil {
			if isValidationError(err) {
				log.Warn("Skipping invalid word in backup", slog.String("error", err.Error()))
				continue
			}
			return restored > 0, fmt.Errorf("restore words: %w", err)
		}
		restored++
	}
	for _, p := range snap.Cards {
		if err := s.Cards.Put(ctx, p); err != nil {
			if isValidationError(err) {
				log.Warn("Skipping invalid card in backup", slog.String("error", err.Error()))
				continue
			}
			return restored > 0, fmt.Errorf("restore cards: %w", err)
		}
		restored++
	}
	for _, e := range snap.Review {
		if err := s.Reviews.Put(ctx, e); err != nil {
			if isValidationError(err) {
				log.Warn("Skipping invalid review entry in backup", slog.String("error", err.Error()))
				continue
			}
			return restored > 0, fmt.Errorf("restore review queue: %w", err)
		}
		restored++
	}
	for _, word := range snap.Blacklist {
		entry := &domain.BlacklistEntry{Word: domain.NormalizeWord(word), AddedAt: snap.CreatedAt}
		if entry.Word == "" {
			continue
		}
		if err := s.Blacklist.Put(ctx, entry); err != nil {
			return restored > 0, fmt.Errorf("restore blacklist: %w", err)
		}
		restored++
	}

	log.Info("Restored learning data from backup",
		slog.String("path", m.path),
		slog.Int("records", restored),
		slog.Time("snapshot_created_at", snap.CreatedAt))
	return restored > 0, nil
}

// isValidationError reports whether a Put failed because the record
// itself is bad, as opposed to the store being unusable. Bad records
// in a snapshot are skipped; store failures abort the restore.
func isValidationError(err error) bool {
	return errors.Is(err, store.ErrInvalidEntity) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrEmptyWord) ||
		errors.Is(err, domain.ErrInvalidMasteryLevel) ||
		errors.Is(err, domain.ErrInvalidEaseFactor) ||
		errors.Is(err, domain.ErrInvalidReviewState) ||
		errors.Is(err, domain.ErrInvalidStage)
}
