// Package state persists the resolver's idempotency mapping: intent key to
// minimal outcome summary. One JSON document per resolver variant, loaded at
// the start of a run and atomically replaced at the end.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/avelsher/paperbot/internal/domain"
)

// document is the on-disk shape of the store.
type document struct {
	Resolved map[string]domain.ResolutionSummary `json:"resolved"`
}

// Store is the in-memory idempotency mapping for one run. A key present in
// the store is never reprocessed; the store only grows.
type Store struct {
	path     string
	resolved map[string]domain.ResolutionSummary
	logger   *slog.Logger
}

// Load reads the store document at path. A missing file yields an empty
// store. An unreadable or corrupt file also yields an empty store: losing
// the dedup guarantee for one run beats halting the pipeline, but the
// fallback is logged as a warning so it cannot pass unnoticed.
func Load(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "state"))
	s := &Store{
		path:     path,
		resolved: make(map[string]domain.ResolutionSummary),
		logger:   log,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("no state document yet", slog.String("path", path))
		} else {
			log.Warn("state unreadable, starting from empty store",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return s
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warn("state corrupt, starting from empty store",
			slog.String("path", path), slog.String("error", err.Error()))
		return s
	}
	if doc.Resolved != nil {
		s.resolved = doc.Resolved
	}
	return s
}

// Contains reports whether key has already been resolved.
func (s *Store) Contains(key string) bool {
	_, ok := s.resolved[key]
	return ok
}

// Record inserts or overwrites the summary for key. In a correct run this is
// called at most once per key.
func (s *Store) Record(key string, sum domain.ResolutionSummary) {
	s.resolved[key] = sum
}

// Len returns the number of resolved keys.
func (s *Store) Len() int { return len(s.resolved) }

// Save writes the whole document to a temporary file in the same directory
// and renames it over the original, so a crash mid-write never corrupts
// previously persisted entries.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("state: mkdir for %s: %w", s.path, err)
	}

	doc := document{Resolved: s.resolved}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("state: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("state: rename %s: %w", tmp, err)
	}
	return nil
}
