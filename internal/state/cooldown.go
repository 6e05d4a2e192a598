package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// cooldownDoc is the on-disk shape of the signal cooldown state.
type cooldownDoc struct {
	LastSignalTs int64 `json:"last_signal_ts"`
}

// Cooldown remembers when the last signal was emitted so repeated runs do not
// spam the journal. Same load/save discipline as Store: missing or corrupt
// state degrades to "no previous signal".
type Cooldown struct {
	path string
	last int64
}

// LoadCooldown reads the cooldown document at path.
func LoadCooldown(path string, logger *slog.Logger) *Cooldown {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cooldown{path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var doc cooldownDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Warn("cooldown state corrupt, ignoring",
			slog.String("path", path), slog.String("error", err.Error()))
		return c
	}
	c.last = doc.LastSignalTs
	return c
}

// Active reports whether a signal emitted at now would fall inside the
// cooldown window.
func (c *Cooldown) Active(now time.Time, window time.Duration) bool {
	if c.last == 0 || window <= 0 {
		return false
	}
	return now.Unix()-c.last < int64(window.Seconds())
}

// Mark records a signal emission time.
func (c *Cooldown) Mark(now time.Time) { c.last = now.Unix() }

// Save atomically replaces the cooldown document.
func (c *Cooldown) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("state: mkdir for %s: %w", c.path, err)
	}
	raw, err := json.MarshalIndent(cooldownDoc{LastSignalTs: c.last}, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal %s: %w", c.path, err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("state: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("state: rename %s: %w", tmp, err)
	}
	return nil
}
