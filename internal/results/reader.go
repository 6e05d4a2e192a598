package results

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/avelsher/paperbot/internal/domain"
)

// ReadSince loads every resolution from the JSONL ledger with a resolved
// timestamp at or after since. A missing ledger is an empty result, not an
// error; malformed lines are skipped.
func ReadSince(path string, since int64, logger *slog.Logger) ([]domain.Resolution, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("results: open ledger: %w", err)
	}
	defer f.Close()

	var (
		out       []domain.Resolution
		malformed int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var res domain.Resolution
		if err := json.Unmarshal(line, &res); err != nil {
			malformed++
			continue
		}
		if res.ResolvedTs < since {
			continue
		}
		out = append(out, res)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("results: scan ledger: %w", err)
	}
	if malformed > 0 {
		logger.Debug("skipped malformed result lines", "path", path, "count", malformed)
	}
	return out, nil
}
