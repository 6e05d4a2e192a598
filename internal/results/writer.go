// Package results persists resolution records to an append-only JSONL ledger
// and a CSV mirror suitable for spreadsheets. Both files share one fixed
// column set; fields a variant does not use are omitted in JSON and left as
// empty cells in CSV.
package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/avelsher/paperbot/internal/domain"
)

// Writer appends resolutions to the JSONL ledger and the CSV mirror. Either
// path may be empty to disable that output.
type Writer struct {
	mu     sync.Mutex
	jsonl  *os.File
	enc    *json.Encoder
	csvF   *os.File
	csv    *csv.Writer
	logger *slog.Logger
}

// NewWriter opens both outputs for appending, creating directories and files
// as needed. A brand-new CSV file gets the header row immediately so partial
// runs still leave a readable file.
func NewWriter(jsonlPath, csvPath string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{logger: logger.With("component", "results")}

	if jsonlPath != "" {
		f, err := openAppend(jsonlPath)
		if err != nil {
			return nil, fmt.Errorf("results: open jsonl: %w", err)
		}
		w.jsonl = f
		w.enc = json.NewEncoder(f)
	}

	if csvPath != "" {
		f, fresh, err := openAppendStat(csvPath)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("results: open csv: %w", err)
		}
		w.csvF = f
		w.csv = csv.NewWriter(f)
		if fresh {
			if err := w.csv.Write(csvHeader); err != nil {
				w.Close()
				return nil, fmt.Errorf("results: write csv header: %w", err)
			}
			w.csv.Flush()
			if err := w.csv.Error(); err != nil {
				w.Close()
				return nil, fmt.Errorf("results: write csv header: %w", err)
			}
		}
	}

	return w, nil
}

// Write appends one resolution to every configured output.
func (w *Writer) Write(res domain.Resolution) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc != nil {
		if err := w.enc.Encode(res); err != nil {
			return fmt.Errorf("results: append jsonl: %w", err)
		}
	}
	if w.csv != nil {
		if err := w.csv.Write(csvRecord(res)); err != nil {
			return fmt.Errorf("results: append csv: %w", err)
		}
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			return fmt.Errorf("results: append csv: %w", err)
		}
	}
	return nil
}

// Close releases both file handles.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.csv != nil {
		w.csv.Flush()
		if err := w.csv.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
		w.csv = nil
	}
	if w.csvF != nil {
		if err := w.csvF.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		w.csvF = nil
	}
	if w.jsonl != nil {
		if err := w.jsonl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		w.jsonl = nil
		w.enc = nil
	}
	return firstErr
}

func openAppend(path string) (*os.File, error) {
	f, _, err := openAppendStat(path)
	return f, err
}

// openAppendStat opens path for appending and reports whether the file is
// empty, which is how a fresh CSV learns it still needs its header.
func openAppendStat(path string) (*os.File, bool, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, err
	}
	return f, info.Size() == 0, nil
}
