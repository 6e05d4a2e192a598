package s3blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// multipartThreshold is the file size above which snapshots switch to
// multipart upload. Journals on a busy deployment grow past this in weeks.
const multipartThreshold int64 = 8 * 1024 * 1024

// Target names one file to snapshot: Kind partitions the archive layout
// (journal, results, state), Path is the local file.
type Target struct {
	Kind string
	Path string
}

// Archiver uploads point-in-time snapshots of the pipeline's files. Files are
// snapshotted as-is; nothing local is deleted, so an archive run is always
// safe to repeat.
type Archiver struct {
	writer *Writer
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiver creates an Archiver over the given writer.
func NewArchiver(writer *Writer, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		writer: writer,
		logger: logger.With("component", "archiver"),
		now:    time.Now,
	}
}

// Run snapshots every target. Missing files are skipped; any upload failure
// aborts the run so a cron alert fires rather than silently losing archives.
func (a *Archiver) Run(ctx context.Context, targets []Target) error {
	stamp := a.now().UTC()
	var uploaded int
	for _, t := range targets {
		n, err := a.archiveFile(ctx, t, stamp)
		if err != nil {
			return err
		}
		if n > 0 {
			uploaded++
		}
	}
	a.logger.InfoContext(ctx, "archive run complete",
		"targets", len(targets),
		"uploaded", uploaded)
	return nil
}

// archiveFile uploads one file snapshot and returns its size in bytes. A
// missing or empty file uploads nothing and returns 0.
func (a *Archiver) archiveFile(ctx context.Context, t Target, stamp time.Time) (int64, error) {
	info, err := os.Stat(t.Path)
	if err != nil {
		if os.IsNotExist(err) {
			a.logger.DebugContext(ctx, "archive target missing, skipping",
				"kind", t.Kind, "path", t.Path)
			return 0, nil
		}
		return 0, fmt.Errorf("s3blob: stat %s: %w", t.Path, err)
	}
	if info.Size() == 0 {
		a.logger.DebugContext(ctx, "archive target empty, skipping",
			"kind", t.Kind, "path", t.Path)
		return 0, nil
	}

	f, err := os.Open(t.Path)
	if err != nil {
		return 0, fmt.Errorf("s3blob: open %s: %w", t.Path, err)
	}
	defer f.Close()

	key := archivePath(t.Kind, filepath.Base(t.Path), stamp)
	ct := contentTypeFor(t.Path)

	if info.Size() > multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, f, ct, minPartSize)
	} else {
		err = a.writer.Put(ctx, key, f, ct)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s: %w", t.Kind, err)
	}

	a.logger.InfoContext(ctx, "snapshot uploaded",
		"kind", t.Kind,
		"key", key,
		"bytes", info.Size())
	return info.Size(), nil
}

// archivePath partitions snapshots by kind and year-month, stamping each
// object with the snapshot instant:
//
//	archive/journal/2025-01/20250117T060000Z-journal.jsonl
func archivePath(kind, name string, stamp time.Time) string {
	return fmt.Sprintf("archive/%s/%s/%s-%s",
		kind, stamp.Format("2006-01"), stamp.Format("20060102T150405Z"), name)
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return "application/x-ndjson"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
