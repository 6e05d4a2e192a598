package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/avelsher/paperbot/internal/domain"
	"github.com/avelsher/paperbot/internal/notify"
	"github.com/avelsher/paperbot/internal/results"
)

// Runner produces one report over the trailing window and writes it to out,
// optionally pushing it through the notifier as well.
type Runner struct {
	barPath    string
	binaryPath string
	window     time.Duration
	push       bool
	notifier   *notify.Notifier
	out        io.Writer
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner wires a report runner over the two per-variant result ledgers.
func NewRunner(barPath, binaryPath string, window time.Duration, push bool, notifier *notify.Notifier, out io.Writer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		barPath:    barPath,
		binaryPath: binaryPath,
		window:     window,
		push:       push,
		notifier:   notifier,
		out:        out,
		logger:     logger.With("component", "report"),
		now:        time.Now,
	}
}

// Run reads the window from both ledgers, renders the report, and emits it.
// An empty window produces no output.
func (r *Runner) Run(ctx context.Context) error {
	since := r.now().Add(-r.window).Unix()

	var rows []domain.Resolution
	for _, path := range []string{r.barPath, r.binaryPath} {
		if path == "" {
			continue
		}
		part, err := results.ReadSince(path, since, r.logger)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		rows = append(rows, part...)
	}

	sum := Compute(rows)
	if sum.Empty() {
		r.logger.InfoContext(ctx, "no resolutions in report window",
			"window", r.window.String())
		return nil
	}

	text := Render(sum, r.window.Hours())
	if _, err := fmt.Fprintln(r.out, text); err != nil {
		return fmt.Errorf("report: write output: %w", err)
	}

	if r.push && r.notifier.Enabled() {
		if err := r.notifier.Notify(ctx, notify.EventReport, "Paper trading report", text); err != nil {
			r.logger.WarnContext(ctx, "report notification failed", "error", err)
		}
	}

	r.logger.InfoContext(ctx, "report emitted",
		"bar_resolved", sum.Bar.Total,
		"binary_resolved", sum.Binary.Total)
	return nil
}
