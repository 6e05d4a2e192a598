package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/avelsher/paperbot/internal/blob/s3"
	"github.com/avelsher/paperbot/internal/domain"
	"github.com/avelsher/paperbot/internal/feed"
	"github.com/avelsher/paperbot/internal/journal"
	"github.com/avelsher/paperbot/internal/notify"
	"github.com/avelsher/paperbot/internal/report"
	"github.com/avelsher/paperbot/internal/resolver"
	"github.com/avelsher/paperbot/internal/results"
	"github.com/avelsher/paperbot/internal/signal"
	"github.com/avelsher/paperbot/internal/state"
)

// dedupCleanupEvery bounds the dedup map's memory in long watch runs.
const dedupCleanupEvery = 10 * time.Minute

// ResolveMode runs one resolution pass over the configured variants. When the
// distributed lock is wired, concurrent runs from other hosts exit cleanly
// instead of double-processing the shared files.
func (a *App) ResolveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting resolve mode",
		slog.Any("variants", a.cfg.Resolver.Variants))

	if deps.Locks != nil {
		unlock, err := deps.Locks.Acquire(ctx, a.cfg.Redis.LockKey, a.cfg.Redis.LockTTL.Duration)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				a.logger.WarnContext(ctx, "another resolve run holds the lock, exiting")
				return nil
			}
			return fmt.Errorf("app: acquire run lock: %w", err)
		}
		defer unlock()
	}

	var total resolver.RunStats

	if a.cfg.BarEnabled() {
		stats, err := a.runBarResolver(ctx, deps)
		if err != nil {
			return err
		}
		addStats(&total, stats)
	}

	if a.cfg.BinaryEnabled() {
		stats, err := a.runBinaryResolver(ctx, deps)
		if err != nil {
			return err
		}
		addStats(&total, stats)
	}

	if total.Written > 0 && deps.Notifier.Enabled() {
		msg := fmt.Sprintf("Resolved %d intent(s): %d win / %d loss / %d unfilled. Still pending: %d.",
			total.Written, total.Wins, total.Losses, total.Unfilled, total.Pending)
		if err := deps.Notifier.Notify(ctx, notify.EventResolution, "Paper resolutions written", msg); err != nil {
			a.logger.WarnContext(ctx, "resolution notification failed",
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (a *App) runBarResolver(ctx context.Context, deps *Dependencies) (resolver.RunStats, error) {
	reader := journal.NewReader(a.cfg.Journal.SignalsPath, a.logger)
	store := state.Load(a.cfg.State.BarPath, a.logger)

	writer, err := results.NewWriter(a.cfg.Results.BarLogPath, a.cfg.Results.BarCSVPath, a.logger)
	if err != nil {
		return resolver.RunStats{}, fmt.Errorf("app: open bar results: %w", err)
	}
	defer writer.Close()

	var mirror resolver.ResolutionMirror
	if deps.Resolutions != nil {
		mirror = deps.Resolutions
	}

	r := resolver.NewBarResolver(resolver.BarConfig{
		Symbol:     a.cfg.Bybit.Symbol,
		Interval:   a.cfg.Bybit.Interval,
		Lookahead:  a.cfg.Resolver.LookaheadBars,
		Lookback:   a.cfg.Bybit.Lookback,
		MaxIntents: a.cfg.Resolver.MaxIntents,
	}, deps.Bybit, reader, store, writer, mirror, a.logger)
	return r.Run(ctx)
}

func (a *App) runBinaryResolver(ctx context.Context, deps *Dependencies) (resolver.RunStats, error) {
	reader := journal.NewReader(a.cfg.Journal.IntentsPath, a.logger)
	store := state.Load(a.cfg.State.BinaryPath, a.logger)

	writer, err := results.NewWriter(a.cfg.Results.BinaryLogPath, a.cfg.Results.BinaryCSVPath, a.logger)
	if err != nil {
		return resolver.RunStats{}, fmt.Errorf("app: open binary results: %w", err)
	}
	defer writer.Close()

	var mirror resolver.ResolutionMirror
	if deps.Resolutions != nil {
		mirror = deps.Resolutions
	}

	r := resolver.NewBinaryResolver(resolver.BinaryConfig{
		FeeRateBps: a.cfg.Resolver.FeeRateBps,
	}, deps.Simmer, reader, store, writer, mirror, a.logger)
	return r.Run(ctx)
}

func addStats(total *resolver.RunStats, s resolver.RunStats) {
	total.Intents += s.Intents
	total.Written += s.Written
	total.Wins += s.Wins
	total.Losses += s.Losses
	total.Unfilled += s.Unfilled
	total.Pending += s.Pending
	total.Duplicates += s.Duplicates
}

// SignalMode runs one fetch-and-evaluate pass of the signal engine.
func (a *App) SignalMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting signal mode",
		slog.String("symbol", a.cfg.Bybit.Symbol),
		slog.String("interval", a.cfg.Bybit.Interval))

	eng, jw, err := a.buildSignalEngine(deps, nil)
	if err != nil {
		return err
	}
	defer jw.Close()

	return eng.Run(ctx)
}

// WatchMode keeps a rolling bar window live over WebSocket and evaluates the
// signal engine on every confirmed candle until the context is cancelled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode",
		slog.String("symbol", a.cfg.Bybit.Symbol),
		slog.String("interval", a.cfg.Bybit.Interval))

	dedup := signal.NewDedup(a.cfg.Signal.Cooldown.Duration)
	eng, jw, err := a.buildSignalEngine(deps, dedup)
	if err != nil {
		return err
	}
	defer jw.Close()

	klineFeed := feed.NewKlineFeed(
		deps.Bybit,
		a.cfg.Bybit.WsURL,
		a.cfg.Bybit.Symbol,
		a.cfg.Bybit.Interval,
		a.cfg.Bybit.Lookback,
		func(ctx context.Context, window []domain.Bar) {
			if _, err := eng.Evaluate(ctx, window); err != nil {
				a.logger.ErrorContext(ctx, "window evaluation failed",
					slog.String("error", err.Error()))
			}
		},
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer klineFeed.Close()
		return klineFeed.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(dedupCleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				dedup.Cleanup()
			}
		}
	})
	return g.Wait()
}

func (a *App) buildSignalEngine(deps *Dependencies, dedup *signal.Dedup) (*signal.Engine, *journal.Writer, error) {
	jw, err := journal.NewWriter(a.cfg.Journal.SignalsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("app: open signal journal: %w", err)
	}
	cooldown := state.LoadCooldown(a.cfg.State.CooldownPath, a.logger)

	eng := signal.NewEngine(signal.Config{
		Symbol:        a.cfg.Bybit.Symbol,
		Interval:      a.cfg.Bybit.Interval,
		Lookback:      a.cfg.Bybit.Lookback,
		PivotLeft:     a.cfg.Signal.PivotLeft,
		PivotRight:    a.cfg.Signal.PivotRight,
		MaxLevels:     a.cfg.Signal.MaxLevels,
		RiskReward:    a.cfg.Signal.RiskReward,
		MaxRiskUSD:    a.cfg.Signal.MaxRiskUSD,
		FixedSize:     a.cfg.Signal.FixedSize,
		ClusterTolPct: a.cfg.Signal.ClusterTolPct,
		Cooldown:      a.cfg.Signal.Cooldown.Duration,
	}, deps.Bybit, jw, cooldown, deps.Notifier, dedup, a.logger)
	return eng, jw, nil
}

// ReportMode renders the trailing-window performance report to stdout.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting report mode",
		slog.String("window", a.cfg.Report.Window.Duration.String()))

	runner := report.NewRunner(
		a.cfg.Results.BarLogPath,
		a.cfg.Results.BinaryLogPath,
		a.cfg.Report.Window.Duration,
		a.cfg.Report.Push,
		deps.Notifier,
		os.Stdout,
		a.logger,
	)
	return runner.Run(ctx)
}

// ArchiveMode snapshots the journal, results, and state files to the object
// store.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.String("bucket", a.cfg.S3.Bucket))

	targets := []s3blob.Target{
		{Kind: "journal", Path: a.cfg.Journal.SignalsPath},
		{Kind: "journal", Path: a.cfg.Journal.IntentsPath},
		{Kind: "results", Path: a.cfg.Results.BarLogPath},
		{Kind: "results", Path: a.cfg.Results.BarCSVPath},
		{Kind: "results", Path: a.cfg.Results.BinaryLogPath},
		{Kind: "results", Path: a.cfg.Results.BinaryCSVPath},
		{Kind: "state", Path: a.cfg.State.BarPath},
		{Kind: "state", Path: a.cfg.State.BinaryPath},
		{Kind: "state", Path: a.cfg.State.CooldownPath},
	}
	return deps.Archiver.Run(ctx, targets)
}
