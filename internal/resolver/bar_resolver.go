package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelsher/paperbot/internal/domain"
)

// BarConfig carries the knobs for a bar-variant resolution run.
type BarConfig struct {
	// Symbol and Interval back-fill journal rows that omit their own.
	Symbol   string
	Interval string
	// Lookahead bounds the fill window, in bars, from the intent's timestamp.
	Lookahead int
	// Lookback is how many recent bars to fetch per symbol/interval.
	Lookback int
	// MaxIntents caps how many of the newest journal intents are considered.
	MaxIntents int
}

// BarIntentSource yields journaled bracket intents, oldest first.
type BarIntentSource interface {
	BarIntents(max int) ([]domain.BarIntent, error)
}

// BarResolver resolves bracket intents against exchange bars.
type BarResolver struct {
	cfg     BarConfig
	bars    BarSource
	intents BarIntentSource
	store   IdempotencyStore
	results ResultSink
	mirror  ResolutionMirror
	logger  *slog.Logger
	now     func() time.Time
}

// NewBarResolver wires a bar resolver. The mirror may be nil.
func NewBarResolver(cfg BarConfig, bars BarSource, intents BarIntentSource, store IdempotencyStore, results ResultSink, mirror ResolutionMirror, logger *slog.Logger) *BarResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &BarResolver{
		cfg:     cfg,
		bars:    bars,
		intents: intents,
		store:   store,
		results: results,
		mirror:  mirror,
		logger:  logger.With("component", "resolver", "variant", "bar"),
		now:     time.Now,
	}
}

type barGroup struct {
	symbol   string
	interval string
}

// Run performs one resolution pass: read intents, fetch bars once per
// symbol/interval, decide each new intent, persist terminal outcomes, save
// the idempotency state. Intents that stay open are skipped without a trace
// so a later run sees them again.
func (r *BarResolver) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	intents, err := r.intents.BarIntents(r.cfg.MaxIntents)
	if err != nil {
		return stats, fmt.Errorf("resolver: read bar intents: %w", err)
	}
	stats.Intents = len(intents)
	if len(intents) == 0 {
		r.logger.DebugContext(ctx, "no bar intents to resolve")
		return stats, nil
	}

	windows := r.fetchWindows(ctx, intents)

	var written []domain.Resolution
	var unresolved int
	for _, it := range intents {
		if err := ctx.Err(); err != nil {
			break
		}
		key := it.Key()
		if r.store.Contains(key) {
			stats.Duplicates++
			continue
		}

		bars, ok := windows[r.groupOf(it)]
		if !ok {
			unresolved++
			continue
		}

		res, terminal := r.resolveOne(it, key, bars)
		if !terminal {
			stats.Pending++
			r.logger.DebugContext(ctx, "intent still open",
				"key", key,
				"entry", it.Entry)
			continue
		}

		if err := r.results.Write(res); err != nil {
			return stats, fmt.Errorf("resolver: write result: %w", err)
		}
		r.store.Record(key, res.Summary())
		written = append(written, res)
		stats.Written++

		switch res.Outcome {
		case domain.OutcomeWin:
			stats.Wins++
		case domain.OutcomeLoss:
			stats.Losses++
		default:
			stats.Unfilled++
		}
	}

	r.mirrorBatch(ctx, written)

	if err := r.store.Save(); err != nil {
		return stats, fmt.Errorf("resolver: save state: %w", err)
	}

	r.logger.InfoContext(ctx, "bar resolution pass complete",
		"intents", stats.Intents,
		"resolved", stats.Written,
		"wins", stats.Wins,
		"losses", stats.Losses,
		"unfilled", stats.Unfilled,
		"pending", stats.Pending,
		"duplicates", stats.Duplicates,
		"skipped_no_bars", unresolved)
	return stats, nil
}

// fetchWindows pulls one bar window per distinct symbol/interval pair. A
// failed fetch logs a warning and leaves that group's intents untouched for
// the next run rather than failing the whole pass.
func (r *BarResolver) fetchWindows(ctx context.Context, intents []domain.BarIntent) map[barGroup][]domain.Bar {
	windows := make(map[barGroup][]domain.Bar)
	for _, it := range intents {
		g := r.groupOf(it)
		if _, seen := windows[g]; seen {
			continue
		}
		bars, err := r.bars.Klines(ctx, g.symbol, g.interval, r.cfg.Lookback)
		if err != nil {
			r.logger.WarnContext(ctx, "kline fetch failed",
				"symbol", g.symbol,
				"interval", g.interval,
				"error", err)
			continue
		}
		windows[g] = bars
	}
	return windows
}

func (r *BarResolver) groupOf(it domain.BarIntent) barGroup {
	g := barGroup{symbol: it.Symbol, interval: it.Interval}
	if g.symbol == "" {
		g.symbol = r.cfg.Symbol
	}
	if g.interval == "" {
		g.interval = r.cfg.Interval
	}
	return g
}

// resolveOne decides a single intent against the bars. The second return is
// false when the intent is filled but neither bracket level has been struck
// yet, the one case that must not be persisted.
func (r *BarResolver) resolveOne(it domain.BarIntent, key string, bars []domain.Bar) (domain.Resolution, bool) {
	g := r.groupOf(it)
	now := r.now().UTC()

	res := domain.Resolution{
		Variant:     domain.VariantBar,
		ResolvedTs:  now.Unix(),
		ResolvedISO: now.Format(time.RFC3339),
		IntentTs:    it.Ts,
		IntentKey:   key,
		Symbol:      g.symbol,
		Interval:    g.interval,
		Side:        string(it.Side),
		Entry:       it.Entry,
		Stop:        fptr(it.Stop),
		Target:      fptr(it.Target),
		RR:          fptr(it.RiskReward),
		Size:        it.Size,
		RiskUSD:     fptr(it.RiskUSD),
	}

	forward := domain.BarsFrom(bars, it.Ts, 0)
	window := forward
	if r.cfg.Lookahead > 0 && len(window) > r.cfg.Lookahead {
		window = window[:r.cfg.Lookahead]
	}

	idx, filled := DetectFill(it.Entry, window)
	if !filled {
		res.Filled = false
		res.Outcome = domain.OutcomeUnfilled
		res.Win = 0
		return res, true
	}

	res.Filled = true
	res.FillTs = iptr(window[idx].Ts)

	outcome, decided := ResolveRace(it.Side, it.Stop, it.Target, forward[idx:])
	if !decided {
		return domain.Resolution{}, false
	}

	res.Outcome = outcome
	res.Win = winFlag(outcome)
	return res, true
}

func (r *BarResolver) mirrorBatch(ctx context.Context, res []domain.Resolution) {
	if r.mirror == nil || len(res) == 0 {
		return
	}
	if err := r.mirror.InsertBatch(ctx, res); err != nil {
		r.logger.WarnContext(ctx, "resolution mirror insert failed",
			"count", len(res),
			"error", err)
	}
}
