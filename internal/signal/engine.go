package signal

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/avelsher/paperbot/internal/domain"
	"github.com/avelsher/paperbot/internal/journal"
	"github.com/avelsher/paperbot/internal/notify"
	"github.com/avelsher/paperbot/internal/state"
)

const (
	emaFastPeriod = 50
	emaSlowPeriod = 200

	// How many of the most recent swing pivots feed the level clustering.
	maxRawPivots = 20

	// Entry sits a fifth of the cluster tolerance inside the level, the stop
	// 1.2 tolerances beyond it. Tight invalidation keeps dollar risk small.
	entryTolFrac = 0.2
	stopTolFrac  = 1.2
)

// KlineSource supplies recent bars for evaluation, ascending by time.
type KlineSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error)
}

// Config carries the signal engine knobs.
type Config struct {
	Symbol        string
	Interval      string
	Lookback      int
	PivotLeft     int
	PivotRight    int
	MaxLevels     int
	RiskReward    float64
	MaxRiskUSD    float64
	FixedSize     float64
	ClusterTolPct float64
	Cooldown      time.Duration
}

// Plan is a fully priced trade idea ready to journal.
type Plan struct {
	Side    domain.Side
	Entry   float64
	Stop    float64
	Target  float64
	RiskUSD float64
	// Level is the support or resistance price the plan fades to.
	Level  float64
	Reason string
}

// Engine evaluates market structure and journals the outcome of every
// evaluation. It emits a signal only when the trend and a nearby level line
// up and the implied dollar risk fits under the cap.
type Engine struct {
	cfg      Config
	klines   KlineSource
	journal  *journal.Writer
	cooldown *state.Cooldown
	notifier *notify.Notifier
	dedup    *Dedup
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine wires a signal engine. dedup may be nil for one-shot runs; the
// cooldown alone throttles those.
func NewEngine(cfg Config, klines KlineSource, jw *journal.Writer, cooldown *state.Cooldown, notifier *notify.Notifier, dedup *Dedup, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		klines:   klines,
		journal:  jw,
		cooldown: cooldown,
		notifier: notifier,
		dedup:    dedup,
		logger:   logger.With("component", "signal"),
		now:      time.Now,
	}
}

// Run performs one fetch-and-evaluate pass. Feed failures are journaled as
// error rows and do not fail the run; the next cron tick simply tries again.
func (e *Engine) Run(ctx context.Context) error {
	bars, err := e.klines.Klines(ctx, e.cfg.Symbol, e.cfg.Interval, e.cfg.Lookback)
	if err != nil {
		e.logger.WarnContext(ctx, "kline fetch failed", "error", err)
		return e.appendRow(journal.Record{Type: "error", Err: truncate(err.Error(), 200)})
	}
	_, err = e.Evaluate(ctx, bars)
	return err
}

// Evaluate runs the full decision over the given bars and journals an
// analysis, skip, or signal row. It returns the emitted plan, or nil when the
// evaluation ended in a skip.
func (e *Engine) Evaluate(ctx context.Context, bars []domain.Bar) (*Plan, error) {
	now := e.now().UTC()

	if len(bars) == 0 {
		return nil, e.appendRow(journal.Record{
			Type:   "skip",
			Reason: "no_klines",
			Ts:     now.Unix(),
			ISO:    now.Format(time.RFC3339),
		})
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}

	last := closes[len(closes)-1]
	fast := EMA(closes, emaFastPeriod)
	slow := EMA(closes, emaSlowPeriod)
	emaFast := fast[len(fast)-1]
	emaSlow := slow[len(slow)-1]
	trend := TrendOf(emaFast, emaSlow)

	ph, pl := Pivots(highs, lows, e.cfg.PivotLeft, e.cfg.PivotRight)
	raw := make([]float64, 0, 2*maxRawPivots)
	for _, i := range tailIdx(ph, maxRawPivots) {
		raw = append(raw, highs[i])
	}
	for _, i := range tailIdx(pl, maxRawPivots) {
		raw = append(raw, lows[i])
	}

	tol := last * e.cfg.ClusterTolPct
	levels := ClusterLevels(raw, e.cfg.MaxLevels, tol)
	sup, res, hasSup, hasRes := NearestLevels(levels, last)

	row := journal.Record{
		Type:     "analysis",
		Ts:       now.Unix(),
		ISO:      now.Format(time.RFC3339),
		Symbol:   e.cfg.Symbol,
		Interval: e.cfg.Interval,
		Price:    last,
		EMAFast:  emaFast,
		EMASlow:  emaSlow,
		Trend:    string(trend),
	}
	if hasSup {
		row.Support = sup
	}
	if hasRes {
		row.Resistance = res
	}

	plan := e.buildPlan(trend, tol, sup, res, hasSup, hasRes)
	if plan == nil {
		row.Type = "skip"
		row.Reason = "no_setup_or_risk_too_high"
		row.MaxRiskUSD = e.cfg.MaxRiskUSD
		row.Size = e.cfg.FixedSize
		return nil, e.appendRow(row)
	}

	if e.cooldown.Active(now, e.cfg.Cooldown) {
		row.Type = "skip"
		row.Reason = "signal_cooldown"
		return nil, e.appendRow(row)
	}

	if e.dedup != nil && e.dedup.IsDuplicate(SetupKey(e.cfg.Symbol, string(plan.Side), plan.Level)) {
		row.Type = "skip"
		row.Reason = "duplicate_setup"
		return nil, e.appendRow(row)
	}

	row.Type = journal.KindSignal
	row.Side = string(plan.Side)
	row.Entry = plan.Entry
	row.Stop = plan.Stop
	row.Target = plan.Target
	row.RR = e.cfg.RiskReward
	row.Size = e.cfg.FixedSize
	row.RiskUSD = plan.RiskUSD
	row.Reason = plan.Reason
	if err := e.appendRow(row); err != nil {
		return nil, err
	}

	e.cooldown.Mark(now)
	if err := e.cooldown.Save(); err != nil {
		return nil, fmt.Errorf("signal: save cooldown: %w", err)
	}

	e.push(ctx, plan, last, trend, sup, res, hasSup, hasRes)

	e.logger.InfoContext(ctx, "signal emitted",
		"side", string(plan.Side),
		"entry", plan.Entry,
		"stop", plan.Stop,
		"target", plan.Target,
		"risk_usd", plan.RiskUSD)
	return plan, nil
}

// buildPlan prices the fade-to-level idea for the current regime: limit buy
// just above the nearest support in an uptrend, limit sell just below the
// nearest resistance in a downtrend. Returns nil when no level is on the
// right side or the implied risk exceeds the cap.
func (e *Engine) buildPlan(trend Trend, tol, sup, res float64, hasSup, hasRes bool) *Plan {
	switch {
	case trend == TrendUp && hasSup:
		entry := sup + tol*entryTolFrac
		stop := sup - tol*stopTolFrac
		risk := (entry - stop) * e.cfg.FixedSize
		if risk > e.cfg.MaxRiskUSD {
			return nil
		}
		return &Plan{
			Side:    domain.SideLong,
			Entry:   entry,
			Stop:    stop,
			Target:  entry + e.cfg.RiskReward*(entry-stop),
			RiskUSD: risk,
			Level:   sup,
			Reason:  fmt.Sprintf("UP trend (EMA50>EMA200). Support=%s. Limit near support with tight invalidation.", fmtPx(sup)),
		}
	case trend == TrendDown && hasRes:
		entry := res - tol*entryTolFrac
		stop := res + tol*stopTolFrac
		risk := (stop - entry) * e.cfg.FixedSize
		if risk > e.cfg.MaxRiskUSD {
			return nil
		}
		return &Plan{
			Side:    domain.SideShort,
			Entry:   entry,
			Stop:    stop,
			Target:  entry - e.cfg.RiskReward*(stop-entry),
			RiskUSD: risk,
			Level:   res,
			Reason:  fmt.Sprintf("DOWN trend (EMA50<EMA200). Resistance=%s. Limit near resistance with tight invalidation.", fmtPx(res)),
		}
	}
	return nil
}

// push notifies operators about the emitted signal. Delivery failures are
// logged and swallowed; the journal row is already safely on disk.
func (e *Engine) push(ctx context.Context, plan *Plan, last float64, trend Trend, sup, res float64, hasSup, hasRes bool) {
	if !e.notifier.Enabled() {
		return
	}

	mtm := (last - plan.Entry) * e.cfg.FixedSize
	if plan.Side == domain.SideShort {
		mtm = (plan.Entry - last) * e.cfg.FixedSize
	}

	supCell, resCell := "-", "-"
	if hasSup {
		supCell = fmtPx(sup)
	}
	if hasRes {
		resCell = fmtPx(res)
	}

	msg := fmt.Sprintf(
		"%s %sm | Trend: %s\n"+
			"Side: %s\n"+
			"Entry (limit): %s\n"+
			"SL: %s (risk≈$%.2f)\n"+
			"TP: %s (R:R 1:%.0f)\n"+
			"Size: %.4f BTC\n"+
			"Now: %s | MTM (if filled): $%+.2f\n"+
			"S/R: support=%s | resistance=%s\n"+
			"Reason: %s",
		e.cfg.Symbol, e.cfg.Interval, trend,
		plan.Side,
		fmtPx(plan.Entry),
		fmtPx(plan.Stop), plan.RiskUSD,
		fmtPx(plan.Target), e.cfg.RiskReward,
		e.cfg.FixedSize,
		fmtPx(last), mtm,
		supCell, resCell,
		plan.Reason,
	)
	if err := e.notifier.Notify(ctx, notify.EventSignal, "BYBIT SIGNAL (paper, no trade)", msg); err != nil {
		e.logger.WarnContext(ctx, "signal notification failed", "error", err)
	}
}

func (e *Engine) appendRow(rec journal.Record) error {
	if err := e.journal.Append(rec); err != nil {
		return fmt.Errorf("signal: journal append: %w", err)
	}
	return nil
}

// fmtPx renders a price with thousands separators and two decimals, matching
// the journal's human-facing message style.
func fmtPx(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	whole, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
