package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelsher/paperbot/internal/domain"
)

// BinaryConfig carries the knobs for a binary-variant resolution run.
type BinaryConfig struct {
	// FeeRateBps is applied when the market response does not report a fee.
	FeeRateBps float64
}

// BinaryIntentSource yields journaled binary-market intents, oldest first.
type BinaryIntentSource interface {
	BinaryIntents() ([]domain.BinaryIntent, error)
}

// BinaryResolver settles binary-contract intents against market outcomes.
type BinaryResolver struct {
	cfg     BinaryConfig
	markets MarketSource
	intents BinaryIntentSource
	store   IdempotencyStore
	results ResultSink
	mirror  ResolutionMirror
	logger  *slog.Logger
	now     func() time.Time
}

// NewBinaryResolver wires a binary resolver. The mirror may be nil.
func NewBinaryResolver(cfg BinaryConfig, markets MarketSource, intents BinaryIntentSource, store IdempotencyStore, results ResultSink, mirror ResolutionMirror, logger *slog.Logger) *BinaryResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &BinaryResolver{
		cfg:     cfg,
		markets: markets,
		intents: intents,
		store:   store,
		results: results,
		mirror:  mirror,
		logger:  logger.With("component", "resolver", "variant", "binary"),
		now:     time.Now,
	}
}

// Run performs one settlement pass. For each new intent the market is
// fetched; anything short of a final status with a parseable outcome leaves
// the intent pending for the next run. Only once settlement is known does the
// deterministic fill draw happen, so an unfilled verdict is recorded at most
// once and always against a settled market.
func (r *BinaryResolver) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	intents, err := r.intents.BinaryIntents()
	if err != nil {
		return stats, fmt.Errorf("resolver: read binary intents: %w", err)
	}
	stats.Intents = len(intents)
	if len(intents) == 0 {
		r.logger.DebugContext(ctx, "no binary intents to resolve")
		return stats, nil
	}

	var written []domain.Resolution
	for _, it := range intents {
		if err := ctx.Err(); err != nil {
			break
		}
		key := it.Key()
		if r.store.Contains(key) {
			stats.Duplicates++
			continue
		}

		market, err := r.markets.Market(ctx, it.MarketID)
		if err != nil {
			stats.Pending++
			r.logger.DebugContext(ctx, "market fetch failed, intent stays pending",
				"market_id", it.MarketID,
				"error", err)
			continue
		}
		if !market.Status.IsFinal() {
			stats.Pending++
			r.logger.DebugContext(ctx, "market not settled yet",
				"market_id", it.MarketID,
				"status", string(market.Status))
			continue
		}
		if market.OutcomeUp == nil {
			stats.Pending++
			r.logger.DebugContext(ctx, "market settled but outcome is unreadable",
				"market_id", it.MarketID,
				"outcome_name", market.OutcomeName)
			continue
		}

		res := r.settle(it, key, market)
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

	r.logger.InfoContext(ctx, "binary resolution pass complete",
		"intents", stats.Intents,
		"resolved", stats.Written,
		"wins", stats.Wins,
		"losses", stats.Losses,
		"unfilled", stats.Unfilled,
		"pending", stats.Pending,
		"duplicates", stats.Duplicates)
	return stats, nil
}

// settle builds the terminal record for an intent whose market has resolved.
func (r *BinaryResolver) settle(it domain.BinaryIntent, key string, market domain.Market) domain.Resolution {
	now := r.now().UTC()

	feeBps := market.FeeRateBps
	if feeBps == 0 {
		feeBps = r.cfg.FeeRateBps
	}

	question := market.Question
	if question == "" {
		question = it.Question
	}

	res := domain.Resolution{
		Variant:     domain.VariantBinary,
		ResolvedTs:  now.Unix(),
		ResolvedISO: now.Format(time.RFC3339),
		IntentTs:    it.Ts,
		IntentKey:   key,
		MarketID:    it.MarketID,
		Question:    question,
		Side:        string(it.Side),
		Entry:       it.Price,
		Size:        it.Shares,
		Status:      string(market.Status),
		OutcomeUp:   market.OutcomeUp,
		OutcomeName: market.OutcomeName,
		FeeRateBps:  fptr(feeBps),
	}

	pFill, draw, filled := PaperFill(key, it.Edge, it.Confidence)
	res.PFill = fptr(pFill)
	res.Draw = fptr(draw)
	res.Filled = filled

	if !filled {
		res.Notional = fptr(0)
		res.Fee = fptr(0)
		res.PnLGross = fptr(0)
		res.PnLNet = fptr(0)
		res.Outcome = domain.OutcomeUnfilled
		res.Win = 0
		return res
	}

	pnl := PaperPnL(it.Side, it.Price, it.Shares, *market.OutcomeUp, feeBps)
	res.Notional = fptr(pnl.Notional)
	res.Fee = fptr(pnl.Fee)
	res.PnLGross = fptr(pnl.Gross)
	res.PnLNet = fptr(pnl.Net)
	if pnl.Win {
		res.Outcome = domain.OutcomeWin
	} else {
		res.Outcome = domain.OutcomeLoss
	}
	res.Win = winFlag(res.Outcome)
	return res
}

func (r *BinaryResolver) mirrorBatch(ctx context.Context, res []domain.Resolution) {
	if r.mirror == nil || len(res) == 0 {
		return
	}
	if err := r.mirror.InsertBatch(ctx, res); err != nil {
		r.logger.WarnContext(ctx, "resolution mirror insert failed",
			"count", len(res),
			"error", err)
	}
}
