// Package resolver turns journaled intents into resolution records: fill
// detection against OHLC bars, the stop-vs-target race, the deterministic
// paper-fill model for binary contracts, and the run orchestration that ties
// journal, state, and results together.
//
// Resolution is idempotent: every intent has a stable key, keys already in
// the idempotency store are skipped, and only terminal outcomes (unfilled,
// win, loss) are ever persisted. An intent whose outcome cannot be decided
// from the available data is left untouched for a later run.
package resolver

import (
	"context"

	"github.com/avelsher/paperbot/internal/domain"
)

// BarSource supplies recent bars for a symbol/interval, ascending by time.
type BarSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error)
}

// MarketSource supplies the settlement view of a binary market.
type MarketSource interface {
	Market(ctx context.Context, id string) (domain.Market, error)
}

// IdempotencyStore gates re-processing of intent keys.
type IdempotencyStore interface {
	Contains(key string) bool
	Record(key string, sum domain.ResolutionSummary)
	Save() error
}

// ResultSink receives each newly terminal resolution exactly once.
type ResultSink interface {
	Write(res domain.Resolution) error
}

// ResolutionMirror is an optional secondary sink (e.g. a database) fed in one
// batch at the end of a run. Mirror failures degrade, they never fail a run.
type ResolutionMirror interface {
	InsertBatch(ctx context.Context, res []domain.Resolution) error
}

// RunStats summarises one resolution pass.
type RunStats struct {
	Intents    int
	Written    int
	Wins       int
	Losses     int
	Unfilled   int
	Pending    int
	Duplicates int
}

func fptr(v float64) *float64 { return &v }

func iptr(v int64) *int64 { return &v }

func winFlag(o domain.Outcome) int {
	if o == domain.OutcomeWin {
		return 1
	}
	return 0
}
