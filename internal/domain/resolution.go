package domain

// Outcome is the terminal result of resolving an intent.
type Outcome string

const (
	OutcomeUnfilled Outcome = "unfilled"
	OutcomeWin      Outcome = "win"
	OutcomeLoss     Outcome = "loss"

	// OutcomePending means the intent filled but neither stop nor target was
	// reachable from the available bars (or the market has not settled yet).
	// Pending is in-process only: it is never written to results or recorded
	// in the idempotency state, so a later run revisits the intent.
	OutcomePending Outcome = "pending"
)

// Terminal reports whether the outcome may be persisted.
func (o Outcome) Terminal() bool {
	return o == OutcomeUnfilled || o == OutcomeWin || o == OutcomeLoss
}

// Variant names which resolver produced a Resolution.
type Variant string

const (
	VariantBar    Variant = "bar"
	VariantBinary Variant = "binary"
)

// Resolution is the full result record for one intent, written exactly once
// per intent key. One fixed field set covers both resolver variants; fields
// that do not apply to a variant are nil pointers and surface as empty cells
// in the tabular export.
type Resolution struct {
	Variant     Variant `json:"variant"`
	ResolvedTs  int64   `json:"resolved_ts"`
	ResolvedISO string  `json:"resolved_iso"`
	IntentTs    int64   `json:"intent_ts"`
	IntentKey   string  `json:"intent_key"`

	// Identity echo.
	MarketID string `json:"market_id,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Interval string `json:"interval,omitempty"`
	Question string `json:"question,omitempty"`
	Side     string `json:"side"`

	// Price echo. Entry applies to both variants; Stop/Target only to bar
	// intents.
	Entry   float64  `json:"entry"`
	Stop    *float64 `json:"stop,omitempty"`
	Target  *float64 `json:"target,omitempty"`
	RR      *float64 `json:"rr,omitempty"`
	Size    float64  `json:"size"`
	RiskUSD *float64 `json:"risk_usd,omitempty"`

	// Binary settlement echo.
	Status      string   `json:"status,omitempty"`
	OutcomeUp   *bool    `json:"outcome_up,omitempty"`
	OutcomeName string   `json:"outcome_name,omitempty"`
	FeeRateBps  *float64 `json:"fee_rate_bps,omitempty"`

	// Fill detail. FillTs is the bar that touched the entry (bar variant);
	// PFill/Draw are the probability model's inputs to Filled (binary).
	Filled bool     `json:"filled"`
	FillTs *int64   `json:"fill_ts,omitempty"`
	PFill  *float64 `json:"p_fill,omitempty"`
	Draw   *float64 `json:"draw,omitempty"`

	// PnL (binary variant).
	Notional *float64 `json:"notional,omitempty"`
	Fee      *float64 `json:"fee,omitempty"`
	PnLGross *float64 `json:"pnl_gross,omitempty"`
	PnLNet   *float64 `json:"pnl_net,omitempty"`

	Outcome Outcome `json:"outcome"`
	Win     int     `json:"win"`
}

// Summary reduces a Resolution to the minimal form kept by the idempotency
// state.
func (r Resolution) Summary() ResolutionSummary {
	return ResolutionSummary{Outcome: r.Outcome, ResolvedTs: r.ResolvedTs}
}

// ResolutionSummary is the per-key entry persisted by the idempotency state.
type ResolutionSummary struct {
	Outcome    Outcome `json:"outcome"`
	ResolvedTs int64   `json:"resolved_ts"`
}
