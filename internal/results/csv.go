package results

import (
	"strconv"

	"github.com/avelsher/paperbot/internal/domain"
)

// csvHeader fixes the column order for the CSV mirror. csvRecord must stay
// aligned with it position by position.
var csvHeader = []string{
	"variant",
	"resolved_ts",
	"resolved_iso",
	"intent_ts",
	"intent_key",
	"market_id",
	"symbol",
	"interval",
	"question",
	"side",
	"entry",
	"stop",
	"target",
	"rr",
	"size",
	"risk_usd",
	"status",
	"outcome_up",
	"outcome_name",
	"fee_rate_bps",
	"filled",
	"fill_ts",
	"p_fill",
	"draw",
	"notional",
	"fee",
	"pnl_gross",
	"pnl_net",
	"outcome",
	"win",
}

func csvRecord(r domain.Resolution) []string {
	return []string{
		string(r.Variant),
		strconv.FormatInt(r.ResolvedTs, 10),
		r.ResolvedISO,
		strconv.FormatInt(r.IntentTs, 10),
		r.IntentKey,
		r.MarketID,
		r.Symbol,
		r.Interval,
		r.Question,
		r.Side,
		fcell(r.Entry),
		fcellp(r.Stop),
		fcellp(r.Target),
		fcellp(r.RR),
		fcell(r.Size),
		fcellp(r.RiskUSD),
		r.Status,
		bcellp(r.OutcomeUp),
		r.OutcomeName,
		fcellp(r.FeeRateBps),
		strconv.FormatBool(r.Filled),
		icellp(r.FillTs),
		fcellp(r.PFill),
		fcellp(r.Draw),
		fcellp(r.Notional),
		fcellp(r.Fee),
		fcellp(r.PnLGross),
		fcellp(r.PnLNet),
		string(r.Outcome),
		strconv.Itoa(r.Win),
	}
}

func fcell(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func fcellp(v *float64) string {
	if v == nil {
		return ""
	}
	return fcell(*v)
}

func icellp(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func bcellp(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
