// Package report summarises recent resolutions into a short operator-facing
// text block, one section per resolver variant.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avelsher/paperbot/internal/domain"
)

// VariantStats aggregates the resolutions of one variant.
type VariantStats struct {
	Total    int
	Filled   int
	Wins     int
	Losses   int
	Unfilled int
	PnLNet   float64
	Fees     float64
}

// Summary holds per-variant aggregates for one report window.
type Summary struct {
	Bar    VariantStats
	Binary VariantStats
}

// Empty reports whether the window contained no resolutions at all.
func (s Summary) Empty() bool {
	return s.Bar.Total == 0 && s.Binary.Total == 0
}

// Compute aggregates resolutions into per-variant stats.
func Compute(rows []domain.Resolution) Summary {
	var sum Summary
	for _, r := range rows {
		st := &sum.Bar
		if r.Variant == domain.VariantBinary {
			st = &sum.Binary
		}

		st.Total++
		switch r.Outcome {
		case domain.OutcomeUnfilled:
			st.Unfilled++
		case domain.OutcomeWin:
			st.Filled++
			st.Wins++
		case domain.OutcomeLoss:
			st.Filled++
			st.Losses++
		}
		if r.PnLNet != nil {
			st.PnLNet += *r.PnLNet
		}
		if r.Fee != nil {
			st.Fees += *r.Fee
		}
	}
	return sum
}

// Render formats the summary as the report text. Bar win-rate counts filled
// signals only, since an unfilled limit never risked anything; binary
// win-rate counts every resolved intent because unfilled draws are part of
// the fill model being measured.
func Render(s Summary, hours float64) string {
	var sections []string

	if s.Bar.Total > 0 {
		b := s.Bar
		rate := 0.0
		if b.Filled > 0 {
			rate = float64(b.Wins) / float64(b.Filled)
		}
		sections = append(sections, strings.Join([]string{
			fmt.Sprintf("BYBIT SR PAPER (last %gh)", hours),
			fmt.Sprintf("Signals resolved: %d", b.Total),
			fmt.Sprintf("Filled: %d", b.Filled),
			fmt.Sprintf("Win-rate (filled only): %.1f%% (%d/%d)", rate*100, b.Wins, b.Filled),
		}, "\n"))
	}

	if s.Binary.Total > 0 {
		b := s.Binary
		rate := float64(b.Wins) / float64(b.Total)
		sections = append(sections, strings.Join([]string{
			fmt.Sprintf("BINARY PAPER (last %gh)", hours),
			fmt.Sprintf("Trades resolved: %d", b.Total),
			fmt.Sprintf("Win-rate: %.1f%% (%d/%d)", rate*100, b.Wins, b.Total),
			fmt.Sprintf("Net PnL: $%s", fmtUSD(b.PnLNet)),
			fmt.Sprintf("Fees est.: $%s", fmtUSD(b.Fees)),
		}, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

// fmtUSD renders a dollar amount with thousands separators and two decimals.
func fmtUSD(v float64) string {
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
