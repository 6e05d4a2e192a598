package simmer

import (
	"strings"

	"github.com/avelsher/paperbot/internal/domain"
)

// marketResponse is the envelope for /api/sdk/markets/{id}.
type marketResponse struct {
	Market APIMarket `json:"market"`
}

// APIMarket is the wire shape of a market. Outcome has shifted shape across
// API revisions (bool, number, or string), so it is decoded loosely and
// normalised in ToDomainMarket.
type APIMarket struct {
	ID          string  `json:"id"`
	Question    string  `json:"question"`
	Status      string  `json:"status"`
	Outcome     any     `json:"outcome"`
	OutcomeName string  `json:"outcome_name"`
	FeeRateBps  float64 `json:"fee_rate_bps"`
}

// ToDomainMarket converts the wire market into the domain settlement view.
// The outcome parse chain, most to least explicit: a boolean outcome, a
// numeric outcome (nonzero means up), a recognised outcome string, then the
// outcome name. OutcomeUp stays nil when none of them decide.
func (m APIMarket) ToDomainMarket(fallbackID string) domain.Market {
	id := m.ID
	if id == "" {
		id = fallbackID
	}

	out := domain.Market{
		ID:          id,
		Question:    m.Question,
		Status:      domain.MarketStatus(strings.ToLower(m.Status)),
		OutcomeName: m.OutcomeName,
		FeeRateBps:  m.FeeRateBps,
	}

	switch v := m.Outcome.(type) {
	case bool:
		b := v
		out.OutcomeUp = &b
	case float64: // any JSON number decodes as float64
		b := v != 0
		out.OutcomeUp = &b
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "up", "true", "1":
			b := true
			out.OutcomeUp = &b
		case "no", "down", "false", "0":
			b := false
			out.OutcomeUp = &b
		}
	}

	if out.OutcomeUp == nil {
		name := strings.ToLower(m.OutcomeName)
		switch {
		case strings.Contains(name, "up"):
			b := true
			out.OutcomeUp = &b
		case strings.Contains(name, "down"):
			b := false
			out.OutcomeUp = &b
		}
	}

	return out
}
