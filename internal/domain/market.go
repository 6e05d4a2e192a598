package domain

// MarketStatus represents the lifecycle state of a binary market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusResolved MarketStatus = "resolved"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusSettled  MarketStatus = "settled"
)

// IsFinal reports whether the market's outcome can no longer change, i.e.
// paper intents against it are safe to settle.
func (s MarketStatus) IsFinal() bool {
	switch s {
	case MarketStatusResolved, MarketStatusClosed, MarketStatusSettled:
		return true
	default:
		return false
	}
}

// Market is the settlement view of a binary market. OutcomeUp is nil until
// the venue reports an outcome in a shape we can parse.
type Market struct {
	ID          string
	Question    string
	Status      MarketStatus
	OutcomeUp   *bool
	OutcomeName string
	FeeRateBps  float64
}
