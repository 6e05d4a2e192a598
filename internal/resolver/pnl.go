package resolver

import "github.com/avelsher/paperbot/internal/domain"

// PnL is the settlement economics of a filled binary position.
type PnL struct {
	Notional float64
	Fee      float64
	Gross    float64
	Net      float64
	Win      bool
}

// PaperPnL settles a binary contract position. Contracts pay 1 per share on
// the winning side and 0 on the losing side, so a win returns the complement
// of the entry price per share and a loss forfeits the entry price. The fee
// is charged on notional regardless of outcome.
func PaperPnL(side domain.BinarySide, price, shares float64, outcomeUp bool, feeRateBps float64) PnL {
	notional := shares * price
	fee := notional * feeRateBps / 10000

	win := outcomeUp
	if side == domain.SideNo {
		win = !outcomeUp
	}

	gross := -shares * price
	if win {
		gross = shares * (1 - price)
	}

	return PnL{
		Notional: notional,
		Fee:      fee,
		Gross:    gross,
		Net:      gross - fee,
		Win:      win,
	}
}
