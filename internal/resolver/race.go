package resolver

import "github.com/avelsher/paperbot/internal/domain"

// ResolveRace walks bars forward from the fill and reports which side of the
// bracket was struck first. Bars carry no intra-bar ordering, so a bar that
// spans both levels is scored as a stop: when the data cannot tell which hit
// came first, the adverse outcome wins.
//
// The second return is false when neither level was struck by the end of the
// data, meaning the position is still open and the caller must not persist
// anything for it yet.
func ResolveRace(side domain.Side, stop, target float64, bars []domain.Bar) (domain.Outcome, bool) {
	for _, b := range bars {
		var stopHit, targetHit bool
		switch side {
		case domain.SideShort:
			stopHit = b.High >= stop
			targetHit = b.Low <= target
		default:
			stopHit = b.Low <= stop
			targetHit = b.High >= target
		}
		if stopHit {
			return domain.OutcomeLoss, true
		}
		if targetHit {
			return domain.OutcomeWin, true
		}
	}
	return domain.OutcomePending, false
}
