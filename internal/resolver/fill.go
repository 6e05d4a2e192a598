package resolver

import "github.com/avelsher/paperbot/internal/domain"

// DetectFill scans the window in order and returns the index of the first bar
// whose range includes the entry price. Touching either extreme counts.
func DetectFill(entry float64, window []domain.Bar) (int, bool) {
	for i, b := range window {
		if b.Touches(entry) {
			return i, true
		}
	}
	return 0, false
}
