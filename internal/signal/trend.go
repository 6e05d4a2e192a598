// Package signal generates bracket trade ideas from Bybit klines: an EMA
// trend filter, swing-pivot support/resistance levels, and a fade-to-level
// entry plan with fixed risk. Every evaluation is journaled whether or not it
// produces a signal, so resolution runs can audit the full decision trail.
package signal

// Trend is the EMA regime label.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
)

// EMA returns the exponential moving average series for the given period,
// seeded with the first value. The result has the same length as values.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + k*(values[i]-out[i-1])
	}
	return out
}

// TrendOf labels the regime from the fast and slow EMA terminal values. Equal
// EMAs read as DOWN, which keeps the long side the harder one to qualify for.
func TrendOf(fast, slow float64) Trend {
	if fast > slow {
		return TrendUp
	}
	return TrendDown
}
