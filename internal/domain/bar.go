package domain

import "sort"

// Bar is one OHLC candle for a fixed interval.
type Bar struct {
	Ts    int64 // bar open time, unix seconds
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Touches reports whether price sits within the bar's traded range, bounds
// inclusive.
func (b Bar) Touches(price float64) bool {
	return b.Low <= price && price <= b.High
}

// SortBars returns bars sorted ascending by timestamp. Sources are allowed to
// deliver bars newest-first; duplicate timestamps collapse last-wins so a
// repeated candle cannot corrupt the ordering.
func SortBars(bars []Bar) []Bar {
	out := make([]Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ts < out[j].Ts })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Ts == b.Ts {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// BarsFrom returns the suffix of bars whose timestamp is at or after ts,
// capped to at most limit bars. Bars must already be sorted ascending.
func BarsFrom(bars []Bar, ts int64, limit int) []Bar {
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Ts >= ts })
	window := bars[i:]
	if limit > 0 && len(window) > limit {
		window = window[:limit]
	}
	return window
}
