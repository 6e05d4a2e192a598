package signal

import "sort"

// Pivots returns the indexes of swing highs and swing lows. A pivot high is
// strictly above every high in the left window and at least as high as every
// high in the right window; pivot lows mirror that. The asymmetry keeps flat
// double-tops from producing two pivots while still confirming quickly.
func Pivots(highs, lows []float64, left, right int) (ph, pl []int) {
	n := len(highs)
	for i := left; i < n-right; i++ {
		h := highs[i]
		l := lows[i]

		isHigh := true
		isLow := true
		for j := i - left; j < i; j++ {
			if h <= highs[j] {
				isHigh = false
			}
			if l >= lows[j] {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh || isLow {
			for j := i + 1; j <= i+right; j++ {
				if h < highs[j] {
					isHigh = false
				}
				if l > lows[j] {
					isLow = false
				}
				if !isHigh && !isLow {
					break
				}
			}
		}

		if isHigh {
			ph = append(ph, i)
		}
		if isLow {
			pl = append(pl, i)
		}
	}
	return ph, pl
}

// ClusterLevels merges raw pivot prices into at most maxLevels cluster
// centers. Prices are sorted ascending and greedily attached to the first
// cluster whose running mean is within tol; leftover clusters beyond the cap
// are dropped from the top.
func ClusterLevels(levels []float64, maxLevels int, tol float64) []float64 {
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	var clusters [][]float64
	for _, x := range sorted {
		placed := false
		for ci, c := range clusters {
			mean := meanOf(c)
			if abs(x-mean) <= tol {
				clusters[ci] = append(c, x)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []float64{x})
		}
	}

	centers := make([]float64, 0, len(clusters))
	for _, c := range clusters {
		centers = append(centers, meanOf(c))
	}
	if maxLevels > 0 && len(centers) > maxLevels {
		centers = centers[:maxLevels]
	}
	return centers
}

// NearestLevels picks the closest level at or below last (support) and at or
// above last (resistance). A level exactly at last counts as both.
func NearestLevels(levels []float64, last float64) (support, resistance float64, hasSup, hasRes bool) {
	for _, x := range levels {
		if x <= last && (!hasSup || x > support) {
			support = x
			hasSup = true
		}
		if x >= last && (!hasRes || x < resistance) {
			resistance = x
			hasRes = true
		}
	}
	return support, resistance, hasSup, hasRes
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// tailIdx returns the last n elements of idx (all of them when fewer).
func tailIdx(idx []int, n int) []int {
	if len(idx) <= n {
		return idx
	}
	return idx[len(idx)-n:]
}
