package resolver

const (
	fnvOffset64 = 0xcbf29ce484222325
	fnvPrime64  = 0x100000001b3
)

// hashKey runs FNV-1a over the key bytes and then a splitmix64-style
// finalizer. FNV alone leaves the low bits weakly mixed for short keys; the
// finalizer spreads them before we truncate to a mantissa.
func hashKey(key string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= fnvPrime64
	}
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}

// Draw maps a key to a uniform value in [0,1). Same key, same value, on any
// platform, forever; that is what makes paper fills replayable.
func Draw(key string) float64 {
	return float64(hashKey(key)>>11) / (1 << 53)
}

// FillProbability converts an intent's edge and confidence into the chance
// that the simulated limit order would have been hit. Edge ramps over
// [2%,8%], confidence over [60%,80%], and the blend is banded to [2%,60%] so
// no intent is ever a sure fill or a sure miss.
func FillProbability(edge, conf float64) float64 {
	pEdge := clamp01((edge - 0.02) / 0.06)
	pConf := clamp01((conf - 0.60) / 0.20)
	p := 0.05 + 0.55*(0.6*pEdge+0.4*pConf)
	return clamp(p, 0.02, 0.60)
}

// PaperFill decides whether the intent's simulated order filled, returning
// the probability used, the deterministic draw, and the verdict.
func PaperFill(key string, edge, conf float64) (pFill, draw float64, filled bool) {
	pFill = FillProbability(edge, conf)
	draw = Draw(key)
	return pFill, draw, draw < pFill
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
