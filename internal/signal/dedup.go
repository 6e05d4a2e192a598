package signal

import (
	"strconv"
	"sync"
	"time"
)

// Dedup suppresses repeat signals for the same setup within a time-to-live
// window. Streaming evaluation re-sees the same support or resistance level
// on every bar close; without this, one sticky level would re-emit on each
// close as soon as the cooldown lapses. Safe for concurrent use.
type Dedup struct {
	seen map[string]time.Time
	ttl  time.Duration
	mu   sync.Mutex
}

// NewDedup creates a Dedup that treats a setup as a duplicate when it was
// seen within ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// SetupKey identifies a setup by symbol, direction, and the level it fades
// to. Two signals off the same level are the same setup even when EMA noise
// shifts the computed entry by a tick.
func SetupKey(symbol, side string, level float64) string {
	return symbol + ":" + side + ":" + strconv.FormatFloat(level, 'g', -1, 64)
}

// IsDuplicate reports whether the setup was seen within the TTL window. A
// fresh or expired setup is recorded and reported as not a duplicate.
func (d *Dedup) IsDuplicate(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if lastSeen, ok := d.seen[key]; ok {
		if now.Sub(lastSeen) < d.ttl {
			return true
		}
	}

	d.seen[key] = now
	return false
}

// Cleanup drops expired entries. Call it periodically from long-lived watch
// loops to keep the map bounded.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for key, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, key)
		}
	}
}
