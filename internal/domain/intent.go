// Package domain holds the core types shared by the journal, resolver, and
// result pipeline. Types here carry no I/O.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Side is the direction of a bar-resolved intent.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ParseSide normalises a journal side string.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG":
		return SideLong, nil
	case "SHORT":
		return SideShort, nil
	default:
		return "", fmt.Errorf("domain: unknown side %q", s)
	}
}

// BinarySide is the direction of a binary-contract intent.
type BinarySide string

const (
	SideYes BinarySide = "YES"
	SideNo  BinarySide = "NO"
)

// ParseBinarySide normalises a journal side string for binary intents.
func ParseBinarySide(s string) (BinarySide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES":
		return SideYes, nil
	case "NO":
		return SideNo, nil
	default:
		return "", fmt.Errorf("domain: unknown binary side %q", s)
	}
}

// BarIntent is a previously journaled trade idea resolved against OHLC bars:
// a limit-style entry with a stop and a target. Immutable once journaled.
type BarIntent struct {
	Ts         int64 // emission time, unix seconds
	Symbol     string
	Interval   string
	Side       Side
	Entry      float64
	Stop       float64
	Target     float64
	RiskReward float64
	Size       float64 // base-asset units
	RiskUSD    float64
}

// Key returns the stable idempotency key for the intent. Re-emitting the same
// intent (same timestamp, side, and price triple) maps to the same key; two
// intents emitted at different times resolve independently.
func (i BarIntent) Key() string {
	return fmt.Sprintf("%d:%s:%s:%s:%s",
		i.Ts, i.Side, fnum(i.Entry), fnum(i.Stop), fnum(i.Target))
}

// BinaryIntent is a previously journaled paper trade on a binary-outcome
// market: buy Side at Price (a probability in (0,1)) for Shares contracts.
// Immutable once journaled.
type BinaryIntent struct {
	Ts         int64 // emission time, unix seconds
	MarketID   string
	Question   string
	Side       BinarySide
	Price      float64
	Shares     float64
	Edge       float64
	Confidence float64
}

// Key returns the stable idempotency key for the intent: one resolution per
// (market, emission time) pair.
func (i BinaryIntent) Key() string {
	return i.MarketID + ":" + strconv.FormatInt(i.Ts, 10)
}

// fnum formats a price or size for key construction: shortest representation
// that round-trips, so equal floats always produce equal keys.
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
