package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMA(t *testing.T) {
	t.Parallel()

	assert.Nil(t, EMA(nil, 50))

	// Seeded with the first value.
	got := EMA([]float64{42}, 50)
	require.Len(t, got, 1)
	assert.Equal(t, 42.0, got[0])

	// period 3 gives k = 0.5, easy to follow by hand.
	got = EMA([]float64{10, 13, 11}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, 10.0, got[0])
	assert.InDelta(t, 11.5, got[1], 1e-9)
	assert.InDelta(t, 11.25, got[2], 1e-9)

	// period 1 follows the series exactly.
	vals := []float64{5, 7, 6, 9}
	assert.Equal(t, vals, EMA(vals, 1))
}

func TestEMAConstantSeries(t *testing.T) {
	t.Parallel()

	got := EMA([]float64{3, 3, 3, 3}, 200)
	for _, v := range got {
		assert.Equal(t, 3.0, v)
	}
}

func TestTrendOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TrendUp, TrendOf(101, 100))
	assert.Equal(t, TrendDown, TrendOf(100, 101))
	assert.Equal(t, TrendDown, TrendOf(100, 100))
}
