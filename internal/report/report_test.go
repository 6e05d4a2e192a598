package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsher/paperbot/internal/domain"
)

func fp(v float64) *float64 { return &v }

func barRow(outcome domain.Outcome, resolvedTs int64) domain.Resolution {
	return domain.Resolution{
		Variant:    domain.VariantBar,
		ResolvedTs: resolvedTs,
		IntentKey:  "k",
		Side:       "LONG",
		Entry:      100,
		Outcome:    outcome,
		Filled:     outcome != domain.OutcomeUnfilled,
	}
}

func binaryRow(outcome domain.Outcome, resolvedTs int64, net, fee float64) domain.Resolution {
	r := domain.Resolution{
		Variant:    domain.VariantBinary,
		ResolvedTs: resolvedTs,
		IntentKey:  "k",
		Side:       "YES",
		Entry:      0.4,
		Outcome:    outcome,
		Filled:     outcome != domain.OutcomeUnfilled,
	}
	if r.Filled {
		r.PnLNet = fp(net)
		r.Fee = fp(fee)
	}
	return r
}

func TestCompute(t *testing.T) {
	t.Parallel()

	rows := []domain.Resolution{
		barRow(domain.OutcomeWin, 100),
		barRow(domain.OutcomeLoss, 200),
		barRow(domain.OutcomeUnfilled, 300),
		binaryRow(domain.OutcomeWin, 400, 5.96, 0.04),
		binaryRow(domain.OutcomeLoss, 500, -4.04, 0.04),
		binaryRow(domain.OutcomeUnfilled, 600, 0, 0),
	}

	sum := Compute(rows)

	assert.Equal(t, 3, sum.Bar.Total)
	assert.Equal(t, 2, sum.Bar.Filled)
	assert.Equal(t, 1, sum.Bar.Wins)
	assert.Equal(t, 1, sum.Bar.Losses)
	assert.Equal(t, 1, sum.Bar.Unfilled)
	assert.Zero(t, sum.Bar.PnLNet)

	assert.Equal(t, 3, sum.Binary.Total)
	assert.Equal(t, 2, sum.Binary.Filled)
	assert.Equal(t, 1, sum.Binary.Wins)
	assert.Equal(t, 1, sum.Binary.Unfilled)
	assert.InDelta(t, 1.92, sum.Binary.PnLNet, 1e-9)
	assert.InDelta(t, 0.08, sum.Binary.Fees, 1e-9)
	assert.False(t, sum.Empty())
}

func TestComputeEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, Compute(nil).Empty())
}

func TestRenderBarSection(t *testing.T) {
	t.Parallel()

	sum := Compute([]domain.Resolution{
		barRow(domain.OutcomeWin, 100),
		barRow(domain.OutcomeLoss, 200),
		barRow(domain.OutcomeUnfilled, 300),
	})
	text := Render(sum, 24)

	assert.Contains(t, text, "BYBIT SR PAPER (last 24h)")
	assert.Contains(t, text, "Signals resolved: 3")
	assert.Contains(t, text, "Filled: 2")
	assert.Contains(t, text, "Win-rate (filled only): 50.0% (1/2)")
	assert.NotContains(t, text, "BINARY PAPER")
}

func TestRenderBinarySection(t *testing.T) {
	t.Parallel()

	sum := Compute([]domain.Resolution{
		binaryRow(domain.OutcomeWin, 100, 5.96, 0.04),
		binaryRow(domain.OutcomeLoss, 200, -4.04, 0.04),
		binaryRow(domain.OutcomeUnfilled, 300, 0, 0),
	})
	text := Render(sum, 24)

	assert.Contains(t, text, "BINARY PAPER (last 24h)")
	assert.Contains(t, text, "Trades resolved: 3")
	assert.Contains(t, text, "Win-rate: 33.3% (1/3)")
	assert.Contains(t, text, "Net PnL: $1.92")
	assert.Contains(t, text, "Fees est.: $0.08")
	assert.NotContains(t, text, "BYBIT SR PAPER")
}

func TestRenderBothSections(t *testing.T) {
	t.Parallel()

	sum := Compute([]domain.Resolution{
		barRow(domain.OutcomeWin, 100),
		binaryRow(domain.OutcomeLoss, 200, -4.04, 0.04),
	})
	text := Render(sum, 1.5)

	assert.Contains(t, text, "BYBIT SR PAPER (last 1.5h)")
	assert.Contains(t, text, "BINARY PAPER (last 1.5h)")
	assert.Contains(t, text, "\n\n", "sections separated by a blank line")
}

func TestRenderAllUnfilledAvoidsZeroDivide(t *testing.T) {
	t.Parallel()

	sum := Compute([]domain.Resolution{barRow(domain.OutcomeUnfilled, 100)})
	text := Render(sum, 24)

	assert.Contains(t, text, "Win-rate (filled only): 0.0% (0/0)")
}

func TestFmtUSD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"small", 5.96, "5.96"},
		{"negative", -4.04, "-4.04"},
		{"thousands", 1234567.891, "1,234,567.89"},
		{"negative_thousands", -1234.5, "-1,234.50"},
		{"zero", 0, "0.00"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, fmtUSD(tt.in))
		})
	}
}

func writeLedger(t *testing.T, path string, rows []domain.Resolution) {
	t.Helper()
	var b bytes.Buffer
	for _, r := range rows {
		raw, err := json.Marshal(r)
		require.NoError(t, err)
		b.Write(raw)
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
}

func TestRunnerFiltersWindow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	barPath := filepath.Join(dir, "bar.jsonl")
	binPath := filepath.Join(dir, "binary.jsonl")

	// now=10000, window 1h: rows at 9000 and 8000 count, 5000 does not.
	writeLedger(t, barPath, []domain.Resolution{
		barRow(domain.OutcomeWin, 9000),
		barRow(domain.OutcomeLoss, 5000),
	})
	writeLedger(t, binPath, []domain.Resolution{
		binaryRow(domain.OutcomeWin, 8000, 5.96, 0.04),
	})

	var out bytes.Buffer
	r := NewRunner(barPath, binPath, time.Hour, false, nil, &out, nil)
	r.now = func() time.Time { return time.Unix(10000, 0) }

	require.NoError(t, r.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Signals resolved: 1")
	assert.Contains(t, text, "Win-rate (filled only): 100.0% (1/1)")
	assert.Contains(t, text, "Trades resolved: 1")
	assert.True(t, strings.HasSuffix(text, "\n"))
}

func TestRunnerEmptyWindowWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	barPath := filepath.Join(dir, "bar.jsonl")
	writeLedger(t, barPath, []domain.Resolution{barRow(domain.OutcomeWin, 100)})

	var out bytes.Buffer
	r := NewRunner(barPath, filepath.Join(dir, "binary.jsonl"), time.Hour, false, nil, &out, nil)
	r.now = func() time.Time { return time.Unix(10000, 0) }

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestRunnerMissingLedgers(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	dir := t.TempDir()
	r := NewRunner(filepath.Join(dir, "none.jsonl"), "", time.Hour, false, nil, &out, nil)

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, out.String())
}
