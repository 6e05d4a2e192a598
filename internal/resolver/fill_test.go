package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avelsher/paperbot/internal/domain"
)

func TestDetectFill(t *testing.T) {
	t.Parallel()

	window := []domain.Bar{
		{Ts: 100, Low: 104, High: 108},
		{Ts: 160, Low: 101, High: 106},
		{Ts: 220, Low: 99, High: 103},
	}

	tests := []struct {
		name    string
		entry   float64
		wantIdx int
		wantOK  bool
	}{
		{name: "first_touching_bar_wins", entry: 102, wantIdx: 1, wantOK: true},
		{name: "touch_at_low_counts", entry: 101, wantIdx: 1, wantOK: true},
		{name: "touch_at_high_counts", entry: 108, wantIdx: 0, wantOK: true},
		{name: "never_touched", entry: 98, wantOK: false},
		{name: "above_all_bars", entry: 120, wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			idx, ok := DetectFill(tt.entry, window)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantIdx, idx)
			}
		})
	}
}

func TestDetectFillEmptyWindow(t *testing.T) {
	t.Parallel()

	_, ok := DetectFill(100, nil)
	assert.False(t, ok)
}
