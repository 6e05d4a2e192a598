package results

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsher/paperbot/internal/domain"
)

func TestReadSince(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bar.jsonl")
	lines := []string{
		`{"variant":"bar","resolved_ts":1000,"intent_key":"a","outcome":"win","win":1}`,
		`{"variant":"bar","resolved_ts":2000,"intent_key":"b","outcome":"loss","win":0}`,
		`garbage line`,
		`{"variant":"bar","resolved_ts":3000,"intent_key":"c","outcome":"unfilled","win":0}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	all, err := ReadSince(path, 0, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)

	recent, err := ReadSince(path, 2000, nil)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].IntentKey)
	assert.Equal(t, "c", recent[1].IntentKey)
	assert.Equal(t, domain.OutcomeLoss, recent[0].Outcome)

	none, err := ReadSince(path, 9000, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReadSinceMissingFile(t *testing.T) {
	t.Parallel()

	got, err := ReadSince(filepath.Join(t.TempDir(), "absent.jsonl"), 0, nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
