package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsher/paperbot/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "bar.json")

	s := Load(path, nil)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("k1"))

	s.Record("k1", domain.ResolutionSummary{Outcome: domain.OutcomeWin, ResolvedTs: 1700000000})
	s.Record("k2", domain.ResolutionSummary{Outcome: domain.OutcomeUnfilled, ResolvedTs: 1700000100})
	require.NoError(t, s.Save())

	re := Load(path, nil)
	assert.Equal(t, 2, re.Len())
	assert.True(t, re.Contains("k1"))
	assert.True(t, re.Contains("k2"))
	assert.False(t, re.Contains("k3"))
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	s := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.Equal(t, 0, s.Len())
}

func TestStoreCorruptFileFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bar.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := Load(path, nil)
	assert.Equal(t, 0, s.Len())

	// A save afterwards replaces the corrupt document with a valid one.
	s.Record("k1", domain.ResolutionSummary{Outcome: domain.OutcomeLoss, ResolvedTs: 1})
	require.NoError(t, s.Save())
	assert.True(t, Load(path, nil).Contains("k1"))
}

func TestStoreSaveIsAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bar.json")
	s := Load(path, nil)
	s.Record("k1", domain.ResolutionSummary{Outcome: domain.OutcomeWin, ResolvedTs: 1})
	require.NoError(t, s.Save())

	// No temp file left behind and the document on disk is valid JSON.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "resolved")
}
