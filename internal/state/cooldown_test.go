package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownActive(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700003600, 0)
	window := time.Hour

	c := LoadCooldown(filepath.Join(t.TempDir(), "cooldown.json"), nil)
	assert.False(t, c.Active(now, window), "fresh state has no previous signal")

	c.Mark(now.Add(-30 * time.Minute))
	assert.True(t, c.Active(now, window))

	c.Mark(now.Add(-2 * time.Hour))
	assert.False(t, c.Active(now, window))

	c.Mark(now.Add(-30 * time.Minute))
	assert.False(t, c.Active(now, 0), "zero window disables the cooldown")
}

func TestCooldownRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "cooldown.json")
	now := time.Unix(1700000000, 0)

	c := LoadCooldown(path, nil)
	c.Mark(now)
	require.NoError(t, c.Save())

	re := LoadCooldown(path, nil)
	assert.True(t, re.Active(now.Add(10*time.Minute), time.Hour))
	assert.False(t, re.Active(now.Add(2*time.Hour), time.Hour))
}

func TestCooldownCorruptFileIgnored(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cooldown.json")
	require.NoError(t, os.WriteFile(path, []byte("]["), 0o644))

	c := LoadCooldown(path, nil)
	assert.False(t, c.Active(time.Now(), time.Hour))
}
