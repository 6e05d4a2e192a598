package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNFromFields(t *testing.T) {
	t.Parallel()

	cfg := ClientConfig{
		Host:     "db.internal",
		Port:     5433,
		Database: "paperbot",
		User:     "bot",
		Password: "pw",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://bot:pw@db.internal:5433/paperbot?sslmode=require", DSN(cfg))
}

func TestDSNDefaults(t *testing.T) {
	t.Parallel()

	cfg := ClientConfig{Host: "localhost", Database: "paperbot", User: "bot"}
	assert.Equal(t, "postgres://bot:@localhost:5432/paperbot?sslmode=disable", DSN(cfg))
}

func TestDSNExplicitWins(t *testing.T) {
	t.Parallel()

	cfg := ClientConfig{
		DSN:  "postgres://u:p@explicit:6432/other?sslmode=verify-full",
		Host: "ignored",
	}
	assert.Equal(t, "postgres://u:p@explicit:6432/other?sslmode=verify-full", DSN(cfg))

	cfg.DSN = "   "
	assert.Contains(t, DSN(cfg), "ignored", "blank DSN falls back to fields")
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "0001_resolutions.sql")
}
