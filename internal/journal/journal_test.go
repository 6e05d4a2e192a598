package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsher/paperbot/internal/domain"
)

func writeJournal(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestReaderBarIntents(t *testing.T) {
	t.Parallel()

	path := writeJournal(t,
		`{"type":"analysis","ts":1700000000,"price":65000,"trend":"UP"}`,
		`{"type":"signal","ts":1700000060,"symbol":"BTCUSDT","interval":"5","side":"LONG","entry":65010.5,"sl":64900,"tp":65231.5,"rr":2,"size_btc":0.01,"risk_usd":1.1}`,
		`{"type":"skip","ts":1700000120,"reason":"signal_cooldown"}`,
		`{"type":"signal","ts":1700000180,"side":"SHORT","entry":64800,"sl":64950,"tp":64500}`,
		`not json at all`,
		`{"type":"signal","ts":1700000240,"side":"LONG","entry":0,"sl":64900,"tp":65200}`,
		`{"type":"signal","side":"LONG","entry":65000,"sl":64900,"tp":65200}`,
	)

	r := NewReader(path, nil)
	intents, err := r.BarIntents(0)
	require.NoError(t, err)

	// Analysis/skip rows, the malformed line, the zero-entry row, and the
	// missing-ts row are all dropped.
	require.Len(t, intents, 2)

	assert.Equal(t, domain.SideLong, intents[0].Side)
	assert.Equal(t, int64(1700000060), intents[0].Ts)
	assert.Equal(t, "BTCUSDT", intents[0].Symbol)
	assert.Equal(t, 65010.5, intents[0].Entry)
	assert.Equal(t, 64900.0, intents[0].Stop)
	assert.Equal(t, 65231.5, intents[0].Target)
	assert.Equal(t, 0.01, intents[0].Size)

	assert.Equal(t, domain.SideShort, intents[1].Side)
	assert.Empty(t, intents[1].Symbol)
}

func TestReaderBarIntentsMaxKeepsNewest(t *testing.T) {
	t.Parallel()

	path := writeJournal(t,
		`{"type":"signal","ts":100,"side":"LONG","entry":1,"sl":0.9,"tp":1.2}`,
		`{"type":"signal","ts":200,"side":"LONG","entry":1,"sl":0.9,"tp":1.2}`,
		`{"type":"signal","ts":300,"side":"LONG","entry":1,"sl":0.9,"tp":1.2}`,
	)

	intents, err := NewReader(path, nil).BarIntents(2)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, int64(200), intents[0].Ts)
	assert.Equal(t, int64(300), intents[1].Ts)
}

func TestReaderBinaryIntents(t *testing.T) {
	t.Parallel()

	path := writeJournal(t,
		`{"action":"PAPER_INTENT","ts":1700000000,"market_id":"mkt-1","question":"Up by Friday?","side":"YES","price":0.42,"shares":25,"edge":0.06,"conf":0.75}`,
		`{"action":"TRADE_INTENT","ts":1700000300,"market_id":"mkt-2","side":"NO","price":0.55,"shares":10}`,
		`{"action":"ANALYSIS","ts":1700000400,"market_id":"mkt-3"}`,
		`{"action":"PAPER_INTENT","ts":1700000500,"side":"YES","price":0.5,"shares":5}`,
		`{"action":"PAPER_INTENT","market_id":"mkt-4","side":"YES","price":0.5,"shares":5}`,
	)

	intents, err := NewReader(path, nil).BinaryIntents()
	require.NoError(t, err)

	// Only the two intent actions with market and timestamp survive.
	require.Len(t, intents, 2)

	assert.Equal(t, "mkt-1", intents[0].MarketID)
	assert.Equal(t, domain.SideYes, intents[0].Side)
	assert.Equal(t, 0.42, intents[0].Price)
	assert.Equal(t, 25.0, intents[0].Shares)
	assert.Equal(t, 0.06, intents[0].Edge)
	assert.Equal(t, 0.75, intents[0].Confidence)
	assert.Equal(t, "Up by Friday?", intents[0].Question)

	assert.Equal(t, "mkt-2", intents[1].MarketID)
	assert.Equal(t, domain.SideNo, intents[1].Side)
}

func TestReaderMissingFileReadsEmpty(t *testing.T) {
	t.Parallel()

	r := NewReader(filepath.Join(t.TempDir(), "absent.jsonl"), nil)

	bar, err := r.BarIntents(0)
	assert.NoError(t, err)
	assert.Empty(t, bar)

	bin, err := r.BinaryIntents()
	assert.NoError(t, err)
	assert.Empty(t, bin)
}

func TestWriterAppendStampsTime(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Append(Record{Type: "skip", Reason: "no_klines"}))
	require.NoError(t, w.Append(Record{Type: "signal", Ts: 1700000000, ISO: "2023-11-14T22:13:20Z", Side: "LONG", Entry: 1, Stop: 0.9, Target: 1.2}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], `"ts":`)
	assert.Contains(t, lines[0], `"iso":`)
	assert.Contains(t, lines[1], `"ts":1700000000`)

	// The writer's own output reads back through the Reader.
	intents, err := NewReader(path, nil).BarIntents(0)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, int64(1700000000), intents[0].Ts)
}

func TestWriterAppendsAcrossReopens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.jsonl")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Type: "signal", Ts: 1, Side: "LONG", Entry: 1, Stop: 0.9, Target: 1.2}))
	require.NoError(t, w.Close())

	w, err = NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Type: "signal", Ts: 2, Side: "LONG", Entry: 1, Stop: 0.9, Target: 1.2}))
	require.NoError(t, w.Close())

	intents, err := NewReader(path, nil).BarIntents(0)
	require.NoError(t, err)
	assert.Len(t, intents, 2)
}
