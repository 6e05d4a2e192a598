package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsher/paperbot/internal/domain"
)

type fakeBarSource struct {
	bars  map[string][]domain.Bar
	err   error
	calls int
}

func (f *fakeBarSource) Klines(_ context.Context, symbol, interval string, _ int) ([]domain.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[symbol+":"+interval], nil
}

type fakeBarIntents struct {
	intents []domain.BarIntent
	err     error
}

func (f fakeBarIntents) BarIntents(int) ([]domain.BarIntent, error) {
	return f.intents, f.err
}

type memStore struct {
	keys  map[string]domain.ResolutionSummary
	saves int
}

func newMemStore() *memStore {
	return &memStore{keys: make(map[string]domain.ResolutionSummary)}
}

func (s *memStore) Contains(key string) bool { _, ok := s.keys[key]; return ok }

func (s *memStore) Record(key string, sum domain.ResolutionSummary) { s.keys[key] = sum }

func (s *memStore) Save() error { s.saves++; return nil }

type sinkRecorder struct {
	rows []domain.Resolution
	err  error
}

func (s *sinkRecorder) Write(res domain.Resolution) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, res)
	return nil
}

type mirrorRecorder struct {
	batches [][]domain.Resolution
	err     error
}

func (m *mirrorRecorder) InsertBatch(_ context.Context, res []domain.Resolution) error {
	m.batches = append(m.batches, res)
	return m.err
}

func barCfg() BarConfig {
	return BarConfig{Symbol: "BTCUSDT", Interval: "5", Lookahead: 24, Lookback: 300, MaxIntents: 50}
}

func longIntent(ts int64) domain.BarIntent {
	return domain.BarIntent{
		Ts:         ts,
		Side:       domain.SideLong,
		Entry:      100,
		Stop:       95,
		Target:     110,
		RiskReward: 2,
		Size:       0.01,
		RiskUSD:    5,
	}
}

func TestBarResolverWin(t *testing.T) {
	t.Parallel()

	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 940, Low: 99, High: 101}, // before the intent, must be ignored
		{Ts: 1000, Low: 102, High: 104},
		{Ts: 1060, Low: 99, High: 103},  // fill
		{Ts: 1120, Low: 103, High: 111}, // target
	}}
	sink := &sinkRecorder{}
	store := newMemStore()
	r := NewBarResolver(barCfg(), &fakeBarSource{bars: bars}, fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}, store, sink, nil, nil)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Intents)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 1, stats.Wins)
	require.Len(t, sink.rows, 1)

	res := sink.rows[0]
	assert.Equal(t, domain.VariantBar, res.Variant)
	assert.Equal(t, domain.OutcomeWin, res.Outcome)
	assert.Equal(t, 1, res.Win)
	assert.True(t, res.Filled)
	require.NotNil(t, res.FillTs)
	assert.Equal(t, int64(1060), *res.FillTs)
	assert.Equal(t, "BTCUSDT", res.Symbol)
	assert.Equal(t, "5", res.Interval)
	require.NotNil(t, res.Stop)
	assert.Equal(t, 95.0, *res.Stop)
	require.NotNil(t, res.Target)
	assert.Equal(t, 110.0, *res.Target)

	assert.True(t, store.Contains(res.IntentKey))
	assert.Equal(t, 1, store.saves)
}

func TestBarResolverSpanningBarIsLoss(t *testing.T) {
	t.Parallel()

	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 1000, Low: 90, High: 115}, // fills and spans both levels
	}}
	sink := &sinkRecorder{}
	r := NewBarResolver(barCfg(), &fakeBarSource{bars: bars}, fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}, newMemStore(), sink, nil, nil)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Losses)
	require.Len(t, sink.rows, 1)
	assert.Equal(t, domain.OutcomeLoss, sink.rows[0].Outcome)
	assert.Equal(t, 0, sink.rows[0].Win)
}

func TestBarResolverUnfilled(t *testing.T) {
	t.Parallel()

	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 1000, Low: 104, High: 108},
		{Ts: 1060, Low: 105, High: 109},
	}}
	sink := &sinkRecorder{}
	r := NewBarResolver(barCfg(), &fakeBarSource{bars: bars}, fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}, newMemStore(), sink, nil, nil)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Unfilled)
	require.Len(t, sink.rows, 1)

	res := sink.rows[0]
	assert.Equal(t, domain.OutcomeUnfilled, res.Outcome)
	assert.False(t, res.Filled)
	assert.Nil(t, res.FillTs)
}

func TestBarResolverFillBeyondLookaheadIsUnfilled(t *testing.T) {
	t.Parallel()

	cfg := barCfg()
	cfg.Lookahead = 2
	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 1000, Low: 104, High: 108},
		{Ts: 1060, Low: 105, High: 109},
		{Ts: 1120, Low: 99, High: 103}, // touches entry, but outside the window
	}}
	sink := &sinkRecorder{}
	r := NewBarResolver(cfg, &fakeBarSource{bars: bars}, fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}, newMemStore(), sink, nil, nil)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.rows, 1)
	assert.Equal(t, domain.OutcomeUnfilled, sink.rows[0].Outcome)
}

func TestBarResolverOpenPositionNotPersisted(t *testing.T) {
	t.Parallel()

	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 1000, Low: 99, High: 103}, // fill
		{Ts: 1060, Low: 97, High: 105}, // neither level struck
	}}
	sink := &sinkRecorder{}
	store := newMemStore()
	r := NewBarResolver(barCfg(), &fakeBarSource{bars: bars}, fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}, store, sink, nil, nil)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.Written)
	assert.Empty(t, sink.rows)
	assert.Empty(t, store.keys)
}

func TestBarResolverSecondRunWritesNothing(t *testing.T) {
	t.Parallel()

	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 1000, Low: 99, High: 103},
		{Ts: 1060, Low: 103, High: 111},
	}}
	intents := fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}
	sink := &sinkRecorder{}
	store := newMemStore()

	first := NewBarResolver(barCfg(), &fakeBarSource{bars: bars}, intents, store, sink, nil, nil)
	stats, err := first.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)

	second := NewBarResolver(barCfg(), &fakeBarSource{bars: bars}, intents, store, sink, nil, nil)
	stats, err = second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Written)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Len(t, sink.rows, 1)
}

func TestBarResolverFetchFailureLeavesIntentsForNextRun(t *testing.T) {
	t.Parallel()

	sink := &sinkRecorder{}
	store := newMemStore()
	src := &fakeBarSource{err: errors.New("bybit: 502")}
	r := NewBarResolver(barCfg(), src, fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}, store, sink, nil, nil)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Written)
	assert.Empty(t, sink.rows)
	assert.Empty(t, store.keys)
}

func TestBarResolverFetchesOncePerGroup(t *testing.T) {
	t.Parallel()

	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 1000, Low: 99, High: 111},
	}}
	src := &fakeBarSource{bars: bars}
	a := longIntent(1000)
	b := longIntent(1003)
	r := NewBarResolver(barCfg(), src, fakeBarIntents{intents: []domain.BarIntent{a, b}}, newMemStore(), &sinkRecorder{}, nil, nil)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestBarResolverMirrorReceivesBatch(t *testing.T) {
	t.Parallel()

	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 1000, Low: 99, High: 111},
	}}
	mirror := &mirrorRecorder{}
	r := NewBarResolver(barCfg(), &fakeBarSource{bars: bars}, fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}, newMemStore(), &sinkRecorder{}, mirror, nil)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, mirror.batches, 1)
	assert.Len(t, mirror.batches[0], 1)
}

func TestBarResolverMirrorFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	bars := map[string][]domain.Bar{"BTCUSDT:5": {
		{Ts: 1000, Low: 99, High: 111},
	}}
	mirror := &mirrorRecorder{err: errors.New("pg down")}
	store := newMemStore()
	r := NewBarResolver(barCfg(), &fakeBarSource{bars: bars}, fakeBarIntents{intents: []domain.BarIntent{longIntent(1000)}}, store, &sinkRecorder{}, mirror, nil)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 1, store.saves)
}
