// Package feed bridges streaming market data into the signal pipeline.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/avelsher/paperbot/internal/domain"
	"github.com/avelsher/paperbot/internal/platform/bybit"
)

// WindowHandler is called with the rolling bar window after every confirmed
// candle. The slice is reused between calls; handlers must not retain it.
type WindowHandler func(ctx context.Context, window []domain.Bar)

// KlineFeed seeds a rolling OHLC window over REST, then keeps it current from
// the public WebSocket kline stream, invoking the handler once per confirmed
// candle. Reconnection is handled by the underlying WSClient.
type KlineFeed struct {
	rest     *bybit.Client
	wsURL    string
	symbol   string
	interval string
	lookback int
	onWindow WindowHandler
	logger   *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewKlineFeed creates a feed for one symbol/interval.
func NewKlineFeed(rest *bybit.Client, wsURL, symbol, interval string, lookback int, onWindow WindowHandler, logger *slog.Logger) *KlineFeed {
	return &KlineFeed{
		rest:     rest,
		wsURL:    wsURL,
		symbol:   symbol,
		interval: interval,
		lookback: lookback,
		onWindow: onWindow,
		logger:   logger.With(slog.String("component", "kline_feed")),
		done:     make(chan struct{}),
	}
}

// Run seeds the window, subscribes to the stream, and runs until ctx is
// cancelled or Close is called.
func (f *KlineFeed) Run(ctx context.Context) error {
	window, err := f.rest.Klines(ctx, f.symbol, f.interval, f.lookback)
	if err != nil {
		return fmt.Errorf("feed: seed window: %w", err)
	}
	f.logger.InfoContext(ctx, "seeded kline window",
		slog.String("symbol", f.symbol),
		slog.String("interval", f.interval),
		slog.Int("bars", len(window)))

	bars := make(chan domain.Bar, 16)
	client := bybit.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnKline(func(frame bybit.KlineFrame) {
		if !frame.Confirm {
			return
		}
		select {
		case bars <- frame.Bar:
		case <-f.done:
		}
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.SubscribeKline(ctx, f.symbol, f.interval); err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "kline stream subscribed",
		slog.String("symbol", f.symbol), slog.String("interval", f.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case b := <-bars:
			window = appendBar(window, b, f.lookback)
			if f.onWindow != nil {
				f.onWindow(ctx, window)
			}
		}
	}
}

// Close stops the feed.
func (f *KlineFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// appendBar extends the window with b, replacing the tail bar when the venue
// re-sends a candle for the same open time, and trims to max bars.
func appendBar(window []domain.Bar, b domain.Bar, max int) []domain.Bar {
	if n := len(window); n > 0 && window[n-1].Ts == b.Ts {
		window[n-1] = b
		return window
	}
	window = append(window, b)
	if max > 0 && len(window) > max {
		window = window[len(window)-max:]
	}
	return window
}
