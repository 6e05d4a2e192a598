package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avelsher/paperbot/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// readWait is the time allowed between server messages before the
	// connection is considered dead. Bybit pushes a pong for every ping, so
	// this only trips when the link is gone.
	readWait = 60 * time.Second

	// pingPeriod is the application-level ping interval. Bybit keeps
	// connections alive via JSON {"op":"ping"} frames, not WS pings.
	pingPeriod = 20 * time.Second

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// KlineHandler is called for every streamed candle, confirmed or not.
type KlineHandler func(KlineFrame)

// WSClient is a WebSocket client for the Bybit v5 public data stream. It
// manages the connection lifecycle, kline subscriptions, and dispatches
// candles to registered handlers.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []wsCommand

	handlerMu     sync.RWMutex
	klineHandlers []KlineHandler

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a new WebSocket client for the given stream URL,
// e.g. "wss://stream.bybit.com/v5/public/linear".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("bybit/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("bybit/ws: connect: %w", err)
	}

	w.conn = conn
	w.conn.SetReadDeadline(time.Now().Add(readWait))

	go w.readLoop()
	go w.pingLoop()

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("bybit/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// SubscribeKline subscribes to the kline topic for symbol/interval.
func (w *WSClient) SubscribeKline(ctx context.Context, symbol, interval string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("bybit/ws: not connected")
	}

	cmd := wsCommand{
		Op:   "subscribe",
		Args: []string{fmt.Sprintf("kline.%s.%s", interval, symbol)},
	}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("bybit/ws: subscribe kline: %w", err)
	}

	// Track subscription for reconnection.
	w.subscriptions = append(w.subscriptions, cmd)
	return nil
}

// OnKline registers a handler invoked for every streamed candle.
func (w *WSClient) OnKline(handler KlineHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.klineHandlers = append(w.klineHandlers, handler)
}

// Close shuts down the WebSocket connection and stops the read loop.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// sendCommand sends a JSON operation frame. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads messages and dispatches kline frames. On
// disconnect it attempts to reconnect with exponential backoff.
func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		conn.SetReadDeadline(time.Now().Add(readWait))
		w.handleMessage(message)
	}
}

// pingLoop sends Bybit's JSON ping frame periodically to keep the stream
// alive.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			conn := w.conn
			if conn == nil {
				w.mu.Unlock()
				return
			}
			err := w.sendCommand(wsCommand{Op: "ping"})
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw frame and routes kline pushes to the handlers.
// Operation acks and pongs are dropped.
func (w *WSClient) handleMessage(raw []byte) {
	var msg wsKlineMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return // silently drop unparseable frames
	}
	if !strings.HasPrefix(msg.Topic, "kline.") {
		return
	}

	w.handlerMu.RLock()
	handlers := w.klineHandlers
	w.handlerMu.RUnlock()

	for _, d := range msg.Data {
		bar, err := d.toDomainBar()
		if err != nil {
			continue
		}
		frame := KlineFrame{Bar: bar, Confirm: d.Confirm}
		for _, h := range handlers {
			h(frame)
		}
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
