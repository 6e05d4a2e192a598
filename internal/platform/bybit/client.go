// Package bybit is the client for Bybit v5 public market data: kline history
// over REST and confirmed-kline streaming over WebSocket. Only public
// endpoints are used; the package holds no credentials.
package bybit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avelsher/paperbot/internal/domain"
)

// Client is the REST client for the Bybit v5 market endpoints.
type Client struct {
	baseURL    string
	category   string
	httpClient *http.Client
}

// NewClient creates a new market-data client.
//
// baseURL is the API root, e.g. "https://api.bybit.com"; category selects the
// product line ("linear" for USDT perpetuals).
func NewClient(baseURL, category string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		category: category,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Klines returns up to limit of the most recent bars for symbol/interval.
// Bybit delivers rows newest-first; the result is always sorted ascending by
// open time, with duplicate timestamps collapsed.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	return c.fetchKlines(ctx, params)
}

// KlinesBetween returns bars bounded to [start, end]. A zero start or end
// leaves that bound open.
func (c *Client) KlinesBetween(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if !start.IsZero() {
		params.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if !end.IsZero() {
		params.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	}

	return c.fetchKlines(ctx, params)
}

func (c *Client) fetchKlines(ctx context.Context, params url.Values) ([]domain.Bar, error) {
	body, err := c.doGet(ctx, "/v5/market/kline?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("bybit: get klines: %w", err)
	}

	var resp klineResponse
	if err := resp.parse(body); err != nil {
		return nil, fmt.Errorf("bybit: decode klines: %w", err)
	}

	bars := make([]domain.Bar, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		b, err := parseKlineRow(row)
		if err != nil {
			// A single bad row should not poison the whole fetch.
			continue
		}
		bars = append(bars, b)
	}

	return domain.SortBars(bars), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the market API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
