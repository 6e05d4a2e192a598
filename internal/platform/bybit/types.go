package bybit

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/avelsher/paperbot/internal/domain"
)

// klineResponse is the envelope for /v5/market/kline. Each row in List is
// [startMs, open, high, low, close, volume, turnover] as strings.
type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string     `json:"category"`
		Symbol   string     `json:"symbol"`
		List     [][]string `json:"list"`
	} `json:"result"`
}

// parse decodes the envelope and rejects venue-level errors (retCode != 0).
func (r *klineResponse) parse(body []byte) error {
	if err := json.Unmarshal(body, r); err != nil {
		return err
	}
	if r.RetCode != 0 {
		return fmt.Errorf("retCode %d: %s", r.RetCode, r.RetMsg)
	}
	return nil
}

// parseKlineRow converts one string row into a Bar. Timestamps arrive in
// milliseconds and are stored as unix seconds to match journal timestamps.
func parseKlineRow(row []string) (domain.Bar, error) {
	if len(row) < 5 {
		return domain.Bar{}, fmt.Errorf("kline row has %d fields, want >= 5", len(row))
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("kline ts: %w", err)
	}
	var vals [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return domain.Bar{
		Ts:    ms / 1000,
		Open:  vals[0],
		High:  vals[1],
		Low:   vals[2],
		Close: vals[3],
	}, nil
}

// wsKlineMessage is one kline push frame from the public WebSocket.
type wsKlineMessage struct {
	Topic string        `json:"topic"`
	Type  string        `json:"type"`
	Data  []wsKlineData `json:"data"`
}

// wsKlineData is a single candle inside a push frame. Confirm is true once
// the candle has closed.
type wsKlineData struct {
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Interval string `json:"interval"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Confirm  bool   `json:"confirm"`
}

// toDomainBar converts a push candle to a Bar.
func (d wsKlineData) toDomainBar() (domain.Bar, error) {
	o, err := strconv.ParseFloat(d.Open, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("ws kline open: %w", err)
	}
	h, err := strconv.ParseFloat(d.High, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("ws kline high: %w", err)
	}
	l, err := strconv.ParseFloat(d.Low, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("ws kline low: %w", err)
	}
	c, err := strconv.ParseFloat(d.Close, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("ws kline close: %w", err)
	}
	return domain.Bar{Ts: d.Start / 1000, Open: o, High: h, Low: l, Close: c}, nil
}

// wsCommand is a client-to-server operation frame.
type wsCommand struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

// KlineFrame is one streamed candle plus its confirmation flag.
type KlineFrame struct {
	Bar     domain.Bar
	Confirm bool
}
