// Package journal reads and appends the append-only JSONL intent journal.
// The journal is shared ground truth between the signal generator (producer)
// and the resolvers (consumers): producers only append, consumers only read.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/avelsher/paperbot/internal/domain"
)

// Record kinds accepted by the resolvers. Everything else in the journal
// (analysis, skip, error rows) is context for humans and is ignored here.
const (
	KindSignal = "signal"

	ActionPaperIntent = "PAPER_INTENT"
	ActionTradeIntent = "TRADE_INTENT"
)

// Record is one journal line. A single schema covers every row kind the
// pipeline writes; unused fields stay empty and are omitted on encode.
type Record struct {
	Type   string `json:"type,omitempty"`
	Action string `json:"action,omitempty"`
	Ts     int64  `json:"ts,omitempty"`
	ISO    string `json:"iso,omitempty"`

	// Bar-intent fields (type = "signal").
	Symbol   string  `json:"symbol,omitempty"`
	Interval string  `json:"interval,omitempty"`
	Side     string  `json:"side,omitempty"`
	Entry    float64 `json:"entry,omitempty"`
	Stop     float64 `json:"sl,omitempty"`
	Target   float64 `json:"tp,omitempty"`
	RR       float64 `json:"rr,omitempty"`
	Size     float64 `json:"size_btc,omitempty"`
	RiskUSD  float64 `json:"risk_usd,omitempty"`
	Reason   string  `json:"reason,omitempty"`

	// Skip-row detail: the risk cap that rejected the setup.
	MaxRiskUSD float64 `json:"max_risk_usd,omitempty"`

	// Analysis fields.
	Price      float64 `json:"price,omitempty"`
	EMAFast    float64 `json:"ema50,omitempty"`
	EMASlow    float64 `json:"ema200,omitempty"`
	Trend      string  `json:"trend,omitempty"`
	Support    float64 `json:"support,omitempty"`
	Resistance float64 `json:"resistance,omitempty"`

	// Binary-intent fields (action = PAPER_INTENT / TRADE_INTENT).
	MarketID string  `json:"market_id,omitempty"`
	Question string  `json:"question,omitempty"`
	Shares   float64 `json:"shares,omitempty"`
	Edge     float64 `json:"edge,omitempty"`
	Conf     float64 `json:"conf,omitempty"`

	Err string `json:"error,omitempty"`
}

// Reader streams intents out of one journal file. Each call rescans the file
// front-to-back, so a Reader can be reused across runs as the journal grows.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader returns a Reader over the journal at path. The file does not have
// to exist yet; a missing journal reads as empty.
func NewReader(path string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{path: path, logger: logger.With(slog.String("component", "journal"))}
}

// each invokes fn for every well-formed journal record, front-to-back.
// Malformed lines are counted and skipped, never fatal.
func (r *Reader) each(fn func(Record)) error {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("journal: open %s: %w", r.path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var malformed int
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			malformed++
			continue
		}
		fn(rec)
	}
	if malformed > 0 {
		r.logger.Debug("skipped malformed journal lines",
			slog.String("path", r.path), slog.Int("count", malformed))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("journal: scan %s: %w", r.path, err)
	}
	return nil
}

// BarIntents returns the journaled bar intents (rows with type "signal"),
// oldest first. When max > 0 only the most recent max intents are returned.
// Rows missing a timestamp, side, or any of the three prices are dropped.
func (r *Reader) BarIntents(max int) ([]domain.BarIntent, error) {
	var out []domain.BarIntent
	var dropped int
	err := r.each(func(rec Record) {
		if rec.Type != KindSignal {
			return
		}
		side, serr := domain.ParseSide(rec.Side)
		if serr != nil || rec.Ts == 0 || rec.Entry == 0 || rec.Stop == 0 || rec.Target == 0 {
			dropped++
			return
		}
		out = append(out, domain.BarIntent{
			Ts:         rec.Ts,
			Symbol:     rec.Symbol,
			Interval:   rec.Interval,
			Side:       side,
			Entry:      rec.Entry,
			Stop:       rec.Stop,
			Target:     rec.Target,
			RiskReward: rec.RR,
			Size:       rec.Size,
			RiskUSD:    rec.RiskUSD,
		})
	})
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		r.logger.Debug("dropped unusable signal rows", slog.Int("count", dropped))
	}
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out, nil
}

// BinaryIntents returns the journaled binary intents (rows whose action is
// PAPER_INTENT or TRADE_INTENT), oldest first.
func (r *Reader) BinaryIntents() ([]domain.BinaryIntent, error) {
	var out []domain.BinaryIntent
	var dropped int
	err := r.each(func(rec Record) {
		if rec.Action != ActionPaperIntent && rec.Action != ActionTradeIntent {
			return
		}
		side, serr := domain.ParseBinarySide(rec.Side)
		if serr != nil || rec.MarketID == "" || rec.Ts == 0 {
			dropped++
			return
		}
		out = append(out, domain.BinaryIntent{
			Ts:         rec.Ts,
			MarketID:   rec.MarketID,
			Question:   rec.Question,
			Side:       side,
			Price:      rec.Price,
			Shares:     rec.Shares,
			Edge:       rec.Edge,
			Confidence: rec.Conf,
		})
	})
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		r.logger.Debug("dropped unusable intent rows", slog.Int("count", dropped))
	}
	return out, nil
}

// Writer appends journal rows as JSON lines.
type Writer struct {
	rec *jsonlFile
}

// NewWriter creates/opens the journal at path for appending.
func NewWriter(path string) (*Writer, error) {
	f, err := openJSONL(path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &Writer{rec: f}, nil
}

// Append stamps the record with the current time when unset and writes it as
// one JSON line.
func (w *Writer) Append(rec Record) error {
	if rec.Ts == 0 {
		now := time.Now().UTC()
		rec.Ts = now.Unix()
		rec.ISO = now.Format(time.RFC3339)
	}
	return w.rec.encode(rec)
}

// Close releases the underlying file handle.
func (w *Writer) Close() error { return w.rec.close() }
