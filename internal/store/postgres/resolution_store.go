package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelsher/paperbot/internal/domain"
)

// ResolutionStore mirrors resolution records into the resolutions table. The
// typed columns carry what queries filter and aggregate on; the full record
// rides along as JSONB.
type ResolutionStore struct {
	pool *pgxpool.Pool
}

// NewResolutionStore creates a ResolutionStore backed by the given pool.
func NewResolutionStore(pool *pgxpool.Pool) *ResolutionStore {
	return &ResolutionStore{pool: pool}
}

// InsertBatch inserts resolutions using a pgx batch. Rows whose intent key is
// already present are silently skipped, so replaying a ledger is harmless.
func (s *ResolutionStore) InsertBatch(ctx context.Context, res []domain.Resolution) error {
	if len(res) == 0 {
		return nil
	}

	const query = `
		INSERT INTO resolutions (
			intent_key, variant, intent_ts, resolved_ts,
			outcome, win, pnl_net, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (intent_key) DO NOTHING`

	batch := &pgx.Batch{}
	for i, r := range res {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("postgres: marshal resolution %d: %w", i, err)
		}
		batch.Queue(query,
			r.IntentKey, string(r.Variant), r.IntentTs, r.ResolvedTs,
			string(r.Outcome), r.Win, r.PnLNet, payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range res {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert resolution batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListSince returns resolutions resolved at or after since, newest first,
// optionally capped by limit.
func (s *ResolutionStore) ListSince(ctx context.Context, since int64, limit int) ([]domain.Resolution, error) {
	query := `SELECT payload FROM resolutions WHERE resolved_ts >= $1 ORDER BY resolved_ts DESC`
	args := []any{since}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolutions since: %w", err)
	}
	defer rows.Close()

	var out []domain.Resolution
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan resolution payload: %w", err)
		}
		var r domain.Resolution
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("postgres: decode resolution payload: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate resolutions: %w", err)
	}
	return out, nil
}

// CountByOutcome tallies mirrored resolutions per outcome, resolved at or
// after since.
func (s *ResolutionStore) CountByOutcome(ctx context.Context, since int64) (map[domain.Outcome]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT outcome, COUNT(*) FROM resolutions WHERE resolved_ts >= $1 GROUP BY outcome`,
		since)
	if err != nil {
		return nil, fmt.Errorf("postgres: count resolutions: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Outcome]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan resolution count: %w", err)
		}
		counts[domain.Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate resolution counts: %w", err)
	}
	return counts, nil
}
