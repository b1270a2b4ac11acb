package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arvida42/skyflip/internal/domain"
)

// PriceStore implements domain.PriceStore using PostgreSQL. The
// price_history table is append-only: refresh inserts, retention pruning is
// the only deleter.
type PriceStore struct {
	pool *pgxpool.Pool
}

// NewPriceStore creates a PriceStore backed by the given connection pool.
func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// AppendBatch appends sampled points. A duplicate (item, timestamp) pair is
// ignored rather than overwritten, preserving the first observation.
func (s *PriceStore) AppendBatch(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	const query = `
		INSERT INTO price_history (item_name, price, sampled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_name, sampled_at) DO NOTHING`

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(query, p.ItemName, p.Price, p.SampledAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: append price batch item %d: %w", i, err)
		}
	}
	return nil
}

// Latest returns the most recently sampled point for the item.
func (s *PriceStore) Latest(ctx context.Context, itemName string) (domain.PricePoint, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT item_name, price, sampled_at FROM price_history
		WHERE item_name = $1
		ORDER BY sampled_at DESC
		LIMIT 1`, itemName)

	var p domain.PricePoint
	if err := row.Scan(&p.ItemName, &p.Price, &p.SampledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PricePoint{}, domain.ErrNotFound
		}
		return domain.PricePoint{}, fmt.Errorf("postgres: latest price %s: %w", itemName, err)
	}
	return p, nil
}

// History returns the item's points sampled at or after since, oldest first.
func (s *PriceStore) History(ctx context.Context, itemName string, since time.Time, limit int) ([]domain.PricePoint, error) {
	query := `
		SELECT item_name, price, sampled_at FROM price_history
		WHERE item_name = $1 AND sampled_at >= $2
		ORDER BY sampled_at`
	args := []any{itemName, since}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: price history %s: %w", itemName, err)
	}
	defer rows.Close()

	return collectPoints(rows)
}

// ListBefore returns up to limit points sampled before cutoff, oldest first.
func (s *PriceStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PricePoint, error) {
	query := `
		SELECT item_name, price, sampled_at FROM price_history
		WHERE sampled_at < $1
		ORDER BY sampled_at`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list prices before cutoff: %w", err)
	}
	defer rows.Close()

	return collectPoints(rows)
}

// DeleteBefore removes points sampled before cutoff and returns the number
// removed.
func (s *PriceStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM price_history WHERE sampled_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete prices before cutoff: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectPoints(rows pgx.Rows) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.ItemName, &p.Price, &p.SampledAt); err != nil {
			return nil, fmt.Errorf("postgres: scan price point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate price points: %w", err)
	}
	return out, nil
}

var _ domain.PriceStore = (*PriceStore)(nil)
