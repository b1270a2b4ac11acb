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

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a ListingStore backed by the given connection pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

const upsertListing = `
	INSERT INTO listings (
		id, item_name, price, starting_bid, highest_bid,
		stack_count, seller, buy_it_now, start_at, end_at,
		item_bytes, extra_value, estimated_value, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, NOW(), $14
	)
	ON CONFLICT (id) DO UPDATE SET
		price           = EXCLUDED.price,
		starting_bid    = EXCLUDED.starting_bid,
		highest_bid     = EXCLUDED.highest_bid,
		end_at          = EXCLUDED.end_at,
		extra_value     = EXCLUDED.extra_value,
		estimated_value = EXCLUDED.estimated_value,
		updated_at      = EXCLUDED.updated_at`

// UpsertBatch inserts or updates a page of listings in a single transaction:
// either every row lands or none do. Re-listing the same auction id updates
// its live fields without duplicating the row.
func (s *ListingStore) UpsertBatch(ctx context.Context, listings []domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin listing batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(upsertListing,
			l.ID, l.ItemName, l.Price, l.StartingBid, l.HighestBid,
			l.StackCount, l.Seller, l.BuyItNow, l.Start, l.End,
			l.ItemBytes, l.ExtraValue, l.EstimatedValue, l.UpdatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range listings {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres: upsert listing batch item %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close listing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit listing batch: %w", err)
	}
	return nil
}

const listingCols = `id, item_name, price, starting_bid, highest_bid,
	stack_count, seller, buy_it_now, start_at, end_at,
	item_bytes, extra_value, estimated_value, created_at, updated_at`

func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.ItemName, &l.Price, &l.StartingBid, &l.HighestBid,
		&l.StackCount, &l.Seller, &l.BuyItNow, &l.Start, &l.End,
		&l.ItemBytes, &l.ExtraValue, &l.EstimatedValue, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

// GetByID retrieves a listing by its auction id.
func (s *ListingStore) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", id, err)
	}
	return l, nil
}

// ListActive returns non-expired listings matching the filter, cheapest
// relative to estimated value first.
func (s *ListingStore) ListActive(ctx context.Context, now time.Time, f domain.ListingFilter) ([]domain.Listing, error) {
	query := `SELECT ` + listingCols + ` FROM listings WHERE end_at > $1`
	args := []any{now}
	argIdx := 2

	if f.BinOnly {
		query += " AND buy_it_now"
	}
	if f.MaxPrice > 0 {
		query += fmt.Sprintf(" AND price <= $%d", argIdx)
		args = append(args, f.MaxPrice)
		argIdx++
	}
	if f.MinProfit > 0 {
		query += fmt.Sprintf(" AND estimated_value - price >= $%d", argIdx)
		args = append(args, f.MinProfit)
		argIdx++
	}

	query += " ORDER BY estimated_value - price DESC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// ListExpired returns up to limit listings that ended at or before cutoff.
func (s *ListingStore) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Listing, error) {
	query := `SELECT ` + listingCols + ` FROM listings WHERE end_at <= $1 ORDER BY end_at`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expired listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// PruneExpired deletes listings that ended at or before cutoff and returns
// the number removed.
func (s *ListingStore) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM listings WHERE end_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune expired listings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of stored listings.
func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count listings: %w", err)
	}
	return n, nil
}

func collectListings(rows pgx.Rows) ([]domain.Listing, error) {
	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate listings: %w", err)
	}
	return out, nil
}

var _ domain.ListingStore = (*ListingStore)(nil)
