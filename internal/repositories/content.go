package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"vr-theatre-marketplace/internal/models"
)

// ContentRepository is the inventory ledger: per-content prices and capacity counters
type ContentRepository struct {
	db *sql.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, seller_id, title, price_standard_cents, price_vip_cents, price_premium_cents,
	total_tickets, unlimited_tickets, available_tickets, created_at, updated_at`

func scanContent(row rowScanner) (*models.Content, error) {
	c := &models.Content{}
	err := row.Scan(
		&c.ID,
		&c.SellerID,
		&c.Title,
		&c.Prices.Standard,
		&c.Prices.VIP,
		&c.Prices.Premium,
		&c.TotalTickets,
		&c.UnlimitedTickets,
		&c.AvailableTickets,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// GetByID retrieves a content by its id
func (r *ContentRepository) GetByID(ctx context.Context, id string) (*models.Content, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM contents WHERE id = $1`, id)
	c, err := scanContent(row)
	if err != nil {
		if nf := notFound(err, models.ErrContentNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return c, nil
}

// GetAvailability returns prices and remaining capacity for one content
func (r *ContentRepository) GetAvailability(ctx context.Context, id string) (models.Availability, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return models.Availability{}, err
	}
	return c.Availability(), nil
}

// ListAvailability loads several contents in one round trip. Missing ids are
// simply absent from the result.
func (r *ContentRepository) ListAvailability(ctx context.Context, ids []string) (map[string]models.Availability, error) {
	result := make(map[string]models.Availability, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+contentColumns+` FROM contents WHERE id::text = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		result[c.ID] = c.Availability()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contents: %w", err)
	}
	return result, nil
}

// DecrementResult reports what a decrement did to a content's counter
type DecrementResult struct {
	ContentID       string
	Title           string
	Requested       int
	AvailableBefore int
	// Oversold is set when the counter could not cover the request and was clamped at zero.
	Oversold bool
}

// Decrement lowers available tickets by qty, clamping at zero. Unlimited
// content is left untouched.
func (r *ContentRepository) Decrement(ctx context.Context, id string, qty int) (DecrementResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return DecrementResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := decrementAvailability(ctx, tx, id, qty, false)
	if err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit decrement: %w", err)
	}
	return res, nil
}

// decrementAvailability is the atomic check-and-decrement used during fulfillment.
// With strict set, a counter that cannot cover qty fails with an
// InsufficientInventoryError and nothing changes. Otherwise the counter is
// clamped at zero and the result is flagged as oversold.
func decrementAvailability(ctx context.Context, tx *sql.Tx, id string, qty int, strict bool) (DecrementResult, error) {
	res := DecrementResult{ContentID: id, Requested: qty}

	var after int
	err := tx.QueryRowContext(ctx, `
		UPDATE contents
		SET available_tickets = CASE WHEN unlimited_tickets THEN available_tickets ELSE available_tickets - $2 END,
		    updated_at = NOW()
		WHERE id = $1 AND (unlimited_tickets OR available_tickets >= $2)
		RETURNING available_tickets`, id, qty).Scan(&after)
	if err == nil {
		res.AvailableBefore = after + qty
		return res, nil
	}
	if isInvalidID(err) {
		return res, models.ErrContentNotFound
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return res, fmt.Errorf("failed to decrement availability: %w", err)
	}

	// Either the content is gone or the counter is short.
	err = tx.QueryRowContext(ctx, `
		SELECT title, available_tickets FROM contents WHERE id = $1 FOR UPDATE`, id).
		Scan(&res.Title, &res.AvailableBefore)
	if err != nil {
		if nf := notFound(err, models.ErrContentNotFound); nf != nil {
			return res, nf
		}
		return res, fmt.Errorf("failed to read availability: %w", err)
	}

	if strict {
		return res, &models.InsufficientInventoryError{
			ContentID: id,
			Title:     res.Title,
			Requested: qty,
			Available: res.AvailableBefore,
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE contents
		SET available_tickets = GREATEST(available_tickets - $2, 0), updated_at = NOW()
		WHERE id = $1`, id, qty); err != nil {
		return res, fmt.Errorf("failed to clamp availability: %w", err)
	}
	res.Oversold = true
	return res, nil
}
