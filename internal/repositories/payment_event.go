package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// PaymentEventRepository keeps a durable log of processed gateway events
type PaymentEventRepository struct {
	db *sql.DB
}

// NewPaymentEventRepository creates a new payment event repository
func NewPaymentEventRepository(db *sql.DB) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

// Record stores a gateway event id. It returns false when the event was
// already recorded.
func (r *PaymentEventRepository) Record(ctx context.Context, eventID, eventType, sessionID string) (bool, error) {
	var session sql.NullString
	if sessionID != "" {
		session = sql.NullString{String: sessionID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_events (event_id, event_type, session_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`, eventID, eventType, session)
	if err != nil {
		return false, fmt.Errorf("failed to record payment event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// Seen reports whether a gateway event id was recorded
func (r *PaymentEventRepository) Seen(ctx context.Context, eventID string) (bool, error) {
	var seen bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_events WHERE event_id = $1)`, eventID).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("failed to look up payment event: %w", err)
	}
	return seen, nil
}
