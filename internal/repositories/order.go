package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vr-theatre-marketplace/internal/models"
)

// OrderRepository handles order and order group data operations
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, content_id, buyer_id, buyer_email, ticket_type, quantity, total_amount_cents,
	currency, status, payment_session_id, order_group_id, paid_at, created_at, updated_at`

const groupColumns = `id, buyer_id, buyer_email, subtotal_cents, service_fee_cents, payment_fee_cents,
	tax_cents, total_cents, currency, status, payment_session_id, paid_at, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(
		&o.ID,
		&o.ContentID,
		&o.BuyerID,
		&o.BuyerEmail,
		&o.TicketType,
		&o.Quantity,
		&o.TotalAmount,
		&o.Currency,
		&o.Status,
		&o.PaymentSessionID,
		&o.OrderGroupID,
		&o.PaidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func scanGroup(row rowScanner) (*models.OrderGroup, error) {
	g := &models.OrderGroup{}
	err := row.Scan(
		&g.ID,
		&g.BuyerID,
		&g.BuyerEmail,
		&g.SubtotalAmount,
		&g.ServiceFeeAmount,
		&g.PaymentFeeAmount,
		&g.TaxAmount,
		&g.TotalAmount,
		&g.Currency,
		&g.Status,
		&g.PaymentSessionID,
		&g.PaidAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	defer rows.Close()
	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

func insertOrder(ctx context.Context, q querier, o *models.Order) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO orders (id, content_id, buyer_id, buyer_email, ticket_type, quantity,
			total_amount_cents, currency, status, order_group_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		o.ID, o.ContentID, o.BuyerID, o.BuyerEmail, o.TicketType, o.Quantity,
		o.TotalAmount, o.Currency, o.Status, o.OrderGroupID, o.CreatedAt)
	return err
}

// CreateGroup persists a group together with every child order in one
// transaction. Either all rows exist afterwards or none do.
func (r *OrderRepository) CreateGroup(ctx context.Context, group *models.OrderGroup, orders []*models.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_groups (id, buyer_id, buyer_email, subtotal_cents, service_fee_cents,
			payment_fee_cents, tax_cents, total_cents, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		group.ID, group.BuyerID, group.BuyerEmail, group.SubtotalAmount, group.ServiceFeeAmount,
		group.PaymentFeeAmount, group.TaxAmount, group.TotalAmount, group.Currency, group.Status, group.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order group: %w", err)
	}

	for _, o := range orders {
		if err := insertOrder(ctx, tx, o); err != nil {
			return fmt.Errorf("failed to create order for content %s: %w", o.ContentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order group: %w", err)
	}
	return nil
}

// CreateOrder persists a standalone order
func (r *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := insertOrder(ctx, r.db, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetGroup retrieves a group with its child orders
func (r *OrderRepository) GetGroup(ctx context.Context, id string) (*models.OrderGroup, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM order_groups WHERE id = $1`, id))
	if err != nil {
		if nf := notFound(err, models.ErrOrderGroupNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("failed to get order group: %w", err)
	}

	if g.Orders, err = r.ListByGroup(ctx, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}

// ListByGroup returns the child orders of a group in creation order
func (r *OrderRepository) ListByGroup(ctx context.Context, groupID string) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_group_id = $1 ORDER BY created_at, id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group orders: %w", err)
	}
	return scanOrders(rows)
}

// GetOrder retrieves an order by id
func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if nf := notFound(err, models.ErrOrderNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// GetGroupBySession finds the group a payment session was opened for
func (r *OrderRepository) GetGroupBySession(ctx context.Context, sessionID string) (*models.OrderGroup, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM order_groups WHERE payment_session_id = $1`, sessionID))
	if err != nil {
		if nf := notFound(err, models.ErrOrderGroupNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("failed to get order group by session: %w", err)
	}
	return g, nil
}

// GetOrderBySession finds the standalone order a payment session was opened for
func (r *OrderRepository) GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_session_id = $1`, sessionID))
	if err != nil {
		if nf := notFound(err, models.ErrOrderNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("failed to get order by session: %w", err)
	}
	return o, nil
}

// AttachGroupSession records the payment session opened for a pending group
func (r *OrderRepository) AttachGroupSession(ctx context.Context, groupID, sessionID string) error {
	return r.attachSession(ctx, "order_groups", groupID, sessionID, models.ErrOrderGroupNotFound)
}

// AttachOrderSession records the payment session opened for a pending order
func (r *OrderRepository) AttachOrderSession(ctx context.Context, orderID, sessionID string) error {
	return r.attachSession(ctx, "orders", orderID, sessionID, models.ErrOrderNotFound)
}

func (r *OrderRepository) attachSession(ctx context.Context, table, id, sessionID string, missing error) error {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET payment_session_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`, table), id, sessionID, models.OrderPending)
	if err != nil {
		if isInvalidID(err) {
			return missing
		}
		return fmt.Errorf("failed to attach payment session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w or no longer pending", missing)
	}
	return nil
}

// DeleteExpiredPending removes pending groups and standalone orders last
// touched before cutoff. Opening a payment session bumps updated_at, so a
// session stays payable for the full TTL. Nothing is reserved for pending
// orders, so inventory is not touched.
func (r *OrderRepository) DeleteExpiredPending(ctx context.Context, cutoff time.Time) (groups int64, orders int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// child orders go with their group through ON DELETE CASCADE
	result, err := tx.ExecContext(ctx,
		`DELETE FROM order_groups WHERE status = $1 AND updated_at < $2`, models.OrderPending, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete expired order groups: %w", err)
	}
	if groups, err = result.RowsAffected(); err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	result, err = tx.ExecContext(ctx,
		`DELETE FROM orders WHERE order_group_id IS NULL AND status = $1 AND updated_at < $2`, models.OrderPending, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete expired orders: %w", err)
	}
	if orders, err = result.RowsAffected(); err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit expiry: %w", err)
	}
	return groups, orders, nil
}
