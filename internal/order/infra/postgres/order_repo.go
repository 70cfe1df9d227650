package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rasamarket/fulfillment/internal/order/app"
	"github.com/rasamarket/fulfillment/internal/order/domain"
)

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) execTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

const insertOrderQuery = `
INSERT INTO orders (id, checkout_group_id, session_id, customer_id, fulfiller_id, status, currency,
                    subtotal_amount, delivery_fee, total_amount, estimated_at, delivery_address, contact_phone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING created_at, updated_at`

const insertOrderLineQuery = `
INSERT INTO order_lines (id, order_id, item_id, name, unit_amount, quantity, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// decrementStockQuery is the oversell guard: a single conditional update,
// not a read-then-write pair. Of two commits racing on the last unit,
// exactly one matches the stock_count >= quantity predicate.
const decrementStockQuery = `
UPDATE menu_items
SET stock_count = stock_count - $2, updated_at = now()
WHERE id = $1 AND track_stock AND stock_count >= $2`

const remainingStockQuery = `
SELECT COALESCE(stock_count, 0) FROM menu_items WHERE id = $1`

// CreateOrdersTx persists the checkout's orders and applies every tracked
// line's stock decrement inside one transaction. The first line that fails
// its conditional decrement aborts the whole batch: no partial orders, no
// partial decrements.
func (r *OrderRepo) CreateOrdersTx(ctx context.Context, orders []domain.Order) ([]domain.Order, error) {
	created := make([]domain.Order, 0, len(orders))

	err := r.execTx(ctx, func(tx *sql.Tx) error {
		for _, o := range orders {
			o.ID = uuid.NewString()

			err := tx.QueryRowContext(ctx, insertOrderQuery,
				o.ID, o.CheckoutGroupID, o.SessionID, o.CustomerID, o.FulfillerID,
				o.Status, o.Currency, o.SubtotalAmount, o.DeliveryFee, o.TotalAmount,
				o.EstimatedAt, o.DeliveryAddress, o.ContactPhone,
			).Scan(&o.CreatedAt, &o.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert order for fulfiller %s: %w", o.FulfillerID, err)
			}

			for i := range o.Lines {
				ln := &o.Lines[i]
				ln.ID = uuid.NewString()
				ln.OrderID = o.ID

				if _, err := tx.ExecContext(ctx, insertOrderLineQuery,
					ln.ID, ln.OrderID, ln.ItemID, ln.Name, ln.UnitAmount, ln.Quantity, ln.LineTotal,
				); err != nil {
					return fmt.Errorf("insert order line %s: %w", ln.ItemID, err)
				}

				if !ln.TrackStock {
					continue
				}

				res, err := tx.ExecContext(ctx, decrementStockQuery, ln.ItemID, ln.Quantity)
				if err != nil {
					return fmt.Errorf("decrement stock for %s: %w", ln.ItemID, err)
				}
				affected, err := res.RowsAffected()
				if err != nil {
					return fmt.Errorf("decrement stock for %s: %w", ln.ItemID, err)
				}
				if affected == 0 {
					var available int64
					if err := tx.QueryRowContext(ctx, remainingStockQuery, ln.ItemID).Scan(&available); err != nil {
						return fmt.Errorf("read remaining stock for %s: %w", ln.ItemID, err)
					}
					return &app.StockConflictError{
						ItemID:    ln.ItemID,
						Name:      ln.Name,
						Requested: ln.Quantity,
						Available: available,
					}
				}
			}

			created = append(created, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

const countOrdersSinceQuery = `
SELECT COUNT(DISTINCT o.id)
FROM orders o
JOIN order_lines l ON l.order_id = o.id
WHERE l.item_id = $1 AND o.created_at >= $2`

// CountOrdersSince reports how many orders included the item after the
// cutoff. Read-only, outside any transaction; feeds demand messaging.
func (r *OrderRepo) CountOrdersSince(ctx context.Context, itemID string, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countOrdersSinceQuery, itemID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders for %s: %w", itemID, err)
	}
	return n, nil
}
