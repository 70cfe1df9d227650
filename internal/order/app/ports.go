package app

import (
	"context"

	"github.com/rasamarket/fulfillment/internal/order/domain"
)

type OrderRepo interface {
	// CreateOrdersTx persists every order with its lines and applies the
	// conditional stock decrement for each tracked line, all inside one
	// transaction. Insufficient stock surfaces as *StockConflictError and
	// rolls everything back.
	CreateOrdersTx(ctx context.Context, orders []domain.Order) ([]domain.Order, error)
}

// ReservationReleaser drops a session's soft reservations once its order
// is safely committed.
type ReservationReleaser interface {
	ReleaseAll(sessionID string)
}
