// Package fulfillment composes the reservation tracker, order router,
// commit service and demand calculator into the single surface the
// request-handler layer consumes.
package fulfillment

import (
	"context"

	catalogapp "github.com/rasamarket/fulfillment/internal/catalog/app"
	"github.com/rasamarket/fulfillment/internal/demand"
	orderapp "github.com/rasamarket/fulfillment/internal/order/app"
	orderdomain "github.com/rasamarket/fulfillment/internal/order/domain"
	"github.com/rasamarket/fulfillment/internal/reservation"
	routingapp "github.com/rasamarket/fulfillment/internal/routing/app"
	routingdomain "github.com/rasamarket/fulfillment/internal/routing/domain"
)

type Engine struct {
	tracker *reservation.Tracker
	router  *routingapp.Service
	orders  *orderapp.Service
	demand  *demand.Calculator
	catalog *catalogapp.Service
}

func NewEngine(
	tracker *reservation.Tracker,
	router *routingapp.Service,
	orders *orderapp.Service,
	calc *demand.Calculator,
	catalog *catalogapp.Service,
) *Engine {
	return &Engine{
		tracker: tracker,
		router:  router,
		orders:  orders,
		demand:  calc,
		catalog: catalog,
	}
}

// TrackCartItem records that the session holds quantity of the item.
func (e *Engine) TrackCartItem(sessionID, itemID string, quantity int32) {
	e.tracker.Track(sessionID, itemID, quantity)
}

func (e *Engine) ReleaseCartItem(sessionID, itemID string) {
	e.tracker.Release(sessionID, itemID)
}

func (e *Engine) ReleaseAllCartItems(sessionID string) {
	e.tracker.ReleaseAll(sessionID)
}

// RouteOrder groups and validates the cart against the current catalog
// snapshot. Pure: no reservations move, no stock changes.
func (e *Engine) RouteOrder(ctx context.Context, items []routingdomain.CartItem) (routingdomain.Result, error) {
	return e.router.Route(ctx, items)
}

// CommitOrder persists the routed checkout atomically. On success the
// session's soft reservations are released.
func (e *Engine) CommitOrder(ctx context.Context, result routingdomain.Result, req orderdomain.CommitRequest) ([]orderdomain.Order, error) {
	return e.orders.Commit(ctx, result, req)
}

// DemandPressure reports the item's urgency score and messaging.
func (e *Engine) DemandPressure(ctx context.Context, itemID string) (demand.Pressure, error) {
	item, err := e.catalog.GetItem(ctx, itemID)
	if err != nil {
		return demand.Pressure{}, err
	}

	var stock *int64
	if item.TrackStock {
		stock = item.StockCount
	}
	return e.demand.For(ctx, itemID, stock)
}

// AdvisoryAvailableStock is hard stock minus live soft reservations; nil
// when the item's stock is untracked. Informational only.
func (e *Engine) AdvisoryAvailableStock(ctx context.Context, itemID string) (*int64, error) {
	item, err := e.catalog.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.TrackStock {
		return nil, nil
	}
	return e.tracker.AdvisoryAvailableStock(itemID, item.StockCount), nil
}
