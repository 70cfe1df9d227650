package domain

import "time"

// CartItem is a raw cart line as submitted at checkout: the item and how
// many of it. Prices are resolved from the catalog during routing.
type CartItem struct {
	ItemID   string
	Quantity int32
}

// Line is the immutable per-line snapshot taken at routing time. The unit
// price stamped here is the price used at commit; it is never re-read.
type Line struct {
	ItemID     string
	Name       string
	Quantity   int32
	UnitPrice  int64
	LineTotal  int64
	TrackStock bool
}

// FulfillerGroup is one fulfiller's slice of the cart, an intermediate
// view consumed by the commit transaction. Never persisted directly.
type FulfillerGroup struct {
	FulfillerID     string
	Name            string
	Lines           []Line
	Subtotal        int64
	DeliveryFee     int64
	MinOrderAmount  int64
	AcceptingOrders bool
	Active          bool
	PrepTime        time.Duration
}

type Totals struct {
	ChefCount           int
	ItemCount           int
	Amount              int64
	CombinedDeliveryFee int64
	EstimatedDelivery   time.Time
}

// Result is produced once per checkout attempt. Success means no
// validation errors; warnings are informational and never block.
type Result struct {
	Success  bool
	Groups   []FulfillerGroup
	Totals   Totals
	Errors   []ValidationError
	Warnings []string
}

type ErrorCode string

const (
	CodeEmptyCart               ErrorCode = "EMPTY_CART"
	CodeInvalidQuantity         ErrorCode = "INVALID_QUANTITY"
	CodeItemNotFound            ErrorCode = "ITEM_NOT_FOUND"
	CodeItemUnavailable         ErrorCode = "ITEM_UNAVAILABLE"
	CodeFulfillerInactive       ErrorCode = "FULFILLER_INACTIVE"
	CodeFulfillerNotAccepting   ErrorCode = "FULFILLER_NOT_ACCEPTING"
	CodeMinOrderNotMet          ErrorCode = "MIN_ORDER_NOT_MET"
	CodeMultiFulfillerForbidden ErrorCode = "MULTI_FULFILLER_NOT_ALLOWED"
)

// ValidationError is routing-time rejection data. These travel inside the
// Result so the caller can show every problem at once; they are never
// returned as Go errors.
type ValidationError struct {
	Code        ErrorCode
	Message     string
	ItemID      string
	FulfillerID string

	// Shortfall is set for MIN_ORDER_NOT_MET: how far the group subtotal
	// fell below the fulfiller's minimum.
	Shortfall int64
}
