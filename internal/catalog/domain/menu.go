package domain

import "time"

// MenuItem is the catalog view the fulfillment engine needs: price and
// fulfiller ownership for routing, stock fields for the commit decrement.
type MenuItem struct {
	ID          string
	FulfillerID string
	Name        string
	Price       int64
	Available   bool

	// TrackStock enables the hard-stock invariant for this item. When it
	// is false StockCount is nil and the item sells as unlimited.
	TrackStock bool
	StockCount *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fulfiller is an independent party (the default kitchen or a marketplace
// chef) that accepts and prepares sub-orders.
type Fulfiller struct {
	ID              string
	Name            string
	Active          bool
	Verified        bool
	AcceptingOrders bool
	MinOrderAmount  int64
	PrepBuffer      time.Duration
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
