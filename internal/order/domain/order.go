package domain

import "time"

const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
)

// Order is one fulfiller's committed sub-order. Orders born from the same
// checkout share a CheckoutGroupID.
type Order struct {
	ID              string
	CheckoutGroupID string
	SessionID       string
	CustomerID      string
	FulfillerID     string
	Status          string
	Currency        string
	SubtotalAmount  int64
	DeliveryFee     int64
	TotalAmount     int64
	EstimatedAt     time.Time
	DeliveryAddress string
	ContactPhone    string
	Lines           []OrderLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderLine struct {
	ID          string
	OrderID     string
	ItemID      string
	Name        string
	UnitAmount  int64
	Quantity    int32
	LineTotal   int64
	TrackStock  bool
}

// CommitRequest carries the customer/delivery metadata attached to every
// order produced from a routing result.
type CommitRequest struct {
	SessionID       string
	CustomerID      string
	Currency        string
	DeliveryAddress string
	ContactPhone    string
}
