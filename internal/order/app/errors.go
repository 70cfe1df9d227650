package app

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRoutable rejects a commit whose routing result failed
	// validation or carries no groups.
	ErrNotRoutable = errors.New("routing result is not committable")

	ErrMissingSession = errors.New("commit request requires a session id")
)

// StockConflictError reports that the conditional decrement found less
// stock than the order needed. It is an expected business outcome, meant
// for user-facing "only N left" messaging, never an automatic retry.
type StockConflictError struct {
	ItemID    string
	Name      string
	Requested int32
	Available int64
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}
