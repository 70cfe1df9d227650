package app

import (
	"context"

	"github.com/rasamarket/fulfillment/internal/catalog/domain"
)

type MenuRepo interface {
	GetItem(ctx context.Context, id string) (domain.MenuItem, error)
	GetFulfiller(ctx context.Context, id string) (domain.Fulfiller, error)

	// DefaultFulfiller returns the fulfiller every line routes to when
	// multi-fulfiller mode is disabled: the lowest-id active, verified one.
	DefaultFulfiller(ctx context.Context) (domain.Fulfiller, error)
}
