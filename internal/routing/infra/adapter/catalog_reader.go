package adapter

import (
	"context"
	"errors"

	catalogapp "github.com/rasamarket/fulfillment/internal/catalog/app"
	"github.com/rasamarket/fulfillment/internal/catalog/domain"
	routingapp "github.com/rasamarket/fulfillment/internal/routing/app"
)

// CatalogServiceReader bridges the catalog service onto the router's
// narrow read port, mapping the catalog's not-found sentinel onto the
// router's so missing items become validation data instead of failures.
type CatalogServiceReader struct {
	svc *catalogapp.Service
}

func NewCatalogServiceReader(svc *catalogapp.Service) *CatalogServiceReader {
	return &CatalogServiceReader{svc: svc}
}

func (r *CatalogServiceReader) GetItem(ctx context.Context, itemID string) (routingapp.Item, error) {
	item, err := r.svc.GetItem(ctx, itemID)
	if err != nil {
		return routingapp.Item{}, mapErr(err)
	}

	return routingapp.Item{
		ID:          item.ID,
		FulfillerID: item.FulfillerID,
		Name:        item.Name,
		Price:       item.Price,
		Available:   item.Available,
		TrackStock:  item.TrackStock,
	}, nil
}

func (r *CatalogServiceReader) GetFulfiller(ctx context.Context, fulfillerID string) (routingapp.Fulfiller, error) {
	f, err := r.svc.GetFulfiller(ctx, fulfillerID)
	if err != nil {
		return routingapp.Fulfiller{}, mapErr(err)
	}
	return toFulfiller(f), nil
}

func (r *CatalogServiceReader) DefaultFulfiller(ctx context.Context) (routingapp.Fulfiller, error) {
	f, err := r.svc.DefaultFulfiller(ctx)
	if err != nil {
		return routingapp.Fulfiller{}, mapErr(err)
	}
	return toFulfiller(f), nil
}

func toFulfiller(f domain.Fulfiller) routingapp.Fulfiller {
	return routingapp.Fulfiller{
		ID:              f.ID,
		Name:            f.Name,
		Active:          f.Active,
		AcceptingOrders: f.AcceptingOrders,
		MinOrderAmount:  f.MinOrderAmount,
		PrepBuffer:      f.PrepBuffer,
	}
}

func mapErr(err error) error {
	if errors.Is(err, catalogapp.ErrNotFound) || errors.Is(err, catalogapp.ErrInvalidInput) {
		return routingapp.ErrNotFound
	}
	return err
}
