package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rasamarket/fulfillment/internal/routing/domain"
	"golang.org/x/sync/errgroup"
)

var ErrNotFound = errors.New("not found")

type CatalogReader interface {
	GetItem(ctx context.Context, itemID string) (Item, error)
	GetFulfiller(ctx context.Context, fulfillerID string) (Fulfiller, error)
	DefaultFulfiller(ctx context.Context) (Fulfiller, error)
}

type Item struct {
	ID          string
	FulfillerID string
	Name        string
	Price       int64
	Available   bool
	TrackStock  bool
}

type Fulfiller struct {
	ID              string
	Name            string
	Active          bool
	AcceptingOrders bool
	MinOrderAmount  int64
	PrepBuffer      time.Duration
}

type Config struct {
	// MultiFulfillerMode routes lines to their owning fulfiller; when off
	// everything goes to the single default kitchen.
	MultiFulfillerMode bool
	// MultiFulfillerCartAllowed permits a checkout spanning more than one
	// fulfiller. Ignored unless MultiFulfillerMode is on.
	MultiFulfillerCartAllowed bool

	FreeDeliveryThreshold int64
	StandardDeliveryFee   int64
	BasePrepTime          time.Duration
}

// Service turns a cart into fulfiller-scoped sub-orders or a structured
// rejection. Catalog lookups fan out; everything after resolution is pure,
// so a given cart plus catalog snapshot always routes the same way.
type Service struct {
	catalog CatalogReader
	cfg     Config
	clk     clock.Clock

	maxConcurrent int
}

func NewService(catalog CatalogReader, cfg Config, clk clock.Clock, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	return &Service{
		catalog:       catalog,
		cfg:           cfg,
		clk:           clk,
		maxConcurrent: maxConcurrent,
	}
}

// Route validates and groups the cart. Validation problems come back as
// data inside the Result; the returned error is reserved for catalog
// failures (store unreachable), which leave no side effects.
func (s *Service) Route(ctx context.Context, items []domain.CartItem) (domain.Result, error) {
	if len(items) == 0 {
		return failure(domain.ValidationError{
			Code:    domain.CodeEmptyCart,
			Message: "No items in cart",
		}), nil
	}

	var errs []domain.ValidationError
	for _, it := range items {
		if it.Quantity <= 0 {
			errs = append(errs, domain.ValidationError{
				Code:    domain.CodeInvalidQuantity,
				Message: fmt.Sprintf("quantity must be positive, got %d", it.Quantity),
				ItemID:  it.ItemID,
			})
		}
	}
	if len(errs) > 0 {
		return failure(errs...), nil
	}

	resolved, errs, err := s.resolveItems(ctx, items)
	if err != nil {
		return domain.Result{}, err
	}
	if len(errs) > 0 {
		return failure(errs...), nil
	}

	groups, errs, err := s.buildGroups(ctx, items, resolved)
	if err != nil {
		return domain.Result{}, err
	}

	if len(groups) > 1 && !s.cfg.MultiFulfillerCartAllowed {
		errs = append(errs, domain.ValidationError{
			Code:    domain.CodeMultiFulfillerForbidden,
			Message: fmt.Sprintf("cart spans %d chefs but multi-chef checkout is not enabled", len(groups)),
		})
	}

	for _, g := range groups {
		if g.Subtotal < g.MinOrderAmount {
			shortfall := g.MinOrderAmount - g.Subtotal
			errs = append(errs, domain.ValidationError{
				Code: domain.CodeMinOrderNotMet,
				Message: fmt.Sprintf("%s requires a minimum order of %d; subtotal %d is %d short",
					g.Name, g.MinOrderAmount, g.Subtotal, shortfall),
				FulfillerID: g.FulfillerID,
				Shortfall:   shortfall,
			})
		}
	}

	result := domain.Result{
		Success: len(errs) == 0,
		Groups:  groups,
		Errors:  errs,
	}
	s.applyTotals(&result)

	if len(groups) > 1 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Your order is split across %d chefs; each chef adds its own delivery leg", len(groups)))
	}

	return result, nil
}

type resolvedItem struct {
	item    Item
	missing bool
}

func (s *Service) resolveItems(ctx context.Context, items []domain.CartItem) ([]resolvedItem, []domain.ValidationError, error) {
	resolved := make([]resolvedItem, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for idx := range items {
		g.Go(func() error {
			it := items[idx]
			item, err := s.catalog.GetItem(ctx, it.ItemID)
			if errors.Is(err, ErrNotFound) {
				resolved[idx] = resolvedItem{missing: true}
				return nil
			}
			if err != nil {
				return fmt.Errorf("resolve item %s: %w", it.ItemID, err)
			}
			resolved[idx] = resolvedItem{item: item}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var errs []domain.ValidationError
	for idx, r := range resolved {
		switch {
		case r.missing:
			errs = append(errs, domain.ValidationError{
				Code:    domain.CodeItemNotFound,
				Message: fmt.Sprintf("menu item %s not found", items[idx].ItemID),
				ItemID:  items[idx].ItemID,
			})
		case !r.item.Available:
			errs = append(errs, domain.ValidationError{
				Code:    domain.CodeItemUnavailable,
				Message: fmt.Sprintf("%s is currently unavailable", r.item.Name),
				ItemID:  r.item.ID,
			})
		}
	}
	return resolved, errs, nil
}

// buildGroups buckets lines by owning fulfiller in first-appearance order,
// which keeps the output deterministic for a given cart.
func (s *Service) buildGroups(ctx context.Context, items []domain.CartItem, resolved []resolvedItem) ([]domain.FulfillerGroup, []domain.ValidationError, error) {
	var defaultFulfiller *Fulfiller
	if !s.cfg.MultiFulfillerMode {
		f, err := s.catalog.DefaultFulfiller(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve default fulfiller: %w", err)
		}
		defaultFulfiller = &f
	}

	byFulfiller := make(map[string]*domain.FulfillerGroup)
	var order []string
	var errs []domain.ValidationError

	for idx, r := range resolved {
		fulfillerID := r.item.FulfillerID
		if defaultFulfiller != nil {
			fulfillerID = defaultFulfiller.ID
		}

		group, ok := byFulfiller[fulfillerID]
		if !ok {
			var f Fulfiller
			if defaultFulfiller != nil {
				f = *defaultFulfiller
			} else {
				var err error
				f, err = s.catalog.GetFulfiller(ctx, fulfillerID)
				if err != nil {
					return nil, nil, fmt.Errorf("resolve fulfiller %s: %w", fulfillerID, err)
				}
			}

			if !f.Active {
				errs = append(errs, domain.ValidationError{
					Code:        domain.CodeFulfillerInactive,
					Message:     fmt.Sprintf("%s is not currently active", f.Name),
					FulfillerID: f.ID,
				})
			} else if !f.AcceptingOrders {
				errs = append(errs, domain.ValidationError{
					Code:        domain.CodeFulfillerNotAccepting,
					Message:     fmt.Sprintf("%s is not accepting orders right now", f.Name),
					FulfillerID: f.ID,
				})
			}

			group = &domain.FulfillerGroup{
				FulfillerID:     f.ID,
				Name:            f.Name,
				MinOrderAmount:  f.MinOrderAmount,
				AcceptingOrders: f.AcceptingOrders,
				Active:          f.Active,
				PrepTime:        s.cfg.BasePrepTime + f.PrepBuffer,
			}
			byFulfiller[fulfillerID] = group
			order = append(order, fulfillerID)
		}

		qty := items[idx].Quantity
		lineTotal := r.item.Price * int64(qty)
		group.Lines = append(group.Lines, domain.Line{
			ItemID:     r.item.ID,
			Name:       r.item.Name,
			Quantity:   qty,
			UnitPrice:  r.item.Price,
			LineTotal:  lineTotal,
			TrackStock: r.item.TrackStock,
		})
		group.Subtotal += lineTotal
	}

	groups := make([]domain.FulfillerGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, *byFulfiller[id])
	}
	return groups, errs, nil
}

// applyTotals computes the combined figures. Each group qualifies for
// free delivery on its own subtotal; every group below the threshold adds
// one standard delivery leg. The slowest group's prep time sets the ETA
// (legs are prepared in parallel, delivery waits for the last one).
func (s *Service) applyTotals(result *domain.Result) {
	if len(result.Groups) == 0 {
		return
	}

	var totals domain.Totals
	totals.ChefCount = len(result.Groups)

	var maxPrep time.Duration
	for i := range result.Groups {
		g := &result.Groups[i]

		totals.Amount += g.Subtotal
		for _, ln := range g.Lines {
			totals.ItemCount += int(ln.Quantity)
		}
		if g.PrepTime > maxPrep {
			maxPrep = g.PrepTime
		}

		if g.Subtotal < s.cfg.FreeDeliveryThreshold {
			g.DeliveryFee = s.cfg.StandardDeliveryFee
		}
		totals.CombinedDeliveryFee += g.DeliveryFee
	}

	totals.EstimatedDelivery = s.clk.Now().Add(maxPrep)
	result.Totals = totals
}

func failure(errs ...domain.ValidationError) domain.Result {
	return domain.Result{Errors: errs}
}
