package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rasamarket/fulfillment/internal/routing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	items      map[string]Item
	fulfillers map[string]Fulfiller
	defaultID  string

	getItemCalls int
	failWith     error
}

func (f *fakeCatalog) GetItem(_ context.Context, itemID string) (Item, error) {
	f.getItemCalls++
	if f.failWith != nil {
		return Item{}, f.failWith
	}
	item, ok := f.items[itemID]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

func (f *fakeCatalog) GetFulfiller(_ context.Context, id string) (Fulfiller, error) {
	ff, ok := f.fulfillers[id]
	if !ok {
		return Fulfiller{}, ErrNotFound
	}
	return ff, nil
}

func (f *fakeCatalog) DefaultFulfiller(_ context.Context) (Fulfiller, error) {
	return f.GetFulfiller(context.Background(), f.defaultID)
}

func testConfig() Config {
	return Config{
		MultiFulfillerMode:        true,
		MultiFulfillerCartAllowed: true,
		FreeDeliveryThreshold:     500,
		StandardDeliveryFee:       50,
		BasePrepTime:              40 * time.Minute,
	}
}

func openChef(id string) Fulfiller {
	return Fulfiller{ID: id, Name: "chef " + id, Active: true, AcceptingOrders: true}
}

func newFakeCatalog() *fakeCatalog {
	chef1 := openChef("chef-1")
	chef2 := openChef("chef-2")
	chef2.PrepBuffer = 10 * time.Minute

	return &fakeCatalog{
		items: map[string]Item{
			"item-a": {ID: "item-a", FulfillerID: "chef-1", Name: "Dal Makhani", Price: 200, Available: true, TrackStock: true},
			"item-b": {ID: "item-b", FulfillerID: "chef-1", Name: "Butter Naan", Price: 300, Available: true},
			"item-c": {ID: "item-c", FulfillerID: "chef-2", Name: "Paneer Tikka", Price: 400, Available: true},
		},
		fulfillers: map[string]Fulfiller{"chef-1": chef1, "chef-2": chef2},
		defaultID:  "chef-1",
	}
}

func newTestService(catalog *fakeCatalog, cfg Config) (*Service, *clock.Mock) {
	mock := clock.NewMock()
	return NewService(catalog, cfg, mock, 4), mock
}

func TestRoute_SingleFulfillerFreeDelivery(t *testing.T) {
	svc, mock := newTestService(newFakeCatalog(), testConfig())

	// 200×1 + 300×2 = 800 ≥ 500 → free delivery
	res, err := svc.Route(context.Background(), []domain.CartItem{
		{ItemID: "item-a", Quantity: 1},
		{ItemID: "item-b", Quantity: 2},
	})
	require.NoError(t, err)
	require.True(t, res.Success, "errors: %+v", res.Errors)

	require.Len(t, res.Groups, 1)
	assert.Equal(t, int64(800), res.Groups[0].Subtotal)
	assert.Equal(t, int64(800), res.Totals.Amount)
	assert.Equal(t, int64(0), res.Totals.CombinedDeliveryFee)
	assert.Equal(t, 1, res.Totals.ChefCount)
	assert.Equal(t, 3, res.Totals.ItemCount)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, mock.Now().Add(40*time.Minute), res.Totals.EstimatedDelivery)
}

func TestRoute_BelowThresholdChargesStandardFee(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.items["item-d"] = Item{ID: "item-d", FulfillerID: "chef-1", Name: "Lassi", Price: 100, Available: true}
	svc, _ := newTestService(catalog, testConfig())

	res, err := svc.Route(context.Background(), []domain.CartItem{{ItemID: "item-d", Quantity: 1}})
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, int64(100), res.Totals.Amount)
	assert.Equal(t, int64(50), res.Totals.CombinedDeliveryFee)
	assert.Equal(t, int64(50), res.Groups[0].DeliveryFee)
}

func TestRoute_TwoChefsEachAddADeliveryLeg(t *testing.T) {
	svc, _ := newTestService(newFakeCatalog(), testConfig())

	// chef-1 subtotal 300 and chef-2 subtotal 400: each group is under the
	// free-delivery threshold, so each adds its own delivery leg
	res, err := svc.Route(context.Background(), []domain.CartItem{
		{ItemID: "item-b", Quantity: 1}, // 300, chef-1
		{ItemID: "item-c", Quantity: 1}, // 400, chef-2
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	require.Len(t, res.Groups, 2)
	assert.Equal(t, int64(700), res.Totals.Amount)
	assert.Equal(t, int64(100), res.Totals.CombinedDeliveryFee)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "2 chefs")
}

func TestRoute_FreeDeliveryIsPerGroup(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.items["item-big"] = Item{ID: "item-big", FulfillerID: "chef-1", Name: "Family Thali", Price: 600, Available: true}
	svc, _ := newTestService(catalog, testConfig())

	// chef-1 qualifies for free delivery on its own subtotal; chef-2 does
	// not and still pays its leg
	res, err := svc.Route(context.Background(), []domain.CartItem{
		{ItemID: "item-big", Quantity: 1}, // 600, chef-1
		{ItemID: "item-c", Quantity: 1},   // 400, chef-2
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, int64(0), res.Groups[0].DeliveryFee)
	assert.Equal(t, int64(50), res.Groups[1].DeliveryFee)
	assert.Equal(t, int64(50), res.Totals.CombinedDeliveryFee)
}

func TestRoute_SubtotalsSumToLineTotals(t *testing.T) {
	svc, _ := newTestService(newFakeCatalog(), testConfig())

	lines := []domain.CartItem{
		{ItemID: "item-a", Quantity: 3},
		{ItemID: "item-b", Quantity: 1},
		{ItemID: "item-c", Quantity: 2},
	}
	res, err := svc.Route(context.Background(), lines)
	require.NoError(t, err)
	require.True(t, res.Success)

	var groupSum, lineSum int64
	for _, g := range res.Groups {
		groupSum += g.Subtotal
		for _, ln := range g.Lines {
			lineSum += ln.UnitPrice * int64(ln.Quantity)
		}
	}
	assert.Equal(t, lineSum, groupSum)
	assert.Equal(t, groupSum, res.Totals.Amount)
}

func TestRoute_ETAUsesSlowestChef(t *testing.T) {
	catalog := newFakeCatalog()
	// chef-1: 40m base, chef-2: 40m + 10m buffer → ETA is max, not sum
	svc, mock := newTestService(catalog, testConfig())

	res, err := svc.Route(context.Background(), []domain.CartItem{
		{ItemID: "item-a", Quantity: 1},
		{ItemID: "item-c", Quantity: 1},
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, mock.Now().Add(50*time.Minute), res.Totals.EstimatedDelivery)
}

func TestRoute_MinOrderBoundary(t *testing.T) {
	catalog := newFakeCatalog()
	chef := openChef("chef-1")
	chef.MinOrderAmount = 199
	catalog.fulfillers["chef-1"] = chef
	catalog.items["item-cheap"] = Item{ID: "item-cheap", FulfillerID: "chef-1", Name: "Chai", Price: 150, Available: true}
	svc, _ := newTestService(catalog, testConfig())

	t.Run("below minimum fails with shortfall", func(t *testing.T) {
		res, err := svc.Route(context.Background(), []domain.CartItem{{ItemID: "item-cheap", Quantity: 1}})
		require.NoError(t, err)
		assert.False(t, res.Success)

		require.Len(t, res.Errors, 1)
		assert.Equal(t, domain.CodeMinOrderNotMet, res.Errors[0].Code)
		assert.Equal(t, int64(49), res.Errors[0].Shortfall)
	})

	t.Run("exactly the minimum passes", func(t *testing.T) {
		catalog.items["item-cheap"] = Item{ID: "item-cheap", FulfillerID: "chef-1", Name: "Chai", Price: 199, Available: true}
		res, err := svc.Route(context.Background(), []domain.CartItem{{ItemID: "item-cheap", Quantity: 1}})
		require.NoError(t, err)
		assert.True(t, res.Success, "errors: %+v", res.Errors)
	})
}

func TestRoute_EmptyCartShortCircuits(t *testing.T) {
	catalog := newFakeCatalog()
	svc, _ := newTestService(catalog, testConfig())

	res, err := svc.Route(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Success)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.CodeEmptyCart, res.Errors[0].Code)
	assert.Equal(t, "No items in cart", res.Errors[0].Message)
	assert.Zero(t, catalog.getItemCalls, "empty cart must not touch the catalog")
}

func TestRoute_UnknownItemIsValidationData(t *testing.T) {
	svc, _ := newTestService(newFakeCatalog(), testConfig())

	res, err := svc.Route(context.Background(), []domain.CartItem{
		{ItemID: "item-a", Quantity: 1},
		{ItemID: "item-ghost", Quantity: 1},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.CodeItemNotFound, res.Errors[0].Code)
	assert.Equal(t, "item-ghost", res.Errors[0].ItemID)
}

func TestRoute_CatalogOutageIsAnError(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.failWith = errors.New("connection refused")
	svc, _ := newTestService(catalog, testConfig())

	_, err := svc.Route(context.Background(), []domain.CartItem{{ItemID: "item-a", Quantity: 1}})
	require.Error(t, err)
}

func TestRoute_MultiFulfillerCartForbidden(t *testing.T) {
	cfg := testConfig()
	cfg.MultiFulfillerCartAllowed = false
	svc, _ := newTestService(newFakeCatalog(), cfg)

	res, err := svc.Route(context.Background(), []domain.CartItem{
		{ItemID: "item-a", Quantity: 1},
		{ItemID: "item-c", Quantity: 1},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)

	var codes []domain.ErrorCode
	for _, e := range res.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, domain.CodeMultiFulfillerForbidden)
}

func TestRoute_SingleFulfillerModeIgnoresOwnership(t *testing.T) {
	cfg := testConfig()
	cfg.MultiFulfillerMode = false
	svc, _ := newTestService(newFakeCatalog(), cfg)

	// item-c belongs to chef-2, but single-fulfiller mode routes everything
	// to the default kitchen
	res, err := svc.Route(context.Background(), []domain.CartItem{
		{ItemID: "item-a", Quantity: 1},
		{ItemID: "item-c", Quantity: 1},
	})
	require.NoError(t, err)
	require.True(t, res.Success, "errors: %+v", res.Errors)

	require.Len(t, res.Groups, 1)
	assert.Equal(t, "chef-1", res.Groups[0].FulfillerID)
}

func TestRoute_RejectsClosedFulfillers(t *testing.T) {
	t.Run("inactive", func(t *testing.T) {
		catalog := newFakeCatalog()
		chef := catalog.fulfillers["chef-1"]
		chef.Active = false
		catalog.fulfillers["chef-1"] = chef
		svc, _ := newTestService(catalog, testConfig())

		res, err := svc.Route(context.Background(), []domain.CartItem{{ItemID: "item-a", Quantity: 1}})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, domain.CodeFulfillerInactive, res.Errors[0].Code)
	})

	t.Run("not accepting orders", func(t *testing.T) {
		catalog := newFakeCatalog()
		chef := catalog.fulfillers["chef-1"]
		chef.AcceptingOrders = false
		catalog.fulfillers["chef-1"] = chef
		svc, _ := newTestService(catalog, testConfig())

		res, err := svc.Route(context.Background(), []domain.CartItem{{ItemID: "item-a", Quantity: 1}})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, domain.CodeFulfillerNotAccepting, res.Errors[0].Code)
	})
}

func TestRoute_ReportsEveryProblemAtOnce(t *testing.T) {
	catalog := newFakeCatalog()
	chef1 := catalog.fulfillers["chef-1"]
	chef1.MinOrderAmount = 500
	catalog.fulfillers["chef-1"] = chef1
	chef2 := catalog.fulfillers["chef-2"]
	chef2.MinOrderAmount = 900
	catalog.fulfillers["chef-2"] = chef2
	svc, _ := newTestService(catalog, testConfig())

	res, err := svc.Route(context.Background(), []domain.CartItem{
		{ItemID: "item-a", Quantity: 1}, // chef-1 subtotal 200 < 500
		{ItemID: "item-c", Quantity: 1}, // chef-2 subtotal 400 < 900
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Len(t, res.Errors, 2, "both min-order violations must surface together")
}

func TestRoute_InvalidQuantity(t *testing.T) {
	catalog := newFakeCatalog()
	svc, _ := newTestService(catalog, testConfig())

	res, err := svc.Route(context.Background(), []domain.CartItem{{ItemID: "item-a", Quantity: 0}})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, domain.CodeInvalidQuantity, res.Errors[0].Code)
	assert.Zero(t, catalog.getItemCalls)
}
