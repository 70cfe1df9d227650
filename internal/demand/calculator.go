// Package demand derives an urgency score and message from live cart
// reservations, recent order velocity, and stock depletion. Display only:
// it never gates inventory.
package demand

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

type Tier string

const (
	TierNone     Tier = "none"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

type TrackerStats interface {
	ActiveCartCount(itemID string) int
	TotalReservedQuantity(itemID string) int64
}

type OrderStats interface {
	CountOrdersSince(ctx context.Context, itemID string, since time.Time) (int, error)
}

type Pressure struct {
	ItemID           string
	Score            int
	Tier             Tier
	Message          string
	ActiveCarts      int
	ReservedQuantity int64
	OrdersLast24h    int
	Stock            *int64
}

type Calculator struct {
	tracker TrackerStats
	orders  OrderStats
	clk     clock.Clock
}

func NewCalculator(tracker TrackerStats, orders OrderStats, clk clock.Clock) *Calculator {
	return &Calculator{
		tracker: tracker,
		orders:  orders,
		clk:     clk,
	}
}

const lowStockCutoff = 5

// For computes the item's demand pressure. stock is the current hard
// stock, nil when tracking is disabled (no depletion component then).
func (c *Calculator) For(ctx context.Context, itemID string, stock *int64) (Pressure, error) {
	activeCarts := c.tracker.ActiveCartCount(itemID)
	reserved := c.tracker.TotalReservedQuantity(itemID)

	orders24h, err := c.orders.CountOrdersSince(ctx, itemID, c.clk.Now().Add(-24*time.Hour))
	if err != nil {
		return Pressure{}, fmt.Errorf("demand pressure for %s: %w", itemID, err)
	}

	score := score(activeCarts, orders24h, stock)
	tier := tierFor(score)

	return Pressure{
		ItemID:           itemID,
		Score:            score,
		Tier:             tier,
		Message:          message(tier, activeCarts, orders24h, stock),
		ActiveCarts:      activeCarts,
		ReservedQuantity: reserved,
		OrdersLast24h:    orders24h,
		Stock:            stock,
	}, nil
}

// score blends cart interest (capped 60), order velocity (capped 30) and
// stock depletion (up to 40), clamped to [0, 100].
func score(activeCarts, orders24h int, stock *int64) int {
	cartComponent := activeCarts * 30
	if cartComponent > 60 {
		cartComponent = 60
	}

	orderComponent := orders24h * 10
	if orderComponent > 30 {
		orderComponent = 30
	}

	depletion := 0.0
	if stock != nil {
		base := float64(*stock)
		if base < 20 {
			base = 20
		}
		depletionPercent := (base - float64(*stock)) / base * 100
		depletion = depletionPercent * 0.4
	}

	total := cartComponent + orderComponent + int(depletion)
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}

func tierFor(score int) Tier {
	switch {
	case score >= 76:
		return TierCritical
	case score >= 51:
		return TierHigh
	case score >= 26:
		return TierModerate
	default:
		return TierNone
	}
}

// message is a fixed priority ladder: the strongest line needs critical
// pressure plus real cart competition, then low stock, then velocity.
func message(tier Tier, activeCarts, orders24h int, stock *int64) string {
	switch {
	case tier == TierCritical && activeCarts >= 3:
		return fmt.Sprintf("%d others have this in their cart and stock is almost gone", activeCarts)
	case stock != nil && *stock <= lowStockCutoff && tier != TierNone:
		return fmt.Sprintf("Only %d left in stock", *stock)
	case orders24h >= 2 && tier != TierNone:
		return fmt.Sprintf("Trending: ordered %d times in the last 24 hours", orders24h)
	default:
		return ""
	}
}
