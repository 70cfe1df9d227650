package demand

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	carts    int
	reserved int64
}

func (f fakeTracker) ActiveCartCount(string) int         { return f.carts }
func (f fakeTracker) TotalReservedQuantity(string) int64 { return f.reserved }

type fakeOrders struct {
	count int
	err   error

	gotSince time.Time
}

func (f *fakeOrders) CountOrdersSince(_ context.Context, _ string, since time.Time) (int, error) {
	f.gotSince = since
	return f.count, f.err
}

func stock(n int64) *int64 { return &n }

func calc(carts, orders int, reserved int64) (*Calculator, *fakeOrders, *clock.Mock) {
	mock := clock.NewMock()
	fo := &fakeOrders{count: orders}
	return NewCalculator(fakeTracker{carts: carts, reserved: reserved}, fo, mock), fo, mock
}

func TestScoreComponents(t *testing.T) {
	tests := []struct {
		name   string
		carts  int
		orders int
		stock  *int64
		want   int
	}{
		{"idle item", 0, 0, nil, 0},
		{"one cart", 1, 0, nil, 30},
		{"cart component caps at 60", 5, 0, nil, 60},
		{"order component caps at 30", 0, 9, nil, 30},
		{"no depletion without tracking", 9, 9, nil, 90},
		{"depleted stock adds up to 40", 0, 0, stock(0), 40},
		{"full small stock has no depletion", 0, 0, stock(20), 0},
		{"everything maxed clamps at 100", 9, 9, stock(0), 100},
		{"half-depleted below floor", 0, 0, stock(10), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := calc(tt.carts, tt.orders, 0)
			p, err := c.For(context.Background(), "item-1", tt.stock)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Score)
		})
	}
}

func TestScoreBoundsAndMonotonicity(t *testing.T) {
	prev := -1
	for carts := 0; carts <= 6; carts++ {
		c, _, _ := calc(carts, 1, 0)
		p, err := c.For(context.Background(), "item-1", stock(8))
		require.NoError(t, err)

		assert.GreaterOrEqual(t, p.Score, 0)
		assert.LessOrEqual(t, p.Score, 100)
		assert.GreaterOrEqual(t, p.Score, prev, "score must not drop as cart interest grows")
		prev = p.Score
	}
}

func TestTiers(t *testing.T) {
	assert.Equal(t, TierNone, tierFor(0))
	assert.Equal(t, TierNone, tierFor(25))
	assert.Equal(t, TierModerate, tierFor(26))
	assert.Equal(t, TierModerate, tierFor(50))
	assert.Equal(t, TierHigh, tierFor(51))
	assert.Equal(t, TierHigh, tierFor(75))
	assert.Equal(t, TierCritical, tierFor(76))
	assert.Equal(t, TierCritical, tierFor(100))
}

func TestMessageLadder(t *testing.T) {
	t.Run("critical with cart competition wins", func(t *testing.T) {
		c, _, _ := calc(4, 3, 4)
		p, err := c.For(context.Background(), "item-1", stock(1))
		require.NoError(t, err)
		assert.Equal(t, TierCritical, p.Tier)
		assert.Contains(t, p.Message, "4 others")
	})

	t.Run("low stock without critical pressure", func(t *testing.T) {
		c, _, _ := calc(1, 0, 1)
		p, err := c.For(context.Background(), "item-1", stock(3))
		require.NoError(t, err)
		assert.Contains(t, p.Message, "Only 3 left")
	})

	t.Run("velocity message when stock is fine", func(t *testing.T) {
		c, _, _ := calc(1, 3, 1)
		p, err := c.For(context.Background(), "item-1", nil)
		require.NoError(t, err)
		assert.Contains(t, p.Message, "Trending")
	})

	t.Run("quiet item has no message", func(t *testing.T) {
		c, _, _ := calc(0, 0, 0)
		p, err := c.For(context.Background(), "item-1", nil)
		require.NoError(t, err)
		assert.Empty(t, p.Message)
	})
}

func TestFor_UsesA24HourWindow(t *testing.T) {
	c, fo, mock := calc(0, 0, 0)
	_, err := c.For(context.Background(), "item-1", nil)
	require.NoError(t, err)
	assert.Equal(t, mock.Now().Add(-24*time.Hour), fo.gotSince)
}

func TestFor_PropagatesOrderStoreFailure(t *testing.T) {
	c, fo, _ := calc(0, 0, 0)
	fo.err = errors.New("timeout")
	_, err := c.For(context.Background(), "item-1", nil)
	require.Error(t, err)
}
