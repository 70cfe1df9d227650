package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rasamarket/fulfillment/internal/catalog/app"
	"github.com/rasamarket/fulfillment/internal/catalog/domain"
)

type MenuRepo struct {
	db *sql.DB
}

func NewMenuRepo(db *sql.DB) *MenuRepo {
	return &MenuRepo{db: db}
}

const getItemQuery = `
SELECT id, fulfiller_id, name, price_amount, available, track_stock, stock_count, created_at, updated_at
FROM menu_items
WHERE id = $1`

func (r *MenuRepo) GetItem(ctx context.Context, id string) (domain.MenuItem, error) {
	itemUUID, err := uuid.Parse(id)
	if err != nil {
		return domain.MenuItem{}, app.ErrInvalidInput
	}

	var (
		item       domain.MenuItem
		stockCount sql.NullInt64
	)
	err = r.db.QueryRowContext(ctx, getItemQuery, itemUUID).Scan(
		&item.ID,
		&item.FulfillerID,
		&item.Name,
		&item.Price,
		&item.Available,
		&item.TrackStock,
		&stockCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MenuItem{}, app.ErrNotFound
	}
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("get menu item %s: %w", id, err)
	}

	if stockCount.Valid {
		item.StockCount = &stockCount.Int64
	}
	return item, nil
}

const getFulfillerQuery = `
SELECT id, name, active, verified, accepting_orders, min_order_amount, prep_buffer_minutes, created_at, updated_at
FROM fulfillers
WHERE id = $1`

func (r *MenuRepo) GetFulfiller(ctx context.Context, id string) (domain.Fulfiller, error) {
	fulfillerUUID, err := uuid.Parse(id)
	if err != nil {
		return domain.Fulfiller{}, app.ErrInvalidInput
	}

	row := r.db.QueryRowContext(ctx, getFulfillerQuery, fulfillerUUID)
	return scanFulfiller(row)
}

const defaultFulfillerQuery = `
SELECT id, name, active, verified, accepting_orders, min_order_amount, prep_buffer_minutes, created_at, updated_at
FROM fulfillers
WHERE active AND verified
ORDER BY id
LIMIT 1`

func (r *MenuRepo) DefaultFulfiller(ctx context.Context) (domain.Fulfiller, error) {
	row := r.db.QueryRowContext(ctx, defaultFulfillerQuery)
	return scanFulfiller(row)
}

func scanFulfiller(row *sql.Row) (domain.Fulfiller, error) {
	var (
		f              domain.Fulfiller
		prepBufferMins int64
	)
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Active,
		&f.Verified,
		&f.AcceptingOrders,
		&f.MinOrderAmount,
		&prepBufferMins,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Fulfiller{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Fulfiller{}, fmt.Errorf("scan fulfiller: %w", err)
	}

	f.PrepBuffer = time.Duration(prepBufferMins) * time.Minute
	return f, nil
}
