package application

import (
	"context"

	"github.com/warehouse-platform/goods-service/internal/inventory/domain"
)

// InventoryRepository executes one adjustment as a single transaction: it
// serializes on the product, validates existence, applies the domain
// arithmetic, persists the result together with an outbox event, and commits.
// Any error means nothing was written.
type InventoryRepository interface {
	AdjustStock(ctx context.Context, productID, warehouseID, delta int64) (*domain.StockAdjustment, error)
	AdjustReservation(ctx context.Context, productID, delta int64) (*domain.ReservationAdjustment, error)

	// ProductCounters reads the committed (total, reserved) pair outside of
	// any adjustment, for the coordinator's consistency assertion.
	ProductCounters(ctx context.Context, productID int64) (total, reserved int64, err error)
}
