package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warehouse-platform/goods-service/internal/inventory/domain"
)

// Service is the inventory coordinator. It owns the two adjustment
// operations and the cross-entity invariant linking per-warehouse stock and
// per-product reservations. Repeating a call repeats its cumulative effect;
// callers needing at-most-once must deduplicate themselves.
type Service struct {
	log  *slog.Logger
	repo InventoryRepository
}

func NewService(log *slog.Logger, repo InventoryRepository) *Service {
	return &Service{log: log, repo: repo}
}

// ReserveOrRelease adjusts the product's reserved quantity by change
// (positive to reserve, negative to release).
func (s *Service) ReserveOrRelease(ctx context.Context, productID, change int64) (*domain.ReservationAdjustment, error) {
	res, err := s.repo.AdjustReservation(ctx, productID, change)
	if err != nil {
		return nil, err
	}
	if err := s.assertConsistent(ctx, productID, change); err != nil {
		return nil, err
	}
	s.log.Info("reservation adjusted",
		"product_id", productID, "change", change,
		"reserved", res.Reserved, "available", res.Available)
	return res, nil
}

// AdjustWarehouseStock adjusts the stock of productID at warehouseID by
// change. The aggregate total is recomputed in the same transaction and may
// never drop below the reserved quantity.
func (s *Service) AdjustWarehouseStock(ctx context.Context, productID, warehouseID, change int64) (*domain.StockAdjustment, error) {
	res, err := s.repo.AdjustStock(ctx, productID, warehouseID, change)
	if err != nil {
		return nil, err
	}
	if err := s.assertConsistent(ctx, productID, change); err != nil {
		return nil, err
	}
	s.log.Info("stock adjusted",
		"product_id", productID, "warehouse_id", warehouseID, "change", change,
		"quantity", res.Quantity, "total", res.TotalQuantity)
	return res, nil
}

// assertConsistent re-reads the committed counters and verifies
// reserved <= total. A violation here means the locking discipline failed;
// the write has already committed, so all we can do is log everything and
// surface an internal error.
func (s *Service) assertConsistent(ctx context.Context, productID, change int64) error {
	total, reserved, err := s.repo.ProductCounters(ctx, productID)
	if err != nil {
		return fmt.Errorf("consistency re-read: %w", err)
	}
	if reserved > total {
		s.log.Error("reserved exceeds total after commit",
			"product_id", productID, "change", change,
			"total", total, "reserved", reserved)
		return domain.ErrConsistency
	}
	return nil
}
