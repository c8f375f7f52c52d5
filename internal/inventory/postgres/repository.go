package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warehouse-platform/goods-service/internal/inventory/domain"
	"github.com/warehouse-platform/goods-service/pkg/tracing"
)

// pgLockNotAvailable is raised when SET LOCAL lock_timeout expires while
// waiting on the product row lock.
const pgLockNotAvailable = "55P03"

type Repository struct {
	log         *slog.Logger
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{log: log, pool: pool, lockTimeout: lockTimeout}
}

// AdjustStock applies a stock delta for (productID, warehouseID) in one
// transaction. The product row is locked first, so adjustments and
// reservations for the same product serialize; the aggregate total is
// recomputed under that lock and written back to products.total_quantity.
func (r *Repository) AdjustStock(ctx context.Context, productID, warehouseID, delta int64) (*domain.StockAdjustment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	inv, productName, err := r.lockProduct(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	var warehouseName string
	err = tx.QueryRow(ctx, `SELECT name FROM warehouses WHERE id=$1`, warehouseID).Scan(&warehouseName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWarehouseNotFound
	}
	if err != nil {
		return nil, mapLockErr(err)
	}

	entry := domain.StockEntry{ProductID: productID, WarehouseID: warehouseID}
	entryExists := true
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM product_stocks
		WHERE product_id=$1 AND warehouse_id=$2
		FOR UPDATE`, productID, warehouseID).Scan(&entry.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		entryExists = false
	} else if err != nil {
		return nil, mapLockErr(err)
	}

	if err := inv.ApplyStockDelta(&entry, entryExists, delta); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO product_stocks (product_id, warehouse_id, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,now(),now())
		ON CONFLICT (product_id, warehouse_id) DO UPDATE SET quantity=$3, updated_at=now()`,
		productID, warehouseID, entry.Quantity)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `UPDATE products SET total_quantity=$2, updated_at=now() WHERE id=$1`,
		productID, inv.Total)
	if err != nil {
		return nil, err
	}

	event := domain.StockAdjusted{
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Delta:         delta,
		Quantity:      entry.Quantity,
		TotalQuantity: inv.Total,
	}
	if err := insertOutbox(ctx, tx, productID, "StockAdjusted", event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.StockAdjustment{
		ProductID:     productID,
		ProductName:   productName,
		WarehouseID:   warehouseID,
		WarehouseName: warehouseName,
		Quantity:      entry.Quantity,
		TotalQuantity: inv.Total,
	}, nil
}

// AdjustReservation applies a reservation delta for productID in one
// transaction under the same product row lock as AdjustStock. StockEntry
// rows are never touched: a reservation is a promise against the product,
// not a warehouse.
func (r *Repository) AdjustReservation(ctx context.Context, productID, delta int64) (*domain.ReservationAdjustment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	inv, productName, err := r.lockProduct(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	if err := inv.ApplyReservationDelta(delta); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reservation_states (product_id, reserved_quantity, updated_at)
		VALUES ($1,$2,now())
		ON CONFLICT (product_id) DO UPDATE SET reserved_quantity=$2, updated_at=now()`,
		productID, inv.Reserved)
	if err != nil {
		return nil, err
	}

	event := domain.ReservationAdjusted{
		ProductID: productID,
		Delta:     delta,
		Reserved:  inv.Reserved,
		Available: inv.Available(),
	}
	if err := insertOutbox(ctx, tx, productID, "ReservationAdjusted", event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.ReservationAdjustment{
		ProductID:   productID,
		ProductName: productName,
		Reserved:    inv.Reserved,
		Total:       inv.Total,
		Available:   inv.Available(),
	}, nil
}

func (r *Repository) ProductCounters(ctx context.Context, productID int64) (int64, int64, error) {
	var total, reserved int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(ps.quantity), 0),
		       COALESCE(MAX(rs.reserved_quantity), 0)
		FROM products p
		LEFT JOIN product_stocks ps ON ps.product_id = p.id
		LEFT JOIN reservation_states rs ON rs.product_id = p.id
		WHERE p.id = $1
		GROUP BY p.id`, productID).Scan(&total, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, domain.ErrProductNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	return total, reserved, nil
}

// lockProduct takes the exclusive per-product lock and reads the counter
// pair under it. Every adjustment goes through here, which is what
// serializes concurrent operations on the same product.
func (r *Repository) lockProduct(ctx context.Context, tx pgx.Tx, productID int64) (*domain.ProductInventory, string, error) {
	_, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL lock_timeout = '%dms'`, r.lockTimeout.Milliseconds()))
	if err != nil {
		return nil, "", err
	}

	var productName string
	err = tx.QueryRow(ctx, `SELECT name FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&productName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", domain.ErrProductNotFound
	}
	if err != nil {
		return nil, "", mapLockErr(err)
	}

	inv := domain.ProductInventory{ProductID: productID}
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM product_stocks WHERE product_id=$1`,
		productID).Scan(&inv.Total)
	if err != nil {
		return nil, "", err
	}

	err = tx.QueryRow(ctx, `
		SELECT reserved_quantity FROM reservation_states WHERE product_id=$1`,
		productID).Scan(&inv.Reserved)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", err
	}

	return &inv, productName, nil
}

// insertOutbox persists the event in the adjustment's own transaction,
// carrying the caller's trace context so the relay can publish it with the
// originating traceparent.
func insertOutbox(ctx context.Context, tx pgx.Tx, productID int64, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	headers := tracing.HeaderCarrier(ctx)
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ('inventory', $1, $2, $3, $4, $5, 'pending')`,
		fmt.Sprintf("%d", productID), eventType, payload, headers, headers[tracing.TraceparentHeader])
	return err
}

func mapLockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return domain.ErrContention
	}
	return err
}
