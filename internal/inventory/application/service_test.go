package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-platform/goods-service/internal/inventory/domain"
)

// memRepo is a mutex-serialized in-memory InventoryRepository. It runs the
// same domain arithmetic as the postgres repository, so the coordinator can
// be exercised without a database.
type memRepo struct {
	mu         sync.Mutex
	products   map[int64]string
	warehouses map[int64]string
	stocks     map[[2]int64]int64
	reserved   map[int64]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		products:   map[int64]string{},
		warehouses: map[int64]string{},
		stocks:     map[[2]int64]int64{},
		reserved:   map[int64]int64{},
	}
}

func (m *memRepo) totalLocked(productID int64) int64 {
	var total int64
	for key, qty := range m.stocks {
		if key[0] == productID {
			total += qty
		}
	}
	return total
}

func (m *memRepo) AdjustStock(_ context.Context, productID, warehouseID, delta int64) (*domain.StockAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	productName, ok := m.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	warehouseName, ok := m.warehouses[warehouseID]
	if !ok {
		return nil, domain.ErrWarehouseNotFound
	}

	key := [2]int64{productID, warehouseID}
	qty, exists := m.stocks[key]
	inv := domain.ProductInventory{ProductID: productID, Total: m.totalLocked(productID), Reserved: m.reserved[productID]}
	entry := domain.StockEntry{ProductID: productID, WarehouseID: warehouseID, Quantity: qty}
	if err := inv.ApplyStockDelta(&entry, exists, delta); err != nil {
		return nil, err
	}
	m.stocks[key] = entry.Quantity

	return &domain.StockAdjustment{
		ProductID:     productID,
		ProductName:   productName,
		WarehouseID:   warehouseID,
		WarehouseName: warehouseName,
		Quantity:      entry.Quantity,
		TotalQuantity: inv.Total,
	}, nil
}

func (m *memRepo) AdjustReservation(_ context.Context, productID, delta int64) (*domain.ReservationAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	productName, ok := m.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	inv := domain.ProductInventory{ProductID: productID, Total: m.totalLocked(productID), Reserved: m.reserved[productID]}
	if err := inv.ApplyReservationDelta(delta); err != nil {
		return nil, err
	}
	m.reserved[productID] = inv.Reserved

	return &domain.ReservationAdjustment{
		ProductID:   productID,
		ProductName: productName,
		Reserved:    inv.Reserved,
		Total:       inv.Total,
		Available:   inv.Available(),
	}, nil
}

func (m *memRepo) ProductCounters(_ context.Context, productID int64) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[productID]; !ok {
		return 0, 0, domain.ErrProductNotFound
	}
	return m.totalLocked(productID), m.reserved[productID], nil
}

func newTestService(repo InventoryRepository) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo)
}

func TestAdjustWarehouseStockFirstStockIn(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	svc := newTestService(repo)

	res, err := svc.AdjustWarehouseStock(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Quantity)
	assert.Equal(t, int64(10), res.TotalQuantity)
	assert.Equal(t, "dell r740", res.ProductName)
	assert.Equal(t, "msk-01", res.WarehouseName)
}

func TestReserveWithinAvailable(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	repo.stocks[[2]int64{1, 1}] = 10
	svc := newTestService(repo)

	res, err := svc.ReserveOrRelease(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Reserved)
	assert.Equal(t, int64(10), res.Total)
	assert.Equal(t, int64(3), res.Available)
}

func TestReserveBeyondAvailableLeavesStateUntouched(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	repo.stocks[[2]int64{1, 1}] = 10
	repo.reserved[1] = 7
	svc := newTestService(repo)

	_, err := svc.ReserveOrRelease(context.Background(), 1, 5)
	require.ErrorIs(t, err, domain.ErrInsufficientAvailable)
	assert.Equal(t, int64(7), repo.reserved[1])
}

func TestStockRemovalCannotBreakReservation(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	repo.stocks[[2]int64{1, 1}] = 10
	repo.reserved[1] = 7
	svc := newTestService(repo)

	_, err := svc.AdjustWarehouseStock(context.Background(), 1, 1, -5)
	require.ErrorIs(t, err, domain.ErrReservationInvariant)
	assert.Equal(t, int64(10), repo.stocks[[2]int64{1, 1}])
}

func TestRemovalFromUnstockedWarehouse(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	repo.warehouses[2] = "spb-02"
	repo.stocks[[2]int64{1, 1}] = 10
	svc := newTestService(repo)

	_, err := svc.AdjustWarehouseStock(context.Background(), 1, 2, -1)
	require.ErrorIs(t, err, domain.ErrStockNotFound)
}

func TestUnknownProductAndWarehouse(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.AdjustWarehouseStock(ctx, 99, 1, 5)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.AdjustWarehouseStock(ctx, 1, 99, 5)
	require.ErrorIs(t, err, domain.ErrWarehouseNotFound)

	_, err = svc.ReserveOrRelease(ctx, 99, 1)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestReleaseBelowZero(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.stocks[[2]int64{1, 1}] = 10
	repo.reserved[1] = 2
	svc := newTestService(repo)

	_, err := svc.ReserveOrRelease(context.Background(), 1, -3)
	require.ErrorIs(t, err, domain.ErrNegativeReservation)
	assert.Equal(t, int64(2), repo.reserved[1])
}

func TestFailedAdjustmentIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	repo.stocks[[2]int64{1, 1}] = 10
	repo.reserved[1] = 4
	svc := newTestService(repo)
	ctx := context.Background()

	before := struct {
		stock    int64
		reserved int64
	}{repo.stocks[[2]int64{1, 1}], repo.reserved[1]}

	_, err := svc.ReserveOrRelease(ctx, 1, 100)
	require.Error(t, err)
	_, err = svc.AdjustWarehouseStock(ctx, 1, 1, -100)
	require.Error(t, err)

	assert.Equal(t, before.stock, repo.stocks[[2]int64{1, 1}])
	assert.Equal(t, before.reserved, repo.reserved[1])
}

func TestConcurrentDecrementsDrainToZero(t *testing.T) {
	const n = 64

	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	repo.stocks[[2]int64{1, 1}] = n
	svc := newTestService(repo)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.AdjustWarehouseStock(context.Background(), 1, 1, -1)
			if err != nil {
				errs <- err
				return
			}
			if res.Quantity < 0 || res.TotalQuantity < 0 {
				errs <- domain.ErrInsufficientStock
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent decrement failed: %v", err)
	}
	assert.Equal(t, int64(0), repo.stocks[[2]int64{1, 1}])
}

func TestConsistencyAssertionSurfacesInternalError(t *testing.T) {
	repo := newMemRepo()
	repo.products[1] = "dell r740"
	repo.warehouses[1] = "msk-01"
	repo.stocks[[2]int64{1, 1}] = 10
	svc := newTestService(&corruptingRepo{memRepo: repo})

	_, err := svc.ReserveOrRelease(context.Background(), 1, 5)
	require.ErrorIs(t, err, domain.ErrConsistency)
}

// corruptingRepo simulates a concurrency-control defect: after a successful
// reservation it reports a reserved count above the total.
type corruptingRepo struct {
	*memRepo
}

func (c *corruptingRepo) ProductCounters(ctx context.Context, productID int64) (int64, int64, error) {
	total, _, err := c.memRepo.ProductCounters(ctx, productID)
	return total, total + 1, err
}
