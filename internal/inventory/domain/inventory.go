package domain

import "time"

// StockEntry is the quantity of one product held at one warehouse.
// A zero quantity is a valid persisted state, not an absence: once a row
// exists it is never deleted.
type StockEntry struct {
	ProductID   int64
	WarehouseID int64
	Quantity    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductInventory is the counter pair for one product as read inside an
// adjustment transaction: the aggregate total across all warehouses and the
// location-agnostic reserved quantity.
type ProductInventory struct {
	ProductID int64
	Total     int64
	Reserved  int64
}

func (p *ProductInventory) Available() int64 {
	return p.Total - p.Reserved
}

// ApplyStockDelta validates and applies a stock adjustment against entry.
// entryExists reports whether a StockEntry row was found for the pair; rows
// are created only by a positive first adjustment, so a zero or negative
// delta against a missing row is rejected rather than treated as an
// adjustment from zero. On success both entry.Quantity and p.Total are
// updated; on error neither is touched.
func (p *ProductInventory) ApplyStockDelta(entry *StockEntry, entryExists bool, delta int64) error {
	if delta <= 0 && !entryExists {
		return ErrStockNotFound
	}
	newQuantity := entry.Quantity + delta
	if newQuantity < 0 {
		return ErrInsufficientStock
	}
	newTotal := p.Total + delta
	if newTotal < p.Reserved {
		return ErrReservationInvariant
	}
	entry.Quantity = newQuantity
	p.Total = newTotal
	return nil
}

// ApplyReservationDelta validates and applies a reservation adjustment.
// Releases (negative delta) only check the zero floor; increases must fit
// inside the currently available quantity.
func (p *ProductInventory) ApplyReservationDelta(delta int64) error {
	newReserved := p.Reserved + delta
	if newReserved < 0 {
		return ErrNegativeReservation
	}
	if delta > 0 && newReserved > p.Total {
		return ErrInsufficientAvailable
	}
	p.Reserved = newReserved
	return nil
}

// StockAdjustment is the result of a successful warehouse stock change.
type StockAdjustment struct {
	ProductID     int64
	ProductName   string
	WarehouseID   int64
	WarehouseName string
	Quantity      int64
	TotalQuantity int64
}

// ReservationAdjustment is the result of a successful reserve or release.
type ReservationAdjustment struct {
	ProductID   int64
	ProductName string
	Reserved    int64
	Total       int64
	Available   int64
}
