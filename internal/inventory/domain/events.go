package domain

// Events written to the transactional outbox on every successful adjustment.

type StockAdjusted struct {
	ProductID     int64 `json:"product_id"`
	WarehouseID   int64 `json:"warehouse_id"`
	Delta         int64 `json:"delta"`
	Quantity      int64 `json:"quantity"`
	TotalQuantity int64 `json:"total_quantity"`
}

type ReservationAdjusted struct {
	ProductID int64 `json:"product_id"`
	Delta     int64 `json:"delta"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

// Events consumed from the orders topic.

type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type OrderPlaced struct {
	OrderID string      `json:"order_id"`
	Lines   []OrderLine `json:"lines"`
}

type OrderCanceled struct {
	OrderID string      `json:"order_id"`
	Lines   []OrderLine `json:"lines"`
}
