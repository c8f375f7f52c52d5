package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-platform/goods-service/internal/inventory/application"
	"github.com/warehouse-platform/goods-service/internal/inventory/domain"
)

// stubRepo returns a fixed result or error for every adjustment.
type stubRepo struct {
	stock    *domain.StockAdjustment
	reserve  *domain.ReservationAdjustment
	err      error
	total    int64
	reserved int64
}

func (s *stubRepo) AdjustStock(context.Context, int64, int64, int64) (*domain.StockAdjustment, error) {
	return s.stock, s.err
}

func (s *stubRepo) AdjustReservation(context.Context, int64, int64) (*domain.ReservationAdjustment, error) {
	return s.reserve, s.err
}

func (s *stubRepo) ProductCounters(context.Context, int64) (int64, int64, error) {
	return s.total, s.reserved, nil
}

func newTestHandler(repo application.InventoryRepository) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	products := chi.NewRouter()
	NewHandler(log, application.NewService(log, repo)).Register(products)
	r := chi.NewRouter()
	r.Mount("/products", products)
	return r
}

func TestAdjustReservedOK(t *testing.T) {
	repo := &stubRepo{
		reserve: &domain.ReservationAdjustment{
			ProductID: 1, ProductName: "dell r740",
			Reserved: 7, Total: 10, Available: 3,
		},
		total: 10, reserved: 7,
	}
	h := newTestHandler(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/products/1/reserved", strings.NewReader(`{"quantity_change": 7}`))
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"id": 1, "name": "dell r740",
		"reserved_quantity": 7, "total_quantity": 10, "available_quantity": 3
	}`, rec.Body.String())
}

func TestAdjustStockOK(t *testing.T) {
	repo := &stubRepo{
		stock: &domain.StockAdjustment{
			ProductID: 1, ProductName: "dell r740",
			WarehouseID: 2, WarehouseName: "spb-02",
			Quantity: 10, TotalQuantity: 25,
		},
		total: 25,
	}
	h := newTestHandler(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/products/1/stock", strings.NewReader(`{"warehouse_id": 2, "quantity_change": 10}`))
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"product_id": 1, "product_name": "dell r740",
		"warehouse_id": 2, "warehouse_name": "spb-02",
		"current_quantity": 10, "total_quantity_all_warehouses": 25
	}`, rec.Body.String())
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"product missing", domain.ErrProductNotFound, http.StatusNotFound},
		{"warehouse missing", domain.ErrWarehouseNotFound, http.StatusNotFound},
		{"stock entry missing", domain.ErrStockNotFound, http.StatusNotFound},
		{"insufficient stock", domain.ErrInsufficientStock, http.StatusBadRequest},
		{"negative reservation", domain.ErrNegativeReservation, http.StatusBadRequest},
		{"insufficient available", domain.ErrInsufficientAvailable, http.StatusBadRequest},
		{"reservation invariant", domain.ErrReservationInvariant, http.StatusBadRequest},
		{"lock contention", domain.ErrContention, http.StatusConflict},
		{"consistency breach", domain.ErrConsistency, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&stubRepo{err: tt.err})

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/products/1/stock", strings.NewReader(`{"warehouse_id": 1, "quantity_change": -1}`))
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(&stubRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/products/abc/reserved", strings.NewReader(`{"quantity_change": 1}`))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/products/1/stock", strings.NewReader(`not json`))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
