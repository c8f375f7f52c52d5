package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/warehouse-platform/goods-service/internal/inventory/application"
	"github.com/warehouse-platform/goods-service/internal/inventory/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("inventory-http"),
	}
}

// Register mounts the adjustment endpoints onto the shared /products router.
func (h *Handler) Register(r chi.Router) {
	r.Patch("/{id}/reserved", h.adjustReserved)
	r.Patch("/{id}/stock", h.adjustStock)
}

type adjustReservedReq struct {
	QuantityChange int64 `json:"quantity_change"`
}

type reservedResp struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	ReservedQuantity int64  `json:"reserved_quantity"`
	TotalQuantity    int64  `json:"total_quantity"`
	AvailableQty     int64  `json:"available_quantity"`
}

type adjustStockReq struct {
	WarehouseID    int64 `json:"warehouse_id"`
	QuantityChange int64 `json:"quantity_change"`
}

type stockResp struct {
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name"`
	WarehouseID     int64  `json:"warehouse_id"`
	WarehouseName   string `json:"warehouse_name"`
	CurrentQuantity int64  `json:"current_quantity"`
	TotalAll        int64  `json:"total_quantity_all_warehouses"`
}

func (h *Handler) adjustReserved(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdjustReserved")
	defer span.End()

	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req adjustReservedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	res, err := h.service.ReserveOrRelease(ctx, productID, req.QuantityChange)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reservedResp{
		ID:               res.ProductID,
		Name:             res.ProductName,
		ReservedQuantity: res.Reserved,
		TotalQuantity:    res.Total,
		AvailableQty:     res.Available,
	})
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdjustStock")
	defer span.End()

	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req adjustStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	res, err := h.service.AdjustWarehouseStock(ctx, productID, req.WarehouseID, req.QuantityChange)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stockResp{
		ProductID:       res.ProductID,
		ProductName:     res.ProductName,
		WarehouseID:     res.WarehouseID,
		WarehouseName:   res.WarehouseName,
		CurrentQuantity: res.Quantity,
		TotalAll:        res.TotalQuantity,
	})
}

// writeDomainError maps the coordinator's error taxonomy onto HTTP statuses:
// missing entities 404, invariant violations 400, lock contention 409,
// everything else 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrWarehouseNotFound),
		errors.Is(err, domain.ErrStockNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrNegativeReservation),
		errors.Is(err, domain.ErrInsufficientAvailable),
		errors.Is(err, domain.ErrReservationInvariant):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrContention):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("inventory adjustment failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
