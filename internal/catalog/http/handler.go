package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/warehouse-platform/goods-service/internal/catalog/domain"
)

// Catalog is the slice of the catalog repository the handler serves.
type Catalog interface {
	ListProducts(ctx context.Context, activeOnly bool, skip, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64, activeOnly bool) (*domain.Product, error)
	SearchProductByName(ctx context.Context, name string) (*domain.Product, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error)
	GetAttributes(ctx context.Context, productID int64, kind domain.CategoryKind) (*domain.Attributes, error)
	CreateProduct(ctx context.Context, in domain.NewProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch domain.UpdateProductInput) (*domain.Product, error)
}

type Handler struct {
	log    *slog.Logger
	repo   Catalog
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, repo Catalog) *Handler {
	return &Handler{
		log:    log,
		repo:   repo,
		tracer: otel.Tracer("catalog-http"),
	}
}

// Register mounts the catalog endpoints onto the shared /products router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Get("/admin/", h.listProductsAdmin)
	r.Get("/{id}", h.getProduct)
	r.Get("/admin/{id}", h.getProductAdmin)
	r.Get("/search/{name}", h.searchProduct)
	r.Get("/category/{name}", h.productsByCategory)
	r.Post("/", h.createProduct)
	r.Put("/{id}", h.updateProduct)
}

// clientProduct is the limited view served to storefront clients.
type clientProduct struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku,omitempty"`
	BasePrice     float64 `json:"base_price"`
	TotalQuantity int64   `json:"total_quantity"`
	CategoryID    int64   `json:"category_id"`
}

// adminProduct adds lifecycle fields and the restock alert.
type adminProduct struct {
	clientProduct
	Reserved      int64     `json:"num_reserved_goods"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PathToPhoto   string    `json:"path_to_photo,omitempty"`
	LowStockAlert bool      `json:"low_stock_alert"`
}

func toClient(p domain.Product) clientProduct {
	return clientProduct{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		BasePrice:     p.BasePrice,
		TotalQuantity: p.TotalQuantity,
		CategoryID:    p.CategoryID,
	}
}

func toAdmin(p domain.Product) adminProduct {
	return adminProduct{
		clientProduct: toClient(p),
		Reserved:      p.Reserved,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		PathToPhoto:   p.PathToPhoto,
		LowStockAlert: p.LowStock(),
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	skip, limit := paging(r)
	products, err := h.repo.ListProducts(ctx, true, skip, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]clientProduct, 0, len(products))
	for _, p := range products {
		out = append(out, toClient(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listProductsAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProductsAdmin")
	defer span.End()

	skip, limit := paging(r)
	products, err := h.repo.ListProducts(ctx, false, skip, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]adminProduct, 0, len(products))
	for _, p := range products {
		out = append(out, toAdmin(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, err := h.repo.GetProduct(ctx, id, true)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product":       toClient(*p),
		"category_name": p.CategoryName,
	})
}

func (h *Handler) getProductAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProductAdmin")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, err := h.repo.GetProduct(ctx, id, false)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := map[string]any{
		"product":       toAdmin(*p),
		"category_name": p.CategoryName,
	}

	// A category without an attribute table is normal; anything else is
	// an infrastructure failure and must not be served as a bare product.
	category, err := h.repo.GetCategoryByName(ctx, p.CategoryName)
	switch {
	case err == nil:
		attrs, err := h.repo.GetAttributes(ctx, p.ID, category.Kind)
		if err != nil {
			h.writeError(w, err)
			return
		}
		switch {
		case attrs.Server != nil:
			resp["server_attributes"] = attrs.Server
		case attrs.Thermocup != nil:
			resp["thermocup_attributes"] = attrs.Thermocup
		}
	case errors.Is(err, domain.ErrCategoryNotFound):
		// plain product, no attributes to attach
	default:
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) searchProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SearchProduct")
	defer span.End()

	p, err := h.repo.SearchProductByName(ctx, chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": toClient(*p)})
}

func (h *Handler) productsByCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ProductsByCategory")
	defer span.End()

	category, err := h.repo.GetCategoryByName(ctx, chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	products, err := h.repo.ListProductsByCategory(ctx, category.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]clientProduct, 0, len(products))
	for _, p := range products {
		out = append(out, toClient(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":    category.Name,
		"products":    out,
		"total_count": len(out),
	})
}

type createProductReq struct {
	Name            string                      `json:"name"`
	CategoryID      int64                       `json:"category_id"`
	SKU             string                      `json:"sku"`
	BasePrice       float64                     `json:"base_price"`
	PathToPhoto     string                      `json:"path_to_photo"`
	InitialQuantity int64                       `json:"initial_quantity"`
	WarehouseID     int64                       `json:"warehouse_id"`
	Server          *domain.ServerAttributes    `json:"server_attributes"`
	Thermocup       *domain.ThermocupAttributes `json:"thermocup_attributes"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body")
		return
	}

	in := domain.NewProductInput{
		Name:            req.Name,
		CategoryID:      req.CategoryID,
		SKU:             req.SKU,
		BasePrice:       req.BasePrice,
		PathToPhoto:     req.PathToPhoto,
		InitialQuantity: req.InitialQuantity,
		WarehouseID:     req.WarehouseID,
	}
	if req.Server != nil || req.Thermocup != nil {
		in.Attributes = &domain.Attributes{Server: req.Server, Thermocup: req.Thermocup}
	}

	p, err := h.repo.CreateProduct(ctx, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdmin(*p))
}

type updateProductReq struct {
	Name        *string  `json:"name"`
	CategoryID  *int64   `json:"category_id"`
	BasePrice   *float64 `json:"base_price"`
	SKU         *string  `json:"sku"`
	IsActive    *bool    `json:"is_active"`
	PathToPhoto *string  `json:"path_to_photo"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateProduct")
	defer span.End()

	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req updateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid body")
		return
	}

	p, err := h.repo.UpdateProduct(ctx, id, domain.UpdateProductInput{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		BasePrice:   req.BasePrice,
		SKU:         req.SKU,
		IsActive:    req.IsActive,
		PathToPhoto: req.PathToPhoto,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdmin(*p))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrWarehouseNotFound):
		writeErrorMsg(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyProductName),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrMissingWarehouse),
		errors.Is(err, domain.ErrAttributeKind):
		writeErrorMsg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSKUConflict):
		writeErrorMsg(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("catalog request failed", "err", err)
		writeErrorMsg(w, http.StatusInternalServerError, "internal error")
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func paging(r *http.Request) (skip, limit int) {
	skip, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
