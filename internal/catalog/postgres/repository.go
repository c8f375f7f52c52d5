package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warehouse-platform/goods-service/internal/catalog/domain"
)

const pgUniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const productColumns = `
	p.id, p.name, p.category_id, COALESCE(c.name, ''), COALESCE(p.sku, ''),
	p.base_price, p.total_quantity, COALESCE(rs.reserved_quantity, 0),
	p.is_active, COALESCE(p.path_to_photo, ''), p.created_at, p.updated_at`

const productJoins = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN reservation_states rs ON rs.product_id = p.id`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.SKU,
		&p.BasePrice, &p.TotalQuantity, &p.Reserved,
		&p.IsActive, &p.PathToPhoto, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListProducts(ctx context.Context, activeOnly bool, skip, limit int) ([]domain.Product, error) {
	query := `SELECT` + productColumns + productJoins + `
		WHERE ($1 = false OR p.is_active)
		ORDER BY p.id
		OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, query, activeOnly, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *Repository) GetProduct(ctx context.Context, id int64, activeOnly bool) (*domain.Product, error) {
	query := `SELECT` + productColumns + productJoins + `
		WHERE p.id = $1 AND ($2 = false OR p.is_active)`
	return scanProduct(r.pool.QueryRow(ctx, query, id, activeOnly))
}

func (r *Repository) SearchProductByName(ctx context.Context, name string) (*domain.Product, error) {
	query := `SELECT` + productColumns + productJoins + `
		WHERE lower(p.name) LIKE '%' || lower($1) || '%' AND p.is_active
		ORDER BY p.id
		LIMIT 1`
	return scanProduct(r.pool.QueryRow(ctx, query, name))
}

func (r *Repository) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, kind, COALESCE(description, ''), created_at
		FROM categories
		WHERE lower(name) = lower($1)`, name).
		Scan(&c.ID, &c.Name, &c.Kind, &c.Description, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	query := `SELECT` + productColumns + productJoins + `
		WHERE p.category_id = $1 AND p.is_active
		ORDER BY p.id`
	rows, err := r.pool.Query(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectProducts(rows)
}

// GetAttributes loads the kind-specific attribute row for a product. The
// kind comes from the category tag, never from the category name.
func (r *Repository) GetAttributes(ctx context.Context, productID int64, kind domain.CategoryKind) (*domain.Attributes, error) {
	attrs := domain.Attributes{Kind: kind}
	switch kind {
	case domain.KindServer:
		var sa domain.ServerAttributes
		err := r.pool.QueryRow(ctx, `
			SELECT ram_gb, cpu_model, cpu_cores, hdd_size_gb, ssd_size_gb, form_factor, manufacturer
			FROM product_attributes_server WHERE product_id=$1`, productID).
			Scan(&sa.RAMGB, &sa.CPUModel, &sa.CPUCores, &sa.HDDSizeGB, &sa.SSDSizeGB, &sa.FormFactor, &sa.Manufacturer)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if err == nil {
			attrs.Server = &sa
		}
	case domain.KindThermocup:
		var ta domain.ThermocupAttributes
		err := r.pool.QueryRow(ctx, `
			SELECT volume_ml, color, brand, model, is_hermetic, material
			FROM product_attributes_thermocup WHERE product_id=$1`, productID).
			Scan(&ta.VolumeML, &ta.Color, &ta.Brand, &ta.Model, &ta.IsHermetic, &ta.Material)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if err == nil {
			attrs.Thermocup = &ta
		}
	}
	return &attrs, nil
}

// CreateProduct inserts the product, its zeroed reservation state, its
// kind-specific attributes and, when requested, its opening stock entry, all
// in one transaction. total_quantity is written from the stock entry, never
// accepted as an independent input.
func (r *Repository) CreateProduct(ctx context.Context, in domain.NewProductInput) (*domain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var kind domain.CategoryKind
	err = tx.QueryRow(ctx, `SELECT kind FROM categories WHERE id=$1`, in.CategoryID).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}

	if in.Attributes != nil {
		in.Attributes.Kind = kind
		if err := in.Attributes.Validate(); err != nil {
			return nil, err
		}
	}

	var productID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO products (name, category_id, sku, base_price, total_quantity, is_active, path_to_photo)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,true,NULLIF($6,''))
		RETURNING id`,
		in.Name, in.CategoryID, in.SKU, in.BasePrice, in.InitialQuantity, in.PathToPhoto).Scan(&productID)
	if err != nil {
		return nil, mapUniqueErr(err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO reservation_states (product_id, reserved_quantity, updated_at) VALUES ($1, 0, now())`, productID)
	if err != nil {
		return nil, err
	}

	if in.Attributes != nil {
		if err := insertAttributes(ctx, tx, productID, in.Attributes); err != nil {
			return nil, err
		}
	}

	if in.InitialQuantity > 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM warehouses WHERE id=$1)`, in.WarehouseID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrWarehouseNotFound
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO product_stocks (product_id, warehouse_id, quantity, created_at, updated_at)
			VALUES ($1,$2,$3,now(),now())`,
			productID, in.WarehouseID, in.InitialQuantity)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetProduct(ctx, productID, false)
}

func insertAttributes(ctx context.Context, tx pgx.Tx, productID int64, attrs *domain.Attributes) error {
	switch attrs.Kind {
	case domain.KindServer:
		sa := attrs.Server
		_, err := tx.Exec(ctx, `
			INSERT INTO product_attributes_server
				(product_id, ram_gb, cpu_model, cpu_cores, hdd_size_gb, ssd_size_gb, form_factor, manufacturer)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			productID, sa.RAMGB, sa.CPUModel, sa.CPUCores, sa.HDDSizeGB, sa.SSDSizeGB, sa.FormFactor, sa.Manufacturer)
		return err
	case domain.KindThermocup:
		ta := attrs.Thermocup
		_, err := tx.Exec(ctx, `
			INSERT INTO product_attributes_thermocup
				(product_id, volume_ml, color, brand, model, is_hermetic, material)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			productID, ta.VolumeML, ta.Color, ta.Brand, ta.Model, ta.IsHermetic, ta.Material)
		return err
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, id int64, patch domain.UpdateProductInput) (*domain.Product, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE products SET
			name          = COALESCE($2, name),
			category_id   = COALESCE($3, category_id),
			base_price    = COALESCE($4, base_price),
			sku           = COALESCE($5, sku),
			is_active     = COALESCE($6, is_active),
			path_to_photo = COALESCE($7, path_to_photo),
			updated_at    = now()
		WHERE id = $1`,
		id, patch.Name, patch.CategoryID, patch.BasePrice, patch.SKU, patch.IsActive, patch.PathToPhoto)
	if err != nil {
		return nil, mapUniqueErr(err)
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ErrProductNotFound
	}
	return r.GetProduct(ctx, id, false)
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func mapUniqueErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrSKUConflict
	}
	return err
}
