package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
)

const (
	productNotFoundMsg = "product not found"
	uniqueViolation    = "23505"
)

// Repo implements the catalog repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const productColumns = `
	id, name, sku, price, cost, stock_quantity, low_stock_threshold, is_active,
	supplier_id, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Cost, &p.StockQuantity, &p.LowStockThreshold,
		&p.IsActive, &p.SupplierID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProduct inserts a product. Stock starts at zero and only the ledger raises it.
func (r *Repo) CreateProduct(ctx context.Context, params CreateProductParams) (Product, error) {
	query := `
		INSERT INTO products (name, sku, price, cost, low_stock_threshold, is_active, supplier_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns

	product, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx, query,
		params.Name, params.SKU, params.Price, params.Cost, params.LowStockThreshold, params.IsActive, params.SupplierID))
	if err != nil {
		return Product{}, mapWriteError("create product", err)
	}
	return product, nil
}

// UpdateProduct patches catalog fields. Stock is not among them.
func (r *Repo) UpdateProduct(ctx context.Context, params UpdateProductParams) (Product, error) {
	query := `
		UPDATE products
		SET name = COALESCE($2, name),
			sku = COALESCE($3, sku),
			price = COALESCE($4, price),
			cost = COALESCE($5, cost),
			low_stock_threshold = COALESCE($6, low_stock_threshold),
			is_active = COALESCE($7, is_active),
			supplier_id = COALESCE($8, supplier_id),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	product, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx, query,
		params.ID, params.Name, params.SKU, params.Price, params.Cost, params.LowStockThreshold,
		params.IsActive, params.SupplierID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMsg)
		}
		return Product{}, mapWriteError("update product", err)
	}
	return product, nil
}

// GetProductByID retrieves a product by ID.
func (r *Repo) GetProductByID(ctx context.Context, id uuid.UUID) (Product, error) {
	product, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMsg)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ListProducts lists products with filters and pagination.
func (r *Repo) ListProducts(ctx context.Context, params ListProductsParams) ([]Product, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.ActiveOnly {
		whereClauses = append(whereClauses, "is_active")
	}
	if params.LowStock {
		whereClauses = append(whereClauses, "stock_quantity <= low_stock_threshold")
	}

	whereClause := strings.Join(whereClauses, " AND ")
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM products WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	sortColumn := "name"
	switch params.SortBy {
	case "price":
		sortColumn = "price"
	case "stock":
		sortColumn = "stock_quantity"
	case "createdAt":
		sortColumn = "created_at"
	}
	sortOrder := "ASC"
	if strings.EqualFold(params.SortOrder, "desc") {
		sortOrder = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan products: %w", err)
	}
	return products, total, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict("a product with this sku already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}
