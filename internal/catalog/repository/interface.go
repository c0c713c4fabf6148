package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog product. StockQuantity is a read-only projection of the
// inventory ledger; nothing in this package writes it.
type Product struct {
	ID                uuid.UUID
	Name              string
	SKU               string
	Price             decimal.Decimal
	Cost              decimal.Decimal
	StockQuantity     int
	LowStockThreshold int
	IsActive          bool
	SupplierID        *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateProductParams contains data for creating a product with zero stock.
type CreateProductParams struct {
	Name              string
	SKU               string
	Price             decimal.Decimal
	Cost              decimal.Decimal
	LowStockThreshold int
	IsActive          bool
	SupplierID        *uuid.UUID
}

// UpdateProductParams contains the patchable product fields. Nil means unchanged.
type UpdateProductParams struct {
	ID                uuid.UUID
	Name              *string
	SKU               *string
	Price             *decimal.Decimal
	Cost              *decimal.Decimal
	LowStockThreshold *int
	IsActive          *bool
	SupplierID        *uuid.UUID
}

// ListProductsParams defines filters for listing products.
type ListProductsParams struct {
	Search     string
	ActiveOnly bool
	LowStock   bool
	Offset     int
	Limit      int
	SortBy     string
	SortOrder  string
}

// Repository defines catalog storage operations.
type Repository interface {
	CreateProduct(ctx context.Context, params CreateProductParams) (Product, error)
	UpdateProduct(ctx context.Context, params UpdateProductParams) (Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]Product, int, error)
}
