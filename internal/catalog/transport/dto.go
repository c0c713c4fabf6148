package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest creates a product. InitialStock is posted to the
// inventory ledger as a restock.
type CreateProductRequest struct {
	Name              string          `json:"name" validate:"required,notblank,max=200"`
	SKU               string          `json:"sku" validate:"max=64"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	LowStockThreshold int             `json:"lowStockThreshold" validate:"min=0"`
	IsActive          *bool           `json:"isActive"`
	SupplierID        *uuid.UUID      `json:"supplierId"`
	InitialStock      int             `json:"initialStock" validate:"min=0"`
}

// UpdateProductRequest patches a product. Stock is changed through the inventory endpoints only.
type UpdateProductRequest struct {
	Name              *string          `json:"name" validate:"omitempty,notblank,max=200"`
	SKU               *string          `json:"sku" validate:"omitempty,max=64"`
	Price             *decimal.Decimal `json:"price"`
	Cost              *decimal.Decimal `json:"cost"`
	LowStockThreshold *int             `json:"lowStockThreshold" validate:"omitempty,min=0"`
	IsActive          *bool            `json:"isActive"`
	SupplierID        *uuid.UUID       `json:"supplierId"`
}

// ListProductsRequest filters the product list.
type ListProductsRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
	Search     string `form:"search" validate:"max=100"`
	ActiveOnly bool   `form:"activeOnly"`
	LowStock   bool   `form:"lowStock"`
	SortBy     string `form:"sortBy" validate:"omitempty,oneof=name price stock createdAt"`
	SortOrder  string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// ProductResponse is a catalog product.
type ProductResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	StockQuantity     int             `json:"stockQuantity"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	LowStock          bool            `json:"lowStock"`
	IsActive          bool            `json:"isActive"`
	SupplierID        *uuid.UUID      `json:"supplierId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ProductListResponse is a page of products.
type ProductListResponse struct {
	Items      []ProductResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}
