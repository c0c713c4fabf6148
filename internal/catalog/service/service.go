package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/catalog/repository"
	"orderdesk_backend/internal/catalog/transport"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
)

const initialStockNote = "initial stock"

// StockInitializer posts the opening stock of a new product to the ledger.
type StockInitializer interface {
	Restock(ctx context.Context, productID uuid.UUID, quantity int, note string, actor authz.Actor) error
}

// Service provides business logic for the catalog.
type Service struct {
	repo  repository.Repository
	tx    db.Transactor
	gate  *authz.Gate
	stock StockInitializer
	log   *logger.Logger
}

// New creates a new catalog service.
func New(repo repository.Repository, tx db.Transactor, gate *authz.Gate, stock StockInitializer, log *logger.Logger) *Service {
	return &Service{repo: repo, tx: tx, gate: gate, stock: stock, log: log}
}

// GetProductByID retrieves a product by ID.
func (s *Service) GetProductByID(ctx context.Context, id uuid.UUID, actor authz.Actor) (transport.ProductResponse, error) {
	if err := s.gate.Require(actor, authz.ActionCatalogRead); err != nil {
		return transport.ProductResponse{}, err
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return transport.ProductResponse{}, err
	}
	return toProductResponse(product), nil
}

// ListProducts retrieves products with search and pagination.
func (s *Service) ListProducts(ctx context.Context, req transport.ListProductsRequest, actor authz.Actor) (transport.ProductListResponse, error) {
	if err := s.gate.Require(actor, authz.ActionCatalogRead); err != nil {
		return transport.ProductListResponse{}, err
	}

	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	products, total, err := s.repo.ListProducts(ctx, repository.ListProductsParams{
		Search:     strings.TrimSpace(req.Search),
		ActiveOnly: req.ActiveOnly,
		LowStock:   req.LowStock,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	})
	if err != nil {
		return transport.ProductListResponse{}, err
	}

	items := make([]transport.ProductResponse, len(products))
	for i, p := range products {
		items[i] = toProductResponse(p)
	}
	return transport.ProductListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// CreateProduct creates a product and posts its initial stock as a restock.
func (s *Service) CreateProduct(ctx context.Context, req transport.CreateProductRequest, actor authz.Actor) (transport.ProductResponse, error) {
	if err := s.gate.Require(actor, authz.ActionCatalogWrite); err != nil {
		return transport.ProductResponse{}, err
	}
	if req.Price.IsNegative() || req.Cost.IsNegative() {
		return transport.ProductResponse{}, apperr.Validation("price and cost must not be negative")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	var productID uuid.UUID
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		product, err := s.repo.CreateProduct(ctx, repository.CreateProductParams{
			Name:              strings.TrimSpace(req.Name),
			SKU:               strings.TrimSpace(req.SKU),
			Price:             req.Price,
			Cost:              req.Cost,
			LowStockThreshold: req.LowStockThreshold,
			IsActive:          isActive,
			SupplierID:        req.SupplierID,
		})
		if err != nil {
			return err
		}
		productID = product.ID
		if req.InitialStock > 0 {
			return s.stock.Restock(ctx, product.ID, req.InitialStock, initialStockNote, actor)
		}
		return nil
	})
	if err != nil {
		return transport.ProductResponse{}, err
	}

	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return transport.ProductResponse{}, err
	}
	s.log.Info("product created", "id", product.ID, "name", product.Name, "stock", product.StockQuantity)
	return toProductResponse(product), nil
}

// UpdateProduct patches catalog fields.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, req transport.UpdateProductRequest, actor authz.Actor) (transport.ProductResponse, error) {
	if err := s.gate.Require(actor, authz.ActionCatalogWrite); err != nil {
		return transport.ProductResponse{}, err
	}
	if (req.Price != nil && req.Price.IsNegative()) || (req.Cost != nil && req.Cost.IsNegative()) {
		return transport.ProductResponse{}, apperr.Validation("price and cost must not be negative")
	}

	name := req.Name
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		name = &trimmed
	}

	product, err := s.repo.UpdateProduct(ctx, repository.UpdateProductParams{
		ID:                id,
		Name:              name,
		SKU:               req.SKU,
		Price:             req.Price,
		Cost:              req.Cost,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          req.IsActive,
		SupplierID:        req.SupplierID,
	})
	if err != nil {
		return transport.ProductResponse{}, err
	}

	s.log.Info("product updated", "id", product.ID, "name", product.Name)
	return toProductResponse(product), nil
}

func toProductResponse(p repository.Product) transport.ProductResponse {
	return transport.ProductResponse{
		ID:                p.ID,
		Name:              p.Name,
		SKU:               p.SKU,
		Price:             p.Price,
		Cost:              p.Cost,
		StockQuantity:     p.StockQuantity,
		LowStockThreshold: p.LowStockThreshold,
		LowStock:          p.StockQuantity <= p.LowStockThreshold,
		IsActive:          p.IsActive,
		SupplierID:        p.SupplierID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
