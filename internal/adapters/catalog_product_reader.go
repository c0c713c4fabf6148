package adapters

import (
	"context"

	"github.com/google/uuid"

	catrepo "orderdesk_backend/internal/catalog/repository"
	leadports "orderdesk_backend/internal/leads/ports"
	orderports "orderdesk_backend/internal/orders/ports"
)

// CatalogProductReader adapts the catalog repository for the orders and
// leads domains. Unknown products surface the repository's NotFound error.
type CatalogProductReader struct {
	repo catrepo.Repository
}

// NewCatalogProductReader creates a new catalog reader adapter.
func NewCatalogProductReader(repo catrepo.Repository) *CatalogProductReader {
	return &CatalogProductReader{repo: repo}
}

// GetProductSnapshot returns the pricing data an order line needs.
func (a *CatalogProductReader) GetProductSnapshot(ctx context.Context, id uuid.UUID) (orderports.ProductSnapshot, error) {
	p, err := a.repo.GetProductByID(ctx, id)
	if err != nil {
		return orderports.ProductSnapshot{}, err
	}
	return orderports.ProductSnapshot{ID: p.ID, Name: p.Name, Price: p.Price, IsActive: p.IsActive}, nil
}

// GetProduct returns the pricing data a lead line needs.
func (a *CatalogProductReader) GetProduct(ctx context.Context, id uuid.UUID) (leadports.Product, error) {
	p, err := a.repo.GetProductByID(ctx, id)
	if err != nil {
		return leadports.Product{}, err
	}
	return leadports.Product{ID: p.ID, Name: p.Name, Price: p.Price}, nil
}

var (
	_ orderports.ProductReader = (*CatalogProductReader)(nil)
	_ leadports.ProductReader  = (*CatalogProductReader)(nil)
)
