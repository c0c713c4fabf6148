package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	catrepo "orderdesk_backend/internal/catalog/repository"
	invrepo "orderdesk_backend/internal/inventory/repository"
	"orderdesk_backend/platform/apperr"
)

const productNotFoundMessage = "product not found"

// Catalog is an in-memory product repository. Products share their stock
// column with Inventory.
type Catalog struct{ s *Store }

var _ catrepo.Repository = (*Catalog)(nil)

// Catalog returns the product repository of the store.
func (s *Store) Catalog() *Catalog { return &Catalog{s: s} }

func (r *Catalog) CreateProduct(ctx context.Context, p catrepo.CreateProductParams) (catrepo.Product, error) {
	var product catrepo.Product
	err := r.s.read(ctx, func(st *state) error {
		if skuTaken(st, p.SKU, uuid.Nil) {
			return apperr.Conflict("a product with this sku already exists")
		}
		ts := now()
		product = catrepo.Product{
			ID:                uuid.New(),
			Name:              p.Name,
			SKU:               p.SKU,
			Price:             p.Price,
			Cost:              p.Cost,
			LowStockThreshold: p.LowStockThreshold,
			IsActive:          p.IsActive,
			SupplierID:        p.SupplierID,
			CreatedAt:         ts,
			UpdatedAt:         ts,
		}
		st.products[product.ID] = product
		return nil
	})
	return product, err
}

func (r *Catalog) UpdateProduct(ctx context.Context, p catrepo.UpdateProductParams) (catrepo.Product, error) {
	var product catrepo.Product
	err := r.s.read(ctx, func(st *state) error {
		found, ok := st.products[p.ID]
		if !ok {
			return apperr.NotFound(productNotFoundMessage)
		}
		if p.SKU != nil && skuTaken(st, *p.SKU, p.ID) {
			return apperr.Conflict("a product with this sku already exists")
		}
		if p.Name != nil {
			found.Name = *p.Name
		}
		if p.SKU != nil {
			found.SKU = *p.SKU
		}
		if p.Price != nil {
			found.Price = *p.Price
		}
		if p.Cost != nil {
			found.Cost = *p.Cost
		}
		if p.LowStockThreshold != nil {
			found.LowStockThreshold = *p.LowStockThreshold
		}
		if p.IsActive != nil {
			found.IsActive = *p.IsActive
		}
		if p.SupplierID != nil {
			found.SupplierID = p.SupplierID
		}
		found.UpdatedAt = now()
		st.products[p.ID] = found
		product = found
		return nil
	})
	return product, err
}

func skuTaken(st *state, sku string, except uuid.UUID) bool {
	if sku == "" {
		return false
	}
	for id, p := range st.products {
		if id != except && strings.EqualFold(p.SKU, sku) {
			return true
		}
	}
	return false
}

func (r *Catalog) GetProductByID(ctx context.Context, id uuid.UUID) (catrepo.Product, error) {
	var product catrepo.Product
	err := r.s.read(ctx, func(st *state) error {
		found, ok := st.products[id]
		if !ok {
			return apperr.NotFound(productNotFoundMessage)
		}
		product = found
		return nil
	})
	return product, err
}

func (r *Catalog) ListProducts(ctx context.Context, p catrepo.ListProductsParams) ([]catrepo.Product, int, error) {
	var (
		result []catrepo.Product
		total  int
	)
	err := r.s.read(ctx, func(st *state) error {
		var matched []catrepo.Product
		for _, product := range st.products {
			if p.Search != "" && !containsFold(product.Name, p.Search) && !containsFold(product.SKU, p.Search) {
				continue
			}
			if p.ActiveOnly && !product.IsActive {
				continue
			}
			if p.LowStock && product.StockQuantity > product.LowStockThreshold {
				continue
			}
			matched = append(matched, product)
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
		total = len(matched)
		result = page(matched, p.Offset, p.Limit)
		return nil
	})
	return result, total, err
}

// Inventory is an in-memory stock ledger repository.
type Inventory struct{ s *Store }

var _ invrepo.Repository = (*Inventory)(nil)

// Inventory returns the ledger repository of the store.
func (s *Store) Inventory() *Inventory { return &Inventory{s: s} }

func (r *Inventory) LockProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]invrepo.StockRow, error) {
	result := make(map[uuid.UUID]invrepo.StockRow, len(productIDs))
	err := r.s.read(ctx, func(st *state) error {
		for _, id := range productIDs {
			p, ok := st.products[id]
			if !ok {
				return apperr.NotFound(productNotFoundMessage).WithDetails(map[string]string{"productId": id.String()})
			}
			result[id] = invrepo.StockRow{
				ProductID:         id,
				Name:              p.Name,
				Stock:             p.StockQuantity,
				LowStockThreshold: p.LowStockThreshold,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Inventory) ApplyDelta(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	var stock int
	err := r.s.read(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok || p.StockQuantity+delta < 0 {
			return apperr.OutOfStock("insufficient stock").WithDetails(map[string]string{"productId": productID.String()})
		}
		p.StockQuantity += delta
		p.UpdatedAt = now()
		st.products[productID] = p
		stock = p.StockQuantity
		return nil
	})
	return stock, err
}

func (r *Inventory) AppendEntry(ctx context.Context, entry invrepo.Entry) (invrepo.Entry, error) {
	err := r.s.read(ctx, func(st *state) error {
		entry.ID = r.s.nextSerial()
		entry.CreatedAt = now()
		st.entries = append(st.entries, entry)
		return nil
	})
	return entry, err
}

func (r *Inventory) ListEntries(ctx context.Context, productID uuid.UUID, offset, limit int) ([]invrepo.Entry, int, error) {
	var (
		result []invrepo.Entry
		total  int
	)
	err := r.s.read(ctx, func(st *state) error {
		var matched []invrepo.Entry
		for i := len(st.entries) - 1; i >= 0; i-- {
			if st.entries[i].ProductID == productID {
				matched = append(matched, st.entries[i])
			}
		}
		total = len(matched)
		result = page(matched, offset, limit)
		return nil
	})
	return result, total, err
}

func (r *Inventory) ReplayEntries(ctx context.Context, productID uuid.UUID) ([]invrepo.Entry, error) {
	var out []invrepo.Entry
	err := r.s.read(ctx, func(st *state) error {
		out = []invrepo.Entry{}
		for _, e := range st.entries {
			if e.ProductID == productID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (r *Inventory) CurrentStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := r.s.read(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperr.NotFound(productNotFoundMessage)
		}
		stock = p.StockQuantity
		return nil
	})
	return stock, err
}

func (r *Inventory) ListProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.s.read(ctx, func(st *state) error {
		ids = make([]uuid.UUID, 0, len(st.products))
		for id := range st.products {
			ids = append(ids, id)
		}
		return nil
	})
	sortUUIDs(ids)
	return ids, err
}

// OverwriteStock sets the projected stock without posting a ledger entry,
// leaving the projection out of step with its history.
func (r *Inventory) OverwriteStock(productID uuid.UUID, stock int) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.data.products[productID]; ok {
		p.StockQuantity = stock
		r.s.data.products[productID] = p
	}
}
