package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
)

const productNotFoundMessage = "product not found"

// Repo implements the inventory ledger repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new inventory repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// LockProducts locks the product rows in id order so concurrent batches never deadlock.
func (r *Repo) LockProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]StockRow, error) {
	ids := slices.Clone(productIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	query := `
		SELECT id, name, stock_quantity, low_stock_threshold
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]StockRow, len(ids))
	for rows.Next() {
		var row StockRow
		if err := rows.Scan(&row.ProductID, &row.Name, &row.Stock, &row.LowStockThreshold); err != nil {
			return nil, fmt.Errorf("scan locked product: %w", err)
		}
		result[row.ProductID] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked products: %w", err)
	}

	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, apperr.NotFound(productNotFoundMessage).WithDetails(map[string]string{"productId": id.String()})
		}
	}
	return result, nil
}

const applyDeltaQuery = `
	UPDATE products
	SET stock_quantity = stock_quantity + $2, updated_at = now()
	WHERE id = $1 AND stock_quantity + $2 >= 0
	RETURNING stock_quantity`

// ApplyDelta updates stock with a conditional UPDATE so stock can never go below zero.
func (r *Repo) ApplyDelta(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	var stock int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, applyDeltaQuery, productID, delta).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.OutOfStock("insufficient stock").WithDetails(map[string]string{"productId": productID.String()})
		}
		return 0, fmt.Errorf("apply stock delta: %w", err)
	}
	return stock, nil
}

// AppendEntry inserts an immutable ledger entry.
func (r *Repo) AppendEntry(ctx context.Context, entry Entry) (Entry, error) {
	query := `
		INSERT INTO inventory_ledger_entries
			(product_id, change_amount, previous_stock, new_stock, reason, actor_id, actor_name, note, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query,
		entry.ProductID, entry.ChangeAmount, entry.PreviousStock, entry.NewStock, string(entry.Reason),
		entry.ActorID, entry.ActorName, entry.Note, entry.OrderID,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return Entry{}, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}

const entryColumns = `id, product_id, change_amount, previous_stock, new_stock, reason, actor_id, actor_name, note, order_id, created_at`

// ListEntries lists the newest entries first.
func (r *Repo) ListEntries(ctx context.Context, productID uuid.UUID, offset, limit int) ([]Entry, int, error) {
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_ledger_entries WHERE product_id = $1`, productID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	query := `SELECT ` + entryColumns + `
		FROM inventory_ledger_entries
		WHERE product_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`

	rows, err := conn.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ReplayEntries returns all entries oldest first.
func (r *Repo) ReplayEntries(ctx context.Context, productID uuid.UUID) ([]Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM inventory_ledger_entries
		WHERE product_id = $1
		ORDER BY id ASC`

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("replay ledger entries: %w", err)
	}
	return collectEntries(rows)
}

// CurrentStock returns the projected stock of a product.
func (r *Repo) CurrentStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound(productNotFoundMessage)
		}
		return 0, fmt.Errorf("current stock: %w", err)
	}
	return stock, nil
}

// ListProductIDs returns the ids of all products.
func (r *Repo) ListProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect product ids: %w", err)
	}
	return ids, nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var reason string
		if err := rows.Scan(
			&e.ID, &e.ProductID, &e.ChangeAmount, &e.PreviousStock, &e.NewStock, &reason,
			&e.ActorID, &e.ActorName, &e.Note, &e.OrderID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Reason = Reason(reason)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
