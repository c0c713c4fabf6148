package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
)

const orderNotFoundMessage = "order not found"

// Repo implements the orders repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const orderColumns = `
	id, display_code, product_id, quantity, unit_price,
	customer_name, customer_phone, customer_city, customer_address,
	total_amount, status, stock_deducted,
	assigned_agent_id, assigned_agent_name, assigned_at, assigned_by_name,
	source_lead_id, notes, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.DisplayCode, &o.ProductID, &o.Quantity, &o.UnitPrice,
		&o.CustomerName, &o.CustomerPhone, &o.CustomerCity, &o.CustomerAddress,
		&o.TotalAmount, &o.Status, &o.StockDeducted,
		&o.AssignedAgentID, &o.AssignedAgentName, &o.AssignedAt, &o.AssignedByName,
		&o.SourceLeadID, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const insertOrder = `
	INSERT INTO orders (
		display_code, product_id, quantity, unit_price,
		customer_name, customer_phone, customer_city, customer_address,
		total_amount, status,
		assigned_agent_id, assigned_agent_name, assigned_at, assigned_by_name,
		source_lead_id, notes, created_by)
	VALUES (
		'ORD-' || lpad(nextval('order_display_code_seq')::text, 6, '0'), $1, $2, $3,
		$4, $5, $6, $7,
		$2 * $3, $8,
		$9, $10, $11, $12,
		$13, $14, $15)`

func insertArgs(p CreateOrderParams) []interface{} {
	return []interface{}{
		p.ProductID, p.Quantity, p.UnitPrice,
		p.CustomerName, p.CustomerPhone, p.CustomerCity, p.CustomerAddress,
		p.Status,
		p.Assignment.AgentID, p.Assignment.AgentName, p.Assignment.AssignedAt, p.Assignment.AssignedByName,
		p.SourceLeadID, p.Notes, p.CreatedBy,
	}
}

// Create inserts an order with the next sequential display code.
func (r *Repo) Create(ctx context.Context, params CreateOrderParams) (Order, error) {
	query := insertOrder + ` RETURNING ` + orderColumns
	order, err := scanOrder(db.Conn(ctx, r.pool).QueryRow(ctx, query, insertArgs(params)...))
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// CreateFromLead relies on the unique partial index on source_lead_id: a
// concurrent insert for the same lead waits for the first writer and then
// does nothing, after which the existing row is read back.
func (r *Repo) CreateFromLead(ctx context.Context, params CreateOrderParams) (Order, bool, error) {
	if params.SourceLeadID == nil {
		return Order{}, false, apperr.Validation("source lead is required")
	}

	query := insertOrder + `
		ON CONFLICT (source_lead_id) WHERE source_lead_id IS NOT NULL DO NOTHING
		RETURNING ` + orderColumns

	order, err := scanOrder(db.Conn(ctx, r.pool).QueryRow(ctx, query, insertArgs(params)...))
	if err == nil {
		return order, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, fmt.Errorf("create order from lead: %w", err)
	}

	existing, err := r.GetBySourceLead(ctx, *params.SourceLeadID)
	if err != nil {
		return Order{}, false, err
	}
	return existing, false, nil
}

// GetByID retrieves an order by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate retrieves an order and holds its row lock.
func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

// GetBySourceLead retrieves the order converted from a lead.
func (r *Repo) GetBySourceLead(ctx context.Context, leadID uuid.UUID) (Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE source_lead_id = $1`, leadID)
}

func (r *Repo) getOne(ctx context.Context, query string, arg interface{}) (Order, error) {
	order, err := scanOrder(db.Conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, apperr.NotFound(orderNotFoundMessage)
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// List lists orders with filters and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Order, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if params.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}
	if params.AssignedAgentID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("assigned_agent_id = $%d", argIdx))
		args = append(args, *params.AssignedAgentID)
		argIdx++
	} else if params.Unassigned {
		whereClauses = append(whereClauses, "assigned_agent_id IS NULL")
	}
	if params.CreatedFrom != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.CreatedFrom)
		argIdx++
	}
	if params.CreatedTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *params.CreatedTo)
		argIdx++
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(display_code ILIKE $%d OR customer_name ILIKE $%d OR customer_phone ILIKE $%d OR customer_city ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM orders WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	sortColumn := "created_at"
	switch params.SortBy {
	case "status":
		sortColumn = "status"
	case "total":
		sortColumn = "total_amount"
	case "customerName":
		sortColumn = "customer_name"
	case "displayCode":
		sortColumn = "display_code"
	}
	sortOrder := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, total, nil
}

// UpdateCustomer patches contact fields and the legacy product fallback.
func (r *Repo) UpdateCustomer(ctx context.Context, params UpdateCustomerParams) (Order, error) {
	query := `
		UPDATE orders
		SET customer_name = COALESCE($2, customer_name),
			customer_phone = COALESCE($3, customer_phone),
			customer_city = COALESCE($4, customer_city),
			customer_address = COALESCE($5, customer_address),
			notes = COALESCE($6, notes),
			product_id = COALESCE($7, product_id),
			quantity = COALESCE($8, quantity),
			unit_price = COALESCE($9, unit_price),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + orderColumns

	order, err := scanOrder(db.Conn(ctx, r.pool).QueryRow(ctx, query,
		params.ID, params.CustomerName, params.CustomerPhone, params.CustomerCity, params.CustomerAddress,
		params.Notes, params.ProductID, params.Quantity, params.UnitPrice,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, apperr.NotFound(orderNotFoundMessage)
		}
		return Order{}, fmt.Errorf("update order: %w", err)
	}
	return order, nil
}

// SetStatus writes status and the stock deduction flag together.
func (r *Repo) SetStatus(ctx context.Context, id uuid.UUID, status string, stockDeducted bool) error {
	return r.execOne(ctx, "set order status",
		`UPDATE orders SET status = $2, stock_deducted = $3, updated_at = now() WHERE id = $1`,
		id, status, stockDeducted)
}

// SetAssignment stamps or clears the assignee.
func (r *Repo) SetAssignment(ctx context.Context, id uuid.UUID, a Assignment) error {
	return r.execOne(ctx, "set order assignment", `
		UPDATE orders
		SET assigned_agent_id = $2, assigned_agent_name = $3, assigned_at = $4, assigned_by_name = $5,
			updated_at = now()
		WHERE id = $1`,
		id, a.AgentID, a.AgentName, a.AssignedAt, a.AssignedByName)
}

// SetTotal writes the recomputed order total.
func (r *Repo) SetTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return r.execOne(ctx, "set order total",
		`UPDATE orders SET total_amount = $2, updated_at = now() WHERE id = $1`, id, total)
}

// ClearSourceLead detaches the order converted from a purged lead.
func (r *Repo) ClearSourceLead(ctx context.Context, leadID uuid.UUID) error {
	if _, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE orders SET source_lead_id = NULL, updated_at = now() WHERE source_lead_id = $1`, leadID); err != nil {
		return fmt.Errorf("clear source lead: %w", err)
	}
	return nil
}

// Purge physically deletes an order with its items, history, notes and call logs.
func (r *Repo) Purge(ctx context.Context, id uuid.UUID) error {
	conn := db.Conn(ctx, r.pool)
	for _, stmt := range []string{
		`DELETE FROM order_line_items WHERE order_id = $1`,
		`DELETE FROM order_history WHERE order_id = $1`,
		`DELETE FROM order_notes WHERE order_id = $1`,
		`DELETE FROM call_logs WHERE context_type = 'order' AND context_id = $1`,
	} {
		if _, err := conn.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("purge order children: %w", err)
		}
	}
	return r.execOne(ctx, "purge order", `DELETE FROM orders WHERE id = $1`, id)
}

func (r *Repo) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(orderNotFoundMessage)
	}
	return nil
}

// ListItems returns an order's line items in position order.
func (r *Repo) ListItems(ctx context.Context, orderID uuid.UUID) ([]LineItem, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, order_id, product_id, description, quantity, unit_price, line_total, position
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY position, created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := make([]LineItem, 0)
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.LineTotal, &it.Position); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

// ReplaceItems deletes the current item set and inserts items in order.
func (r *Repo) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []LineItem) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM order_line_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`
			INSERT INTO order_line_items (id, order_id, product_id, description, quantity, unit_price, line_total, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, orderID, it.ProductID, it.Description, it.Quantity, it.UnitPrice, it.LineTotal, i)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := conn.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// AppendHistory inserts a status change record.
func (r *Repo) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	if _, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO order_history (order_id, from_status, to_status, actor_id, actor_name)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.OrderID, entry.FromStatus, entry.ToStatus, entry.ActorID, entry.ActorName); err != nil {
		return fmt.Errorf("append order history: %w", err)
	}
	return nil
}

// ListHistory returns the status history oldest first.
func (r *Repo) ListHistory(ctx context.Context, orderID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor_id, actor_name, created_at
		FROM order_history
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order history: %w", err)
	}
	defer rows.Close()

	history := make([]HistoryEntry, 0)
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.OrderID, &h.FromStatus, &h.ToStatus, &h.ActorID, &h.ActorName, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order history: %w", err)
	}
	return history, nil
}

// AddNote inserts a note.
func (r *Repo) AddNote(ctx context.Context, note Note) (Note, error) {
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO order_notes (order_id, author_id, author_name, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		note.OrderID, note.AuthorID, note.AuthorName, note.Body,
	).Scan(&note.ID, &note.CreatedAt); err != nil {
		return Note{}, fmt.Errorf("add order note: %w", err)
	}
	return note, nil
}

// ListNotes returns an order's notes newest first.
func (r *Repo) ListNotes(ctx context.Context, orderID uuid.UUID) ([]Note, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, order_id, author_id, author_name, body, created_at
		FROM order_notes
		WHERE order_id = $1
		ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order notes: %w", err)
	}
	defer rows.Close()

	notes := make([]Note, 0)
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OrderID, &n.AuthorID, &n.AuthorName, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order notes: %w", err)
	}
	return notes, nil
}
