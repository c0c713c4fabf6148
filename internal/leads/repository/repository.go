package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
)

const leadNotFoundMessage = "lead not found"

// Repo implements the leads repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const leadColumns = `
	id, name, phone, city, address, product_id, quantity, unit_price, status,
	assigned_agent_id, assigned_agent_name, assigned_at, assigned_by_name,
	notes, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.City, &l.Address, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.Status,
		&l.AssignedAgentID, &l.AssignedAgentName, &l.AssignedAt, &l.AssignedByName,
		&l.Notes, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// Create inserts a lead.
func (r *Repo) Create(ctx context.Context, p CreateLeadParams) (Lead, error) {
	query := `
		INSERT INTO leads (
			name, phone, city, address, product_id, quantity, unit_price, status,
			assigned_agent_id, assigned_agent_name, assigned_at, assigned_by_name, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + leadColumns

	lead, err := scanLead(db.Conn(ctx, r.pool).QueryRow(ctx, query,
		p.Name, p.Phone, p.City, p.Address, p.ProductID, p.Quantity, p.UnitPrice, p.Status,
		p.Assignment.AgentID, p.Assignment.AgentName, p.Assignment.AssignedAt, p.Assignment.AssignedByName,
		p.Notes,
	))
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

// GetByID retrieves a lead by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return r.getOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
}

// GetForUpdate retrieves a lead and holds its row lock.
func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (Lead, error) {
	return r.getOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repo) getOne(ctx context.Context, query string, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(db.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// List lists leads with filters and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
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
	if params.VisibleTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("(assigned_agent_id = $%d OR assigned_agent_id IS NULL)", argIdx))
		args = append(args, *params.VisibleTo)
		argIdx++
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE $%d OR phone ILIKE $%d OR city ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	sortColumn := "created_at"
	switch params.SortBy {
	case "name":
		sortColumn = "name"
	case "status":
		sortColumn = "status"
	case "updatedAt":
		sortColumn = "updated_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		leadColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, total, nil
}

// Update patches lead fields.
func (r *Repo) Update(ctx context.Context, p UpdateLeadParams) (Lead, error) {
	query := `
		UPDATE leads
		SET name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			city = COALESCE($4, city),
			address = COALESCE($5, address),
			product_id = COALESCE($6, product_id),
			quantity = COALESCE($7, quantity),
			unit_price = COALESCE($8, unit_price),
			notes = COALESCE($9, notes),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + leadColumns

	lead, err := scanLead(db.Conn(ctx, r.pool).QueryRow(ctx, query,
		p.ID, p.Name, p.Phone, p.City, p.Address, p.ProductID, p.Quantity, p.UnitPrice, p.Notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("update lead: %w", err)
	}
	return lead, nil
}

// SetStatus writes the lead status.
func (r *Repo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.execOne(ctx, "set lead status",
		`UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`, id, status)
}

// SetAssignment stamps or clears the assignee.
func (r *Repo) SetAssignment(ctx context.Context, id uuid.UUID, a Assignment) error {
	return r.execOne(ctx, "set lead assignment", `
		UPDATE leads
		SET assigned_agent_id = $2, assigned_agent_name = $3, assigned_at = $4, assigned_by_name = $5,
			updated_at = now()
		WHERE id = $1`,
		id, a.AgentID, a.AgentName, a.AssignedAt, a.AssignedByName)
}

// Purge physically deletes a lead with its items and call logs.
func (r *Repo) Purge(ctx context.Context, id uuid.UUID) error {
	conn := db.Conn(ctx, r.pool)
	for _, stmt := range []string{
		`DELETE FROM call_logs WHERE context_type = 'lead' AND context_id = $1`,
		`DELETE FROM lead_line_items WHERE lead_id = $1`,
	} {
		if _, err := conn.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("purge lead children: %w", err)
		}
	}
	return r.execOne(ctx, "purge lead", `DELETE FROM leads WHERE id = $1`, id)
}

func (r *Repo) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// ListItems returns a lead's line items in position order.
func (r *Repo) ListItems(ctx context.Context, leadID uuid.UUID) ([]LineItem, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, lead_id, product_id, description, quantity, unit_price, position
		FROM lead_line_items
		WHERE lead_id = $1
		ORDER BY position`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (LineItem, error) {
		var it LineItem
		err := row.Scan(&it.ID, &it.LeadID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Position)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan lead items: %w", err)
	}
	return items, nil
}

// ReplaceItems deletes the current item set and inserts items in order.
func (r *Repo) ReplaceItems(ctx context.Context, leadID uuid.UUID, items []LineItem) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM lead_line_items WHERE lead_id = $1`, leadID); err != nil {
		return fmt.Errorf("delete lead items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`
			INSERT INTO lead_line_items (lead_id, product_id, description, quantity, unit_price, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			leadID, it.ProductID, it.Description, it.Quantity, it.UnitPrice, i)
	}
	if err := conn.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert lead items: %w", err)
	}
	return nil
}

// AppendCallLog records a call outcome on a lead.
func (r *Repo) AppendCallLog(ctx context.Context, e CallLogEntry) error {
	if _, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO call_logs (context_type, context_id, outcome, actor_id, actor_name, note)
		VALUES ('lead', $1, $2, $3, $4, $5)`,
		e.LeadID, e.Outcome, e.ActorID, e.ActorName, e.Note); err != nil {
		return fmt.Errorf("append call log: %w", err)
	}
	return nil
}

// ListCallLogs returns a lead's call log oldest first.
func (r *Repo) ListCallLogs(ctx context.Context, leadID uuid.UUID) ([]CallLogEntry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, context_id, outcome, actor_id, actor_name, note, created_at
		FROM call_logs
		WHERE context_type = 'lead' AND context_id = $1
		ORDER BY id`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CallLogEntry, error) {
		var e CallLogEntry
		err := row.Scan(&e.ID, &e.LeadID, &e.Outcome, &e.ActorID, &e.ActorName, &e.Note, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan call logs: %w", err)
	}
	return logs, nil
}
