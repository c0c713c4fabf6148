package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// phoneMatchQuery matches stored phones exactly or on their trailing digits,
// so rows saved before normalization are still found.
const phoneMatchQuery = `
	SELECT kind, id, label, status, created_at
	FROM (
		SELECT 'order' AS kind, o.id, o.display_code || ' ' || o.customer_name AS label, o.status, o.created_at
		FROM orders o
		WHERE (o.customer_phone = $1 OR right(regexp_replace(o.customer_phone, '\D', '', 'g'), $3) = $2)
			AND ($4::uuid IS NULL OR o.id <> $4)
		UNION ALL
		SELECT 'lead' AS kind, l.id, l.name AS label, l.status, l.created_at
		FROM leads l
		WHERE (l.phone = $1 OR right(regexp_replace(l.phone, '\D', '', 'g'), $3) = $2)
	) matches
	ORDER BY created_at DESC
	LIMIT $5`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Match struct {
	Kind      string
	ID        uuid.UUID
	Label     string
	Status    string
	CreatedAt time.Time
}

type PhoneQuery struct {
	E164           string
	Suffix         string
	ExcludeOrderID *uuid.UUID
	Limit          int
}

func (r *Repository) FindByPhone(ctx context.Context, q PhoneQuery) ([]Match, error) {
	rows, err := r.pool.Query(ctx, phoneMatchQuery, q.E164, q.Suffix, len(q.Suffix), q.ExcludeOrderID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("find phone matches: %w", err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Match, error) {
		var m Match
		err := row.Scan(&m.Kind, &m.ID, &m.Label, &m.Status, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan phone matches: %w", err)
	}
	return matches, nil
}
