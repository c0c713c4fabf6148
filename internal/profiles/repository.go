// Package profiles is the directory of staff profiles. It maps a user id to
// the display name written into assignment stamps and audit records.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/db"
)

const getProfileQuery = `
	SELECT id, display_name, email, created_at
	FROM profiles
	WHERE id = $1`

// Profile is a staff member.
type Profile struct {
	ID          uuid.UUID
	DisplayName string
	Email       string
	CreatedAt   time.Time
}

// Repository reads profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a profile repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns the profile of userID.
func (r *Repository) GetByID(ctx context.Context, userID uuid.UUID) (Profile, error) {
	var p Profile
	err := db.Conn(ctx, r.pool).QueryRow(ctx, getProfileQuery, userID).
		Scan(&p.ID, &p.DisplayName, &p.Email, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, apperr.NotFound("profile not found")
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// DisplayName returns the label for userID.
func (r *Repository) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	p, err := r.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.DisplayName, nil
}
