package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lead is the persisted lead row.
type Lead struct {
	ID                uuid.UUID
	Name              string
	Phone             string
	City              string
	Address           string
	ProductID         *uuid.UUID
	Quantity          int
	UnitPrice         decimal.Decimal
	Status            string
	AssignedAgentID   *uuid.UUID
	AssignedAgentName *string
	AssignedAt        *time.Time
	AssignedByName    *string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsClaimedByOther reports whether the lead is bound to an agent other than userID.
func (l Lead) IsClaimedByOther(userID uuid.UUID) bool {
	return l.AssignedAgentID != nil && *l.AssignedAgentID != userID
}

// LineItem is one product line requested by a lead.
type LineItem struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	ProductID   *uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Position    int
}

// CallLogEntry records one call outcome on a lead.
type CallLogEntry struct {
	ID        int64
	LeadID    uuid.UUID
	Outcome   string
	ActorID   *uuid.UUID
	ActorName string
	Note      string
	CreatedAt time.Time
}

// Assignment is the assignee stamp written on a lead. A nil AgentID clears it.
type Assignment struct {
	AgentID        *uuid.UUID
	AgentName      *string
	AssignedAt     *time.Time
	AssignedByName *string
}

// CreateLeadParams contains data for creating a lead.
type CreateLeadParams struct {
	Name       string
	Phone      string
	City       string
	Address    string
	ProductID  *uuid.UUID
	Quantity   int
	UnitPrice  decimal.Decimal
	Status     string
	Assignment Assignment
	Notes      string
}

// UpdateLeadParams contains the patchable lead fields. Nil means unchanged.
type UpdateLeadParams struct {
	ID        uuid.UUID
	Name      *string
	Phone     *string
	City      *string
	Address   *string
	ProductID *uuid.UUID
	Quantity  *int
	UnitPrice *decimal.Decimal
	Notes     *string
}

// ListParams defines filters for listing leads.
type ListParams struct {
	Status          string
	AssignedAgentID *uuid.UUID
	Unassigned      bool
	// VisibleTo restricts the list to leads assigned to this agent or unassigned.
	VisibleTo       *uuid.UUID
	Search          string
	Offset          int
	Limit           int
	SortBy          string
	SortOrder       string
}

// Repository defines lead storage operations. Methods join the transaction
// carried by ctx when there is one.
type Repository interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	// GetForUpdate reads the lead and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	Update(ctx context.Context, params UpdateLeadParams) (Lead, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SetAssignment(ctx context.Context, id uuid.UUID, assignment Assignment) error
	// Purge deletes the lead with its items and call logs.
	Purge(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, leadID uuid.UUID) ([]LineItem, error)
	ReplaceItems(ctx context.Context, leadID uuid.UUID, items []LineItem) error

	AppendCallLog(ctx context.Context, entry CallLogEntry) error
	ListCallLogs(ctx context.Context, leadID uuid.UUID) ([]CallLogEntry, error)
}
