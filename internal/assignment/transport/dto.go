package transport

import (
	"time"

	"github.com/google/uuid"

	"orderdesk_backend/internal/shared/bulk"
)

// AssignRequest assigns one agent.
type AssignRequest struct {
	AgentID uuid.UUID `json:"agentId" validate:"required"`
}

// BulkAssignRequest assigns several records to one agent.
type BulkAssignRequest struct {
	IDs     []uuid.UUID `json:"ids" validate:"required,min=1,max=200"`
	AgentID uuid.UUID   `json:"agentId" validate:"required"`
}

// BulkUnassignRequest clears the assignee of several records.
type BulkUnassignRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=200"`
}

// AssignmentResponse is the assignee stamp after an assign or unassign.
type AssignmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	Kind           string     `json:"kind"`
	AgentID        *uuid.UUID `json:"agentId,omitempty"`
	AgentName      *string    `json:"agentName,omitempty"`
	AssignedAt     *time.Time `json:"assignedAt,omitempty"`
	AssignedByName *string    `json:"assignedByName,omitempty"`
	Changed        bool       `json:"changed"`
}

// BulkResponse is the per-item outcome of a bulk request.
type BulkResponse = bulk.Report
