package authz

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Capability is the explicit authority level an actor carries.
type Capability int

const (
	// CapabilityScoped actors act within their role grants and ownership rules.
	CapabilityScoped Capability = iota
	// CapabilityPrivileged actors override role grants and ownership.
	CapabilityPrivileged
)

// Actor is the resolved caller passed to every service operation.
type Actor struct {
	UserID      uuid.UUID
	Roles       []string
	DisplayName string
	Capability  Capability
}

// IsPrivileged reports whether the actor overrides scoping rules.
func (a Actor) IsPrivileged() bool {
	return a.Capability == CapabilityPrivileged
}

// HasRole checks if the actor holds role.
func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// DisplayNameLookup maps a user id to the label written into audit records.
type DisplayNameLookup interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

// Resolver turns an authenticated identity into an Actor.
type Resolver struct {
	gate  *Gate
	names DisplayNameLookup
}

// NewResolver creates a Resolver. names may be nil, in which case the user id is used as label.
func NewResolver(gate *Gate, names DisplayNameLookup) *Resolver {
	return &Resolver{gate: gate, names: names}
}

// Resolve builds the Actor for userID. A failed profile lookup falls back to
// the user id; the label is informational only.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, roles []string) Actor {
	name := ""
	if r.names != nil {
		if n, err := r.names.DisplayName(ctx, userID); err == nil {
			name = n
		}
	}
	return r.gate.Actor(userID, roles, name)
}

// Gate returns the underlying gate.
func (r *Resolver) Gate() *Gate {
	return r.gate
}
