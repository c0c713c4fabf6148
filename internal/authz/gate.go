// Package authz is the single authorization gate. Every role decision in the
// service layer goes through a Gate loaded from a declarative YAML policy.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"orderdesk_backend/platform/apperr"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Action names a gated operation.
type Action string

const (
	ActionOrdersRead       Action = "orders.read"
	ActionOrdersWrite      Action = "orders.write"
	ActionOrdersTransition Action = "orders.transition"
	ActionOrdersAssign     Action = "orders.assign"
	ActionOrdersPurge      Action = "orders.purge"
	ActionLeadsRead        Action = "leads.read"
	ActionLeadsWrite       Action = "leads.write"
	ActionLeadsTransition  Action = "leads.transition"
	ActionLeadsAssign      Action = "leads.assign"
	ActionLeadsPurge       Action = "leads.purge"
	ActionInventoryRead    Action = "inventory.read"
	ActionInventoryWrite   Action = "inventory.write"
	ActionCatalogRead      Action = "catalog.read"
	ActionCatalogWrite     Action = "catalog.write"
	ActionDuplicatesRead   Action = "duplicates.read"
)

// Role names used by the default policy.
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleAgent     = "agent"
	RoleWarehouse = "warehouse"
)

// Policy is the YAML document shape.
type Policy struct {
	Privileged    []string            `yaml:"privileged"`
	OrderStatuses map[string][]string `yaml:"order_statuses"`
	Actions       map[string][]string `yaml:"actions"`
}

// Gate answers authorization questions from a Policy.
type Gate struct {
	privileged    map[string]bool
	orderStatuses map[string]map[string]bool
	actions       map[Action]map[string]bool
}

// LoadGate reads the policy at path, or the embedded default when path is empty.
func LoadGate(path string) (*Gate, error) {
	raw := defaultPolicy
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read authz policy: %w", err)
		}
		raw = data
	}
	return ParseGate(raw)
}

// MustDefaultGate returns a Gate for the embedded policy and panics if it is malformed.
func MustDefaultGate() *Gate {
	g, err := ParseGate(defaultPolicy)
	if err != nil {
		panic(err)
	}
	return g
}

// ParseGate builds a Gate from a YAML policy document.
func ParseGate(raw []byte) (*Gate, error) {
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse authz policy: %w", err)
	}
	if len(p.Privileged) == 0 {
		return nil, fmt.Errorf("authz policy: at least one privileged role is required")
	}

	g := &Gate{
		privileged:    make(map[string]bool, len(p.Privileged)),
		orderStatuses: make(map[string]map[string]bool, len(p.OrderStatuses)),
		actions:       make(map[Action]map[string]bool, len(p.Actions)),
	}
	for _, role := range p.Privileged {
		g.privileged[role] = true
	}
	for role, statuses := range p.OrderStatuses {
		g.orderStatuses[role] = toSet(statuses)
	}
	for action, roles := range p.Actions {
		g.actions[Action(action)] = toSet(roles)
	}
	return g, nil
}

// Actor builds the caller capability for a resolved identity.
func (g *Gate) Actor(userID uuid.UUID, roles []string, displayName string) Actor {
	capability := CapabilityScoped
	for _, role := range roles {
		if g.privileged[role] {
			capability = CapabilityPrivileged
			break
		}
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = userID.String()
	}
	return Actor{
		UserID:      userID,
		Roles:       slices.Clone(roles),
		DisplayName: displayName,
		Capability:  capability,
	}
}

// Allowed reports whether actor may perform action. Unknown actions are
// privileged only.
func (g *Gate) Allowed(actor Actor, action Action) bool {
	if actor.IsPrivileged() {
		return true
	}
	granted := g.actions[action]
	for _, role := range actor.Roles {
		if granted[role] {
			return true
		}
	}
	return false
}

// Require returns Forbidden when actor may not perform action.
func (g *Gate) Require(actor Actor, action Action) error {
	if g.Allowed(actor, action) {
		return nil
	}
	return apperr.Forbidden("not allowed to perform " + string(action))
}

// CanSetOrderStatus reports whether the union of actor's roles includes status.
func (g *Gate) CanSetOrderStatus(actor Actor, status string) bool {
	if actor.IsPrivileged() {
		return true
	}
	for _, role := range actor.Roles {
		if g.orderStatuses[role][status] {
			return true
		}
	}
	return false
}

// IsAgentOnly reports whether the actor's only order-facing role is agent.
// Such callers see their own orders in listings.
func (g *Gate) IsAgentOnly(actor Actor) bool {
	if actor.IsPrivileged() {
		return false
	}
	return actor.HasRole(RoleAgent) && !actor.HasRole(RoleWarehouse)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.TrimSpace(v)] = true
	}
	return set
}
