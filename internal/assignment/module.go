// Package assignment provides the assignment bounded context module. It owns
// the assignee stamps of orders and leads.
package assignment

import (
	"orderdesk_backend/internal/assignment/handler"
	"orderdesk_backend/internal/assignment/service"
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/validator"
)

// Deps are the entity stores the module stamps.
type Deps struct {
	Orders service.Store
	Leads  service.Store
	Agents service.AgentDirectory
}

// Module is the assignment module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the assignment module.
func NewModule(tx db.Transactor, actors *authz.Resolver, bus events.Bus, val *validator.Validator, log *logger.Logger, deps Deps) *Module {
	svc := service.New(deps.Orders, deps.Leads, deps.Agents, tx, actors.Gate(), bus, log)
	return &Module{
		handler: handler.New(svc, actors, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assignment"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts assignment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	orders.PUT("/:id/assign", m.handler.AssignOrder)
	orders.DELETE("/:id/assign", m.handler.UnassignOrder)
	orders.POST("/bulk/assign", m.handler.BulkAssign(service.KindOrder))
	orders.POST("/bulk/unassign", m.handler.BulkUnassign(service.KindOrder))

	leads := ctx.Protected.Group("/leads")
	leads.PUT("/:id/assign", m.handler.AssignLead)
	leads.DELETE("/:id/assign", m.handler.UnassignLead)
	leads.POST("/bulk/assign", m.handler.BulkAssign(service.KindLead))
	leads.POST("/bulk/unassign", m.handler.BulkUnassign(service.KindLead))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
