// Package inventory provides the inventory ledger bounded context module.
package inventory

import (
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/internal/inventory/handler"
	"orderdesk_backend/internal/inventory/repository"
	"orderdesk_backend/internal/inventory/service"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the inventory bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the inventory module.
func NewModule(pool *pgxpool.Pool, tx db.Transactor, actors *authz.Resolver, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tx, actors.Gate(), bus, log)

	return &Module{
		handler: handler.New(svc, actors, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "inventory"
}

// Service returns the ledger for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts inventory routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/inventory/products/:id")
	group.POST("/restock", m.handler.Restock)
	group.POST("/adjust", m.handler.Adjust)
	group.GET("/ledger", m.handler.ListEntries)
	group.GET("/reconcile", m.handler.Reconcile)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
