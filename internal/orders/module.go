// Package orders provides the order lifecycle bounded context module.
package orders

import (
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/internal/orders/handler"
	"orderdesk_backend/internal/orders/ports"
	"orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/internal/orders/service"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the orders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// Deps are the cross-module ports the order engine needs.
type Deps struct {
	Stock    ports.StockLedger
	Products ports.ProductReader
}

// NewModule creates and initializes the orders module.
func NewModule(pool *pgxpool.Pool, tx db.Transactor, actors *authz.Resolver, bus events.Bus, val *validator.Validator, log *logger.Logger, deps Deps) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tx, actors.Gate(), deps.Stock, deps.Products, bus, log)

	return &Module{
		handler: handler.New(svc, actors, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the order engine for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes order storage to the assignment adapters.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	orders.POST("", m.handler.Create)
	orders.GET("", m.handler.List)
	orders.POST("/bulk/status", m.handler.BulkTransition)
	orders.GET("/:id", m.handler.Get)
	orders.PATCH("/:id", m.handler.Update)
	orders.PATCH("/:id/status", m.handler.Transition)
	orders.POST("/:id/notes", m.handler.AddNote)
	orders.POST("/:id/items", m.handler.AddItem)
	orders.PUT("/:id/items", m.handler.ReplaceItems)
	orders.PATCH("/:id/items/:itemId", m.handler.PatchItem)
	orders.DELETE("/:id/items/:itemId", m.handler.DeleteItem)

	ctx.Admin.DELETE("/orders/:id", m.handler.Purge)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
