// Package leads provides the lead lifecycle bounded context module.
package leads

import (
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/events"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/internal/leads/handler"
	"orderdesk_backend/internal/leads/ports"
	"orderdesk_backend/internal/leads/repository"
	"orderdesk_backend/internal/leads/service"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// Deps are the cross-module ports the lead engine needs.
type Deps struct {
	Orders   ports.OrderConverter
	Products ports.ProductReader
}

// NewModule creates and initializes the leads module.
func NewModule(pool *pgxpool.Pool, tx db.Transactor, actors *authz.Resolver, bus events.Bus, val *validator.Validator, log *logger.Logger, deps Deps) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tx, actors.Gate(), deps.Orders, deps.Products, bus, log)

	return &Module{
		handler: handler.New(svc, actors, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead engine for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes lead storage to the assignment adapters.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Protected.Group("/leads")
	leads.POST("", m.handler.Create)
	leads.GET("", m.handler.List)
	leads.GET("/:id", m.handler.Get)
	leads.PATCH("/:id", m.handler.Update)
	leads.PATCH("/:id/status", m.handler.Transition)
	leads.POST("/:id/take", m.handler.Take)

	ctx.Admin.DELETE("/leads/:id", m.handler.Purge)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
