// Package catalog provides the product catalog bounded context module.
package catalog

import (
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/catalog/handler"
	"orderdesk_backend/internal/catalog/repository"
	"orderdesk_backend/internal/catalog/service"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, tx db.Transactor, actors *authz.Resolver, stock service.StockInitializer, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tx, actors.Gate(), stock, log)

	return &Module{
		handler: handler.New(svc, actors, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the product reader adapters.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/catalog/products", m.handler.ListProducts)
	ctx.Protected.GET("/catalog/products/:id", m.handler.GetProductByID)

	adminGroup := ctx.Admin.Group("/catalog")
	adminGroup.POST("/products", m.handler.CreateProduct)
	adminGroup.PATCH("/products/:id", m.handler.UpdateProduct)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
