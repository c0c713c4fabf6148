// Package duplicates finds orders and leads that share a customer phone.
package duplicates

import (
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/duplicates/handler"
	"orderdesk_backend/internal/duplicates/repository"
	"orderdesk_backend/internal/duplicates/service"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, actors *authz.Resolver, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, actors.Gate())
	h := handler.New(svc, actors, val)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "duplicates"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/duplicates")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
