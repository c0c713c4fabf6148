package handler

import (
	"net/http"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/duplicates/service"
	"orderdesk_backend/internal/duplicates/transport"
	"orderdesk_backend/platform/httpkit"
	"orderdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc    *service.Service
	actors *authz.Resolver
	val    *validator.Validator
}

func New(svc *service.Service, actors *authz.Resolver, val *validator.Validator) *Handler {
	return &Handler{svc: svc, actors: actors, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/phone", h.PhoneLookup)
}

func (h *Handler) PhoneLookup(c *gin.Context) {
	var req transport.PhoneLookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	actor := h.actors.Resolve(c.Request.Context(), identity.UserID(), identity.Roles())
	result, err := h.svc.Lookup(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
