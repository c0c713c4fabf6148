package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/inventory/service"
	"orderdesk_backend/internal/inventory/transport"
	"orderdesk_backend/platform/httpkit"
	"orderdesk_backend/platform/validator"
)

// Handler handles HTTP requests for the inventory ledger.
type Handler struct {
	svc    *service.Service
	actors *authz.Resolver
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid product id"
)

// New creates a new inventory handler.
func New(svc *service.Service, actors *authz.Resolver, val *validator.Validator) *Handler {
	return &Handler{svc: svc, actors: actors, val: val}
}

// Restock adds stock to a product.
// POST /api/v1/inventory/products/:id/restock
func (h *Handler) Restock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
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
	result, err := h.svc.Restock(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Adjust applies a signed manual stock correction.
// POST /api/v1/inventory/products/:id/adjust
func (h *Handler) Adjust(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
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
	result, err := h.svc.Adjust(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListEntries lists a product's ledger entries.
// GET /api/v1/inventory/products/:id/ledger
func (h *Handler) ListEntries(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.ListEntriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	actor := h.actors.Resolve(c.Request.Context(), identity.UserID(), identity.Roles())
	result, err := h.svc.ListEntries(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reconcile replays a product's ledger against its stored stock.
// GET /api/v1/inventory/products/:id/reconcile
func (h *Handler) Reconcile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	actor := h.actors.Resolve(c.Request.Context(), identity.UserID(), identity.Roles())
	result, err := h.svc.ReconcileForActor(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
