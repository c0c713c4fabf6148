package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/catalog/service"
	"orderdesk_backend/internal/catalog/transport"
	"orderdesk_backend/platform/httpkit"
	"orderdesk_backend/platform/validator"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	svc    *service.Service
	actors *authz.Resolver
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidProductID = "invalid product id"
)

// New creates a new catalog handler.
func New(svc *service.Service, actors *authz.Resolver, val *validator.Validator) *Handler {
	return &Handler{svc: svc, actors: actors, val: val}
}

// ListProducts lists products.
// GET /api/v1/catalog/products
func (h *Handler) ListProducts(c *gin.Context) {
	var req transport.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
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
	result, err := h.svc.ListProducts(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetProductByID returns one product.
// GET /api/v1/catalog/products/:id
func (h *Handler) GetProductByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidProductID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	actor := h.actors.Resolve(c.Request.Context(), identity.UserID(), identity.Roles())
	result, err := h.svc.GetProductByID(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateProduct creates a product.
// POST /api/v1/admin/catalog/products
func (h *Handler) CreateProduct(c *gin.Context) {
	var req transport.CreateProductRequest
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
	result, err := h.svc.CreateProduct(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// UpdateProduct patches a product.
// PATCH /api/v1/admin/catalog/products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidProductID, nil)
		return
	}
	var req transport.UpdateProductRequest
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
	result, err := h.svc.UpdateProduct(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
