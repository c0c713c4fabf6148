package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/orders/service"
	"orderdesk_backend/internal/orders/transport"
	"orderdesk_backend/platform/httpkit"
	"orderdesk_backend/platform/validator"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	svc    *service.Service
	actors *authz.Resolver
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidOrderID   = "invalid order id"
	msgInvalidItemID    = "invalid item id"
)

// New creates a new orders handler.
func New(svc *service.Service, actors *authz.Resolver, val *validator.Validator) *Handler {
	return &Handler{svc: svc, actors: actors, val: val}
}

// Create creates an order.
// POST /api/v1/orders
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateOrderRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List lists orders.
// GET /api/v1/orders
func (h *Handler) List(c *gin.Context) {
	var req transport.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns one order with its details.
// GET /api/v1/orders/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Update patches an order.
// PATCH /api/v1/orders/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	var req transport.UpdateOrderRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Transition changes the order status.
// PATCH /api/v1/orders/:id/status
func (h *Handler) Transition(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.Transition(c.Request.Context(), id, req.Status, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// BulkTransition moves several orders to one status.
// POST /api/v1/orders/bulk/status
func (h *Handler) BulkTransition(c *gin.Context) {
	var req transport.BulkStatusRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.BulkTransition(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AddNote adds a note to an order.
// POST /api/v1/orders/:id/notes
func (h *Handler) AddNote(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	var req transport.AddNoteRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.AddNote(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// AddItem appends a line item.
// POST /api/v1/orders/:id/items
func (h *Handler) AddItem(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	var req transport.LineItemRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.AddItem(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ReplaceItems replaces all line items.
// PUT /api/v1/orders/:id/items
func (h *Handler) ReplaceItems(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	var req transport.ReplaceItemsRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.ReplaceItems(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PatchItem patches one line item.
// PATCH /api/v1/orders/:id/items/:itemId
func (h *Handler) PatchItem(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId", msgInvalidItemID)
	if !ok {
		return
	}
	var req transport.PatchItemRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.PatchItem(c.Request.Context(), id, itemID, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteItem removes one line item.
// DELETE /api/v1/orders/:id/items/:itemId
func (h *Handler) DeleteItem(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId", msgInvalidItemID)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.DeleteItem(c.Request.Context(), id, itemID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Purge deletes an order permanently.
// DELETE /api/v1/admin/orders/:id
func (h *Handler) Purge(c *gin.Context) {
	id, ok := parseID(c, "id", msgInvalidOrderID)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Purge(c.Request.Context(), id, actor)) {
		return
	}
	httpkit.Success(c, "order purged")
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) actor(c *gin.Context) (authz.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return authz.Actor{}, false
	}
	return h.actors.Resolve(c.Request.Context(), identity.UserID(), identity.Roles()), true
}

func parseID(c *gin.Context, param, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}
