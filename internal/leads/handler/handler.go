package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/leads/service"
	"orderdesk_backend/internal/leads/transport"
	"orderdesk_backend/platform/httpkit"
	"orderdesk_backend/platform/validator"
)

// Handler handles HTTP requests for leads.
type Handler struct {
	svc    *service.Service
	actors *authz.Resolver
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// New creates a new leads handler.
func New(svc *service.Service, actors *authz.Resolver, val *validator.Validator) *Handler {
	return &Handler{svc: svc, actors: actors, val: val}
}

// Create creates a lead.
// POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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

	result, err := h.svc.Create(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List lists leads.
// GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
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

// Get returns a lead with items and call log.
// GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
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

// Update patches a lead.
// PATCH /api/v1/leads/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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

	result, err := h.svc.Update(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Transition records a call outcome.
// PATCH /api/v1/leads/:id/status
func (h *Handler) Transition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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

	result, err := h.svc.Transition(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Take claims a lead.
// POST /api/v1/leads/:id/take
func (h *Handler) Take(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.svc.Take(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Purge deletes a lead permanently.
// DELETE /api/v1/admin/leads/:id
func (h *Handler) Purge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Purge(c.Request.Context(), id, actor)) {
		return
	}
	httpkit.Success(c, "lead purged")
}

func (h *Handler) actor(c *gin.Context) (authz.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return authz.Actor{}, false
	}
	return h.actors.Resolve(c.Request.Context(), identity.UserID(), identity.Roles()), true
}
