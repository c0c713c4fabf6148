package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderdesk_backend/internal/assignment/service"
	"orderdesk_backend/internal/assignment/transport"
	"orderdesk_backend/internal/authz"
	"orderdesk_backend/platform/httpkit"
	"orderdesk_backend/platform/validator"
)

// Handler handles assignment requests for orders and leads.
type Handler struct {
	svc    *service.Service
	actors *authz.Resolver
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// New creates a new assignment handler.
func New(svc *service.Service, actors *authz.Resolver, val *validator.Validator) *Handler {
	return &Handler{svc: svc, actors: actors, val: val}
}

// AssignOrder handles PUT /api/v1/orders/:id/assign
func (h *Handler) AssignOrder(c *gin.Context) {
	h.assign(c, h.svc.AssignOrder)
}

// UnassignOrder handles DELETE /api/v1/orders/:id/assign
func (h *Handler) UnassignOrder(c *gin.Context) {
	h.unassign(c, h.svc.UnassignOrder)
}

// AssignLead handles PUT /api/v1/leads/:id/assign
func (h *Handler) AssignLead(c *gin.Context) {
	h.assign(c, h.svc.AssignLead)
}

// UnassignLead handles DELETE /api/v1/leads/:id/assign
func (h *Handler) UnassignLead(c *gin.Context) {
	h.unassign(c, h.svc.UnassignLead)
}

// BulkAssign returns a handler for POST /api/v1/{orders,leads}/bulk/assign
func (h *Handler) BulkAssign(kind service.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transport.BulkAssignRequest
		if !h.bind(c, &req) {
			return
		}
		actor, ok := h.actor(c)
		if !ok {
			return
		}

		result, err := h.svc.BulkAssign(c.Request.Context(), kind, req, actor)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, result)
	}
}

// BulkUnassign returns a handler for POST /api/v1/{orders,leads}/bulk/unassign
func (h *Handler) BulkUnassign(kind service.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transport.BulkUnassignRequest
		if !h.bind(c, &req) {
			return
		}
		actor, ok := h.actor(c)
		if !ok {
			return
		}

		result, err := h.svc.BulkUnassign(c.Request.Context(), kind, req, actor)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, result)
	}
}

type assignFunc func(ctx context.Context, id, agentID uuid.UUID, actor authz.Actor) (transport.AssignmentResponse, error)

type unassignFunc func(ctx context.Context, id uuid.UUID, actor authz.Actor) (transport.AssignmentResponse, error)

func (h *Handler) assign(c *gin.Context, fn assignFunc) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.AssignRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), id, req.AgentID, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) unassign(c *gin.Context, fn unassignFunc) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
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
