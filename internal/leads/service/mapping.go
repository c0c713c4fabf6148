package service

import (
	"orderdesk_backend/internal/leads/repository"
	"orderdesk_backend/internal/leads/transport"
)

func toLeadResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                l.ID,
		Name:              l.Name,
		Phone:             l.Phone,
		City:              l.City,
		Address:           l.Address,
		ProductID:         l.ProductID,
		Quantity:          l.Quantity,
		UnitPrice:         l.UnitPrice,
		Status:            l.Status,
		AssignedAgentID:   l.AssignedAgentID,
		AssignedAgentName: l.AssignedAgentName,
		AssignedAt:        l.AssignedAt,
		AssignedByName:    l.AssignedByName,
		Notes:             l.Notes,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func toDetailResponse(l repository.Lead, items []repository.LineItem, logs []repository.CallLogEntry) transport.LeadDetailResponse {
	resp := transport.LeadDetailResponse{
		LeadResponse: toLeadResponse(l),
		Items:        make([]transport.LeadItemResponse, len(items)),
		CallLogs:     make([]transport.CallLogResponse, len(logs)),
	}
	for i, it := range items {
		resp.Items[i] = transport.LeadItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	for i, e := range logs {
		resp.CallLogs[i] = transport.CallLogResponse{
			Outcome:   e.Outcome,
			ActorName: e.ActorName,
			Note:      e.Note,
			CreatedAt: e.CreatedAt,
		}
	}
	return resp
}
