package service

import (
	"orderdesk_backend/internal/orders/ports"
	"orderdesk_backend/internal/orders/repository"
	"orderdesk_backend/internal/orders/transport"
)

func toOrderResponse(o repository.Order) transport.OrderResponse {
	return transport.OrderResponse{
		ID:                o.ID,
		DisplayCode:       o.DisplayCode,
		ProductID:         o.ProductID,
		Quantity:          o.Quantity,
		UnitPrice:         o.UnitPrice,
		CustomerName:      o.CustomerName,
		CustomerPhone:     o.CustomerPhone,
		CustomerCity:      o.CustomerCity,
		CustomerAddress:   o.CustomerAddress,
		TotalAmount:       o.TotalAmount,
		Status:            o.Status,
		StockDeducted:     o.StockDeducted,
		AssignedAgentID:   o.AssignedAgentID,
		AssignedAgentName: o.AssignedAgentName,
		AssignedAt:        o.AssignedAt,
		AssignedByName:    o.AssignedByName,
		SourceLeadID:      o.SourceLeadID,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func toNoteResponse(n repository.Note) transport.NoteResponse {
	return transport.NoteResponse{
		ID:         n.ID,
		AuthorName: n.AuthorName,
		Body:       n.Body,
		CreatedAt:  n.CreatedAt,
	}
}

func toDetailResponse(o repository.Order, items []repository.LineItem, history []repository.HistoryEntry, notes []repository.Note, matches []ports.PhoneMatch) transport.OrderDetailResponse {
	resp := transport.OrderDetailResponse{
		OrderResponse:  toOrderResponse(o),
		Items:          make([]transport.LineItemResponse, len(items)),
		History:        make([]transport.HistoryResponse, len(history)),
		NoteEntries:    make([]transport.NoteResponse, len(notes)),
		DuplicatePhone: make([]transport.PhoneMatchResponse, len(matches)),
	}
	for i, it := range items {
		resp.Items[i] = transport.LineItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		}
	}
	for i, h := range history {
		resp.History[i] = transport.HistoryResponse{
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			ActorName:  h.ActorName,
			CreatedAt:  h.CreatedAt,
		}
	}
	for i, n := range notes {
		resp.NoteEntries[i] = toNoteResponse(n)
	}
	for i, m := range matches {
		resp.DuplicatePhone[i] = transport.PhoneMatchResponse{Kind: m.Kind, ID: m.ID, Label: m.Label, Status: m.Status}
	}
	return resp
}
