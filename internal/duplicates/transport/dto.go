package transport

import "time"

type PhoneLookupRequest struct {
	Phone          string `form:"phone" validate:"required,min=6,max=32"`
	ExcludeOrderID string `form:"excludeOrderId" validate:"omitempty,uuid"`
	Limit          int    `form:"limit" validate:"omitempty,min=1,max=50"`
}

type MatchItem struct {
	Kind      string    `json:"kind"` // "order" or "lead"
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Status    string    `json:"status"`
	Link      string    `json:"link"` // Frontend route
	CreatedAt time.Time `json:"createdAt"`
}

type PhoneLookupResponse struct {
	Phone       string      `json:"phone"`
	Items       []MatchItem `json:"items"`
	Total       int         `json:"total"`
	IsDuplicate bool        `json:"isDuplicate"`
}
