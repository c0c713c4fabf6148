package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/duplicates/repository"
	"orderdesk_backend/internal/duplicates/transport"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/phone"
)

const (
	suffixDigits = 9
	defaultLimit = 10
)

// Finder is the phone lookup the service runs against.
type Finder interface {
	FindByPhone(ctx context.Context, q repository.PhoneQuery) ([]repository.Match, error)
}

type Service struct {
	repo Finder
	gate *authz.Gate
}

func New(repo Finder, gate *authz.Gate) *Service {
	return &Service{repo: repo, gate: gate}
}

// FindPhoneMatches returns orders and leads sharing raw's phone number,
// optionally excluding one order. Inputs with too few digits match nothing.
func (s *Service) FindPhoneMatches(ctx context.Context, raw string, excludeOrderID *uuid.UUID, limit int) ([]repository.Match, error) {
	q, ok := buildQuery(raw)
	if !ok {
		return []repository.Match{}, nil
	}
	q.ExcludeOrderID = excludeOrderID
	q.Limit = limit
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}

	matches, err := s.repo.FindByPhone(ctx, q)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "duplicate lookup failed", err).WithOp("duplicates.FindPhoneMatches")
	}
	return matches, nil
}

func (s *Service) Lookup(ctx context.Context, req transport.PhoneLookupRequest, actor authz.Actor) (*transport.PhoneLookupResponse, error) {
	if err := s.gate.Require(actor, authz.ActionDuplicatesRead); err != nil {
		return nil, err
	}

	var exclude *uuid.UUID
	if req.ExcludeOrderID != "" {
		id, err := uuid.Parse(req.ExcludeOrderID)
		if err != nil {
			return nil, apperr.Validation("invalid excludeOrderId")
		}
		exclude = &id
	}

	matches, err := s.FindPhoneMatches(ctx, req.Phone, exclude, req.Limit)
	if err != nil {
		return nil, err
	}

	items := make([]transport.MatchItem, len(matches))
	for i, m := range matches {
		items[i] = transport.MatchItem{
			Kind:      m.Kind,
			ID:        m.ID.String(),
			Label:     strings.TrimSpace(m.Label),
			Status:    m.Status,
			Link:      buildFrontendLink(m.Kind, m.ID.String()),
			CreatedAt: m.CreatedAt,
		}
	}
	return &transport.PhoneLookupResponse{
		Phone:       phone.NormalizeE164(req.Phone),
		Items:       items,
		Total:       len(items),
		IsDuplicate: len(items) > 0,
	}, nil
}

func buildQuery(raw string) (repository.PhoneQuery, bool) {
	digits := phone.Digits(raw)
	if len(digits) < suffixDigits {
		return repository.PhoneQuery{}, false
	}
	return repository.PhoneQuery{
		E164:   phone.NormalizeE164(raw),
		Suffix: digits[len(digits)-suffixDigits:],
	}, true
}

func buildFrontendLink(kind, id string) string {
	switch kind {
	case "order":
		return "/app/orders/" + id
	case "lead":
		return "/app/leads/" + id
	default:
		return "/app"
	}
}
