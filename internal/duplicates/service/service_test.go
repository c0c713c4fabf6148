package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/internal/authz"
	"orderdesk_backend/internal/duplicates/repository"
	"orderdesk_backend/internal/duplicates/transport"
	"orderdesk_backend/platform/apperr"
)

type recordingFinder struct {
	queries []repository.PhoneQuery
	matches []repository.Match
	err     error
}

func (f *recordingFinder) FindByPhone(_ context.Context, q repository.PhoneQuery) ([]repository.Match, error) {
	f.queries = append(f.queries, q)
	return f.matches, f.err
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		ok     bool
		e164   string
		suffix string
	}{
		{name: "local format", raw: "0612345678", ok: true, e164: "+212612345678", suffix: "612345678"},
		{name: "international with spacing", raw: "+212 6 12 34 56 78", ok: true, e164: "+212612345678", suffix: "612345678"},
		{name: "too short", raw: "12345678", ok: false},
		{name: "empty", raw: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := buildQuery(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.e164, q.E164)
				assert.Equal(t, tt.suffix, q.Suffix)
			}
		})
	}
}

func TestFindPhoneMatchesSkipsShortInput(t *testing.T) {
	finder := &recordingFinder{}
	svc := New(finder, authz.MustDefaultGate())

	matches, err := svc.FindPhoneMatches(context.Background(), "1234", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, finder.queries)
}

func TestFindPhoneMatchesDefaultsLimit(t *testing.T) {
	finder := &recordingFinder{}
	svc := New(finder, authz.MustDefaultGate())
	exclude := uuid.New()

	_, err := svc.FindPhoneMatches(context.Background(), "0612345678", &exclude, 0)
	require.NoError(t, err)
	require.Len(t, finder.queries, 1)
	assert.Equal(t, defaultLimit, finder.queries[0].Limit)
	assert.Equal(t, &exclude, finder.queries[0].ExcludeOrderID)
}

func TestFindPhoneMatchesWrapsStoreErrors(t *testing.T) {
	svc := New(&recordingFinder{err: errors.New("connection reset")}, authz.MustDefaultGate())

	_, err := svc.FindPhoneMatches(context.Background(), "0612345678", nil, 5)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestLookup(t *testing.T) {
	gate := authz.MustDefaultGate()
	orderID, leadID := uuid.New(), uuid.New()
	created := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	finder := &recordingFinder{matches: []repository.Match{
		{Kind: "order", ID: orderID, Label: "ORD-000001 Salma ", Status: "pending", CreatedAt: created},
		{Kind: "lead", ID: leadID, Label: "Salma", Status: "interested", CreatedAt: created},
	}}
	svc := New(finder, gate)
	agent := gate.Actor(uuid.New(), []string{authz.RoleAgent}, "Aya")

	resp, err := svc.Lookup(context.Background(), transport.PhoneLookupRequest{Phone: "0612345678"}, agent)
	require.NoError(t, err)
	assert.Equal(t, "+212612345678", resp.Phone)
	assert.True(t, resp.IsDuplicate)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "ORD-000001 Salma", resp.Items[0].Label)
	assert.Equal(t, "/app/orders/"+orderID.String(), resp.Items[0].Link)
	assert.Equal(t, "/app/leads/"+leadID.String(), resp.Items[1].Link)
}

func TestLookupRejectsBadExclusion(t *testing.T) {
	gate := authz.MustDefaultGate()
	svc := New(&recordingFinder{}, gate)
	agent := gate.Actor(uuid.New(), []string{authz.RoleAgent}, "Aya")

	_, err := svc.Lookup(context.Background(), transport.PhoneLookupRequest{Phone: "0612345678", ExcludeOrderID: "nope"}, agent)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestLookupRequiresGrant(t *testing.T) {
	gate := authz.MustDefaultGate()
	svc := New(&recordingFinder{}, gate)

	_, err := svc.Lookup(context.Background(), transport.PhoneLookupRequest{Phone: "0612345678"}, gate.Actor(uuid.New(), nil, "Nobody"))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
