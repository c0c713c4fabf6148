package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	leaddomain "orderdesk_backend/internal/leads/domain"
)

func TestOrderGraph(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusTake, true},
		{StatusTake, StatusPending, true},
		{StatusCallAgain, StatusPending, false},
		{StatusConfirmed, StatusShipped, true},
		{StatusPending, StatusShipped, false},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusPaid, true},
		{StatusPaid, StatusReturned, true},
		{StatusReturned, StatusPending, false},
		{StatusTrashed, StatusPending, true},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestEveryTargetIsAKnownStatus(t *testing.T) {
	for from, targets := range orderTransitions {
		for to := range targets {
			assert.True(t, IsKnownStatus(to), "%s -> %s", from, to)
		}
		_, mapped := LeadStatusFor(from)
		assert.True(t, mapped, from)
	}
}

func TestLeadMappings(t *testing.T) {
	got, _ := LeadStatusFor(StatusReturned)
	assert.Equal(t, leaddomain.StatusNotInterested, got)
	got, _ = LeadStatusFor(StatusPaid)
	assert.Equal(t, leaddomain.StatusConfirmed, got)
	got, _ = LeadStatusFor(StatusCallAgain)
	assert.Equal(t, leaddomain.StatusNoAnswer, got)

	assert.Equal(t, StatusConfirmed, OrderStatusForLead(leaddomain.StatusConfirmed))
	assert.Equal(t, StatusCallAgain, OrderStatusForLead(leaddomain.StatusCallAgain))
}

func TestStatusRules(t *testing.T) {
	assert.True(t, RequiresCompleteData(StatusPaid))
	assert.False(t, RequiresCompleteData(StatusTake))
	assert.True(t, HoldsCompleteData(StatusDelivered))
	assert.True(t, HoldsCompleteData(StatusConfirmed))
	assert.False(t, HoldsCompleteData(StatusCallAgain))
	assert.True(t, ItemsLocked(StatusShipped))
	assert.False(t, ItemsLocked(StatusConfirmed))
}
