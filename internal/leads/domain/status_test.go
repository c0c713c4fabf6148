package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadGraph(t *testing.T) {
	assert.True(t, CanTransition(StatusNoAnswer, StatusNoAnswer))
	assert.False(t, CanTransition(StatusInterested, StatusInterested))
	assert.True(t, CanTransition(StatusConfirmed, StatusCallAgain))
	assert.False(t, CanTransition(StatusConfirmed, StatusInterested))
	assert.True(t, CanTransition(StatusNotInterested, StatusNotContacted))
	assert.False(t, CanTransition(StatusNotInterested, StatusConfirmed))
	assert.False(t, IsKnownStatus("won"))
}

func TestLeadStatusSets(t *testing.T) {
	assert.True(t, IsClaimStatus(StatusNoAnswer))
	assert.False(t, IsClaimStatus(StatusCallAgain))
	assert.True(t, TriggersConversion(StatusCallAgain))
	assert.False(t, TriggersConversion(StatusInterested))
}
