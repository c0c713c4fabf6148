package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/platform/apperr"
)

func TestInsertOrderPlaceholdersMatchArgs(t *testing.T) {
	args := insertArgs(CreateOrderParams{Status: "pending"})
	for i := 1; i <= len(args); i++ {
		assert.Contains(t, insertOrder, fmt.Sprintf("$%d", i))
	}
	assert.NotContains(t, insertOrder, fmt.Sprintf("$%d", len(args)+1))
}

func TestInsertOrderComputesTotalInDatabase(t *testing.T) {
	assert.Contains(t, insertOrder, "$2 * $3")
	assert.True(t, strings.Contains(insertOrder, "'ORD-' || lpad("))
}

func TestCreateFromLeadRequiresSourceLead(t *testing.T) {
	r := New(nil)
	_, created, err := r.CreateFromLead(context.Background(), CreateOrderParams{})
	require.Error(t, err)
	assert.False(t, created)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
