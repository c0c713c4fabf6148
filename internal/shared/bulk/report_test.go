package bulk

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"orderdesk_backend/platform/apperr"
)

func TestReportCounts(t *testing.T) {
	r := NewReport(3)
	r.AddUpdated(uuid.New())
	r.AddSkipped(uuid.New(), "already assigned")
	r.AddFailed(uuid.New(), apperr.NotFound("order not found"))
	r.AddFailed(uuid.New(), errors.New("connection reset"))

	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 2, r.Failed)
	assert.Equal(t, "order not found", r.Results[2].Reason)
	assert.Equal(t, "internal error", r.Results[3].Reason)
}
