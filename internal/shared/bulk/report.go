// Package bulk provides the per-item report returned by batch operations.
// One failing item never fails the batch.
package bulk

import (
	"errors"

	"github.com/google/uuid"

	"orderdesk_backend/platform/apperr"
)

// Outcome of a single batch item.
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ItemResult is the outcome of one item.
type ItemResult struct {
	ID      uuid.UUID `json:"id"`
	Outcome Outcome   `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
}

// Report collects item results in request order.
type Report struct {
	Results []ItemResult `json:"results"`
	Updated int          `json:"updated"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
}

// NewReport creates an empty report sized for n items.
func NewReport(n int) *Report {
	return &Report{Results: make([]ItemResult, 0, n)}
}

// AddUpdated records a changed item.
func (r *Report) AddUpdated(id uuid.UUID) {
	r.Results = append(r.Results, ItemResult{ID: id, Outcome: OutcomeUpdated})
	r.Updated++
}

// AddSkipped records an item that was already at the requested state.
func (r *Report) AddSkipped(id uuid.UUID, reason string) {
	r.Results = append(r.Results, ItemResult{ID: id, Outcome: OutcomeSkipped, Reason: reason})
	r.Skipped++
}

// AddFailed records a failed item. Domain error messages are reported as-is;
// anything else is reported generically.
func (r *Report) AddFailed(id uuid.UUID, err error) {
	reason := "internal error"
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) && domainErr.Kind != apperr.KindInternal {
		reason = domainErr.Message
	}
	r.Results = append(r.Results, ItemResult{ID: id, Outcome: OutcomeFailed, Reason: reason})
	r.Failed++
}
