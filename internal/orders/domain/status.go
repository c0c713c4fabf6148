// Package domain holds the order lifecycle rules: the transition table,
// data requirements per status and the mapping to and from lead statuses.
package domain

import leaddomain "orderdesk_backend/internal/leads/domain"

// Order statuses.
const (
	StatusPending   = "pending"
	StatusTake      = "take"
	StatusCallAgain = "call_again"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusPaid      = "paid"
	StatusReturned  = "returned"
	StatusCancelled = "cancelled"
	StatusTrashed   = "trashed"
)

// orderTransitions is the only order transition table.
var orderTransitions = map[string]map[string]bool{
	StatusPending:   set(StatusTake, StatusCallAgain, StatusConfirmed, StatusCancelled, StatusTrashed),
	StatusTake:      set(StatusPending, StatusCallAgain, StatusConfirmed, StatusCancelled, StatusTrashed),
	StatusCallAgain: set(StatusTake, StatusConfirmed, StatusCancelled, StatusTrashed),
	StatusConfirmed: set(StatusCallAgain, StatusShipped, StatusCancelled, StatusTrashed),
	StatusShipped:   set(StatusDelivered, StatusReturned),
	StatusDelivered: set(StatusPaid, StatusReturned),
	StatusPaid:      set(StatusReturned),
	StatusReturned:  set(),
	StatusCancelled: set(StatusPending),
	StatusTrashed:   set(StatusPending),
}

// completeDataStatuses require customer name, phone, city and address.
var completeDataStatuses = set(StatusConfirmed, StatusShipped, StatusReturned, StatusPaid, StatusCancelled)

// lockedItemStatuses freeze the line item set.
var lockedItemStatuses = set(StatusShipped, StatusDelivered, StatusPaid, StatusReturned)

var leadStatusByOrder = map[string]string{
	StatusPending:   leaddomain.StatusNotContacted,
	StatusTake:      leaddomain.StatusInterested,
	StatusCallAgain: leaddomain.StatusNoAnswer,
	StatusConfirmed: leaddomain.StatusConfirmed,
	StatusShipped:   leaddomain.StatusConfirmed,
	StatusDelivered: leaddomain.StatusConfirmed,
	StatusPaid:      leaddomain.StatusConfirmed,
	StatusReturned:  leaddomain.StatusNotInterested,
	StatusTrashed:   leaddomain.StatusNotInterested,
	StatusCancelled: leaddomain.StatusNotInterested,
}

// IsKnownStatus reports whether status is an order status.
func IsKnownStatus(status string) bool {
	_, ok := orderTransitions[status]
	return ok
}

// CanTransition reports whether the graph has the edge from -> to.
func CanTransition(from, to string) bool {
	return orderTransitions[from][to]
}

// RequiresCompleteData reports whether entering status needs full customer contact data.
func RequiresCompleteData(status string) bool {
	return completeDataStatuses[status]
}

// HoldsCompleteData reports whether an order in status must keep full
// customer contact data. Delivered is only reachable through shipped.
func HoldsCompleteData(status string) bool {
	return completeDataStatuses[status] || status == StatusDelivered
}

// ItemsLocked reports whether line items may no longer change in status.
func ItemsLocked(status string) bool {
	return lockedItemStatuses[status]
}

// LeadStatusFor maps an order status to the status mirrored onto its source lead.
func LeadStatusFor(orderStatus string) (string, bool) {
	s, ok := leadStatusByOrder[orderStatus]
	return s, ok
}

// OrderStatusForLead maps a converting lead status to the order status it drives.
func OrderStatusForLead(leadStatus string) string {
	if leadStatus == leaddomain.StatusConfirmed {
		return StatusConfirmed
	}
	return StatusCallAgain
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
