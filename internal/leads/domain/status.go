package domain

// Lead statuses.
const (
	StatusNotContacted  = "not_contacted"
	StatusNoAnswer      = "no_answer"
	StatusInterested    = "interested"
	StatusNotInterested = "not_interested"
	StatusCallAgain     = "call_again"
	StatusConfirmed     = "confirmed"
)

// leadTransitions is the only lead transition table. Self loops are listed
// explicitly where a repeated outcome is a real event (another unanswered call).
var leadTransitions = map[string]map[string]bool{
	StatusNotContacted:  set(StatusNoAnswer, StatusInterested, StatusNotInterested, StatusCallAgain, StatusConfirmed),
	StatusNoAnswer:      set(StatusNoAnswer, StatusInterested, StatusNotInterested, StatusCallAgain, StatusConfirmed),
	StatusInterested:    set(StatusNoAnswer, StatusNotInterested, StatusCallAgain, StatusConfirmed),
	StatusCallAgain:     set(StatusNoAnswer, StatusInterested, StatusNotInterested, StatusConfirmed),
	StatusConfirmed:     set(StatusCallAgain, StatusNotInterested),
	StatusNotInterested: set(StatusNotContacted, StatusInterested),
}

// claimStatuses bind the lead to the first scoped agent who moves it there.
var claimStatuses = set(StatusInterested, StatusConfirmed, StatusNoAnswer)

// conversionStatuses create or update the linked order.
var conversionStatuses = set(StatusCallAgain, StatusConfirmed)

// IsKnownStatus reports whether status is a lead status.
func IsKnownStatus(status string) bool {
	_, ok := leadTransitions[status]
	return ok
}

// CanTransition reports whether the graph has the edge from -> to.
func CanTransition(from, to string) bool {
	return leadTransitions[from][to]
}

// IsClaimStatus reports whether entering status claims the lead.
func IsClaimStatus(status string) bool {
	return claimStatuses[status]
}

// TriggersConversion reports whether entering status runs the lead-to-order conversion.
func TriggersConversion(status string) bool {
	return conversionStatuses[status]
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
