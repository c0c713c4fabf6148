// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"
	"sync/atomic"

	"github.com/nyaruka/phonenumbers"
)

const fallbackRegion = "MA"

var defaultRegion atomic.Value

func init() {
	defaultRegion.Store(fallbackRegion)
}

// SetDefaultRegion sets the ISO 3166 region used for numbers written without a country prefix.
func SetDefaultRegion(region string) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = fallbackRegion
	}
	defaultRegion.Store(region)
}

// DefaultRegion returns the region used by NormalizeE164.
func DefaultRegion() string {
	return defaultRegion.Load().(string)
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion())
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Digits returns only the digits of input. Used for tolerant duplicate matching.
func Digits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
