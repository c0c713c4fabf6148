package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeE164(t *testing.T) {
	SetDefaultRegion("NL")
	t.Cleanup(func() { SetDefaultRegion("") })

	assert.Equal(t, "+31612345678", NormalizeE164("06 12345678"))
	assert.Equal(t, "+31612345678", NormalizeE164("+31 6 12345678"))
	assert.Equal(t, "not a phone", NormalizeE164("  not a phone "))
	assert.Equal(t, "", NormalizeE164("   "))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "31612345678", Digits("+31 (6) 123-456-78"))
}
