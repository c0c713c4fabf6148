package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDeltaGuardsAgainstNegativeStock(t *testing.T) {
	assert.Contains(t, applyDeltaQuery, "stock_quantity + $2 >= 0")
	assert.Contains(t, applyDeltaQuery, "RETURNING stock_quantity")
}
