package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/platform/config"
)

func TestRenderLowStockTemplate(t *testing.T) {
	html, err := renderEmailTemplate("low_stock.html", lowStockEmailData{
		baseEmailData: baseEmailData{Title: "Low stock", Heading: "Low stock alert"},
		LowStockAlert: LowStockAlert{ProductID: "p-1", ProductName: "Desk <lamp>", Stock: 2, Threshold: 3},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<h2>Low stock alert</h2>")
	assert.Contains(t, html, "Desk &lt;lamp&gt;")
	assert.Contains(t, html, "2 units left (threshold 3)")
}

func TestRenderLedgerDriftTemplate(t *testing.T) {
	html, err := renderEmailTemplate("ledger_drift.html", ledgerDriftEmailData{
		baseEmailData: baseEmailData{Title: "Ledger drift", Heading: "Inventory ledger drift"},
		Products: []DriftedProduct{
			{ProductID: "p-1", StoredStock: 9, ReplayedStock: 3},
			{ProductID: "p-2", StoredStock: 0, ReplayedStock: 1},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<td>p-1</td><td>9</td><td>3</td>")
	assert.Contains(t, html, "<td>p-2</td><td>0</td><td>1</td>")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := renderEmailTemplate("missing.html", nil)
	assert.Error(t, err)
}

func TestNewSenderFallsBackToNoop(t *testing.T) {
	sender := NewSender(&config.Config{})
	assert.IsType(t, NoopSender{}, sender)
	assert.NoError(t, sender.SendLowStockAlert(context.Background(), "ops@example.com", LowStockAlert{}))

	sender = NewSender(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, LowStockAlertEmail: "ops@example.com"})
	assert.IsType(t, &SMTPSender{}, sender)
}
