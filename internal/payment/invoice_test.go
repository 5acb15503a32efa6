package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDescribeInvoiceRejectsGarbage(t *testing.T) {
	_, err := DescribeInvoice("not-an-invoice")
	assert.Error(t, err)

	_, err = DescribeInvoice("")
	assert.Error(t, err)
}

func TestPresentInvoice(t *testing.T) {
	const invoice = "lnbc210n1fakeinvoicefortesting"
	var buf strings.Builder

	PresentInvoice(&buf, invoice, 21, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	out := buf.String()

	assert.Contains(t, out, "Scan to pay:")
	assert.Contains(t, out, invoice, "raw invoice text is always printed")
	assert.Contains(t, out, "Amount: 21 sats")
	assert.Contains(t, out, "Expires:")
	assert.Contains(t, out, "█", "QR block characters are rendered")
}

func TestPresentInvoiceOmitsUnknownFields(t *testing.T) {
	var buf strings.Builder
	PresentInvoice(&buf, "lnbc1fake", 0, time.Time{})
	out := buf.String()

	assert.NotContains(t, out, "Amount:")
	assert.NotContains(t, out, "Expires:")
}
