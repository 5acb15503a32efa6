package payment

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	decodepay "github.com/nbd-wtf/ln-decodepay"
)

// Details summarises a bolt11 invoice for display and cross-checking.
type Details struct {
	AmountSats  int64
	Description string
	PaymentHash string
}

// DescribeInvoice decodes a bolt11 string into display fields.
func DescribeInvoice(bolt11 string) (Details, error) {
	inv, err := decodepay.Decodepay(bolt11)
	if err != nil {
		return Details{}, fmt.Errorf("decode invoice: %w", err)
	}
	return Details{
		AmountSats:  inv.MSatoshi / 1000,
		Description: inv.Description,
		PaymentHash: inv.PaymentHash,
	}, nil
}

// PresentInvoice renders the invoice as a terminal QR code followed by the
// raw string, amount, and expiry. The QR payload is uppercased to stay in
// the denser alphanumeric encoding.
func PresentInvoice(w io.Writer, invoice string, amountSats int64, expiresAt time.Time) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Scan to pay:")
	fmt.Fprintln(w)
	qrterminal.GenerateHalfBlock(strings.ToUpper(invoice), qrterminal.L, w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Or copy the invoice:")
	fmt.Fprintln(w, invoice)
	if amountSats > 0 {
		fmt.Fprintf(w, "\nAmount: %d sats\n", amountSats)
	}
	if !expiresAt.IsZero() {
		fmt.Fprintf(w, "Expires: %s\n", expiresAt.Local().Format(time.RFC1123))
	}
}
