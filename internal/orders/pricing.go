package orders

import "github.com/shopspring/decimal"

// Totals breaks an order's charge into its integer-cent components.
type Totals struct {
	SubtotalCents int `json:"subtotal_cents"`
	FeeCents      int `json:"fee_cents"`
	TaxCents      int `json:"tax_cents"`
	TotalCents    int `json:"total_cents"`
}

var bpsDivisor = decimal.NewFromInt(10000)

// ComputeTotals derives the service fee and tax from the subtotal using basis
// points. Each component is rounded half-up to a whole cent independently, so
// total == subtotal + fee + tax always holds.
func ComputeTotals(subtotalCents, serviceFeeBPS, taxBPS int) Totals {
	subtotal := decimal.NewFromInt(int64(subtotalCents))
	fee := applyBPS(subtotal, serviceFeeBPS)
	tax := applyBPS(subtotal, taxBPS)
	return Totals{
		SubtotalCents: subtotalCents,
		FeeCents:      fee,
		TaxCents:      tax,
		TotalCents:    subtotalCents + fee + tax,
	}
}

func applyBPS(amount decimal.Decimal, bps int) int {
	if bps <= 0 {
		return 0
	}
	return int(amount.Mul(decimal.NewFromInt(int64(bps))).Div(bpsDivisor).Round(0).IntPart())
}
