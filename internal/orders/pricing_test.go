package orders

import "testing"

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int
		feeBPS   int
		taxBPS   int
		want     Totals
	}{
		{
			name:     "standard fee",
			subtotal: 10000,
			feeBPS:   350,
			want:     Totals{SubtotalCents: 10000, FeeCents: 350, TotalCents: 10350},
		},
		{
			name:     "fee and tax",
			subtotal: 10000,
			feeBPS:   350,
			taxBPS:   825,
			want:     Totals{SubtotalCents: 10000, FeeCents: 350, TaxCents: 825, TotalCents: 11175},
		},
		{
			name:     "rounds half up to a cent",
			subtotal: 2499,
			feeBPS:   350,
			want:     Totals{SubtotalCents: 2499, FeeCents: 87, TotalCents: 2586},
		},
		{
			name:     "zero subtotal",
			subtotal: 0,
			feeBPS:   350,
			want:     Totals{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTotals(tc.subtotal, tc.feeBPS, tc.taxBPS)
			if got != tc.want {
				t.Fatalf("ComputeTotals(%d, %d, %d) = %+v, want %+v", tc.subtotal, tc.feeBPS, tc.taxBPS, got, tc.want)
			}
		})
	}
}
