package models

import "testing"

// availableBalance receives sums the queries have already signed: the
// future-dated debit components arrive as negative numbers.
func TestAvailableBalance(t *testing.T) {
	cases := []struct {
		name string
		in   BalanceComponents
		want int64
	}{
		{
			name: "mixed history with future-dated debits",
			in: BalanceComponents{
				// Adjustments within the period: 2000 + 500 - 300 + 100.
				AdjustmentsThroughPeriodEnd: 2_300,
				FutureNegativeAdjustments:   -1_000,
				FutureReservedNegative:      -200,
			},
			want: 1_100,
		},
		{
			name: "no activity",
			in:   BalanceComponents{},
			want: 0,
		},
		{
			name: "future debits exceed the balance, floored at zero",
			in: BalanceComponents{
				AdjustmentsThroughPeriodEnd: 500,
				FutureNegativeAdjustments:   -400,
				FutureReservedNegative:      -300,
			},
			want: 0,
		},
		{
			name: "future positives never inflate the balance",
			in: BalanceComponents{
				AdjustmentsThroughPeriodEnd: 1_000,
				// The queries only sum negative future entries, so these
				// components are never positive.
				FutureNegativeAdjustments: 0,
				FutureReservedNegative:    0,
			},
			want: 1_000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := availableBalance(tc.in); got != tc.want {
				t.Errorf("availableBalance = %d, want %d", got, tc.want)
			}
		})
	}
}
