package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func TestComplianceUnitsForRow(t *testing.T) {
	cases := []struct {
		name string
		in   CarbonIntensityInputs
		want int64
	}{
		{
			name: "credit for a fuel below target",
			in: CarbonIntensityInputs{
				TargetCi:      d("80"),
				Eer:           d("1"),
				Ci:            d("70"),
				Uci:           d("0"),
				EnergyDensity: d("35"),
				Quantity:      d("1000000"),
			},
			// (80*1 - 70) * 35 * 1000000 / 1e6 = 350
			want: 350,
		},
		{
			name: "debit for a fuel above target",
			in: CarbonIntensityInputs{
				TargetCi:      d("80"),
				Eer:           d("1"),
				Ci:            d("95"),
				Uci:           d("5"),
				EnergyDensity: d("38.65"),
				Quantity:      d("100000"),
			},
			// (80 - 100) * 38.65 * 100000 / 1e6 = -77.3 -> -77
			want: -77,
		},
		{
			name: "eer scales the target",
			in: CarbonIntensityInputs{
				TargetCi:      d("80"),
				Eer:           d("2.5"),
				Ci:            d("12"),
				Uci:           d("0"),
				EnergyDensity: d("3.6"),
				Quantity:      d("500000"),
			},
			// (200 - 12) * 3.6 * 500000 / 1e6 = 338.4 -> 338
			want: 338,
		},
		{
			name: "rounds half away from zero",
			in: CarbonIntensityInputs{
				TargetCi:      d("80"),
				Eer:           d("1"),
				Ci:            d("79.5"),
				Uci:           d("0"),
				EnergyDensity: d("1"),
				Quantity:      d("1000000"),
			},
			// 0.5 * 1 * 1000000 / 1e6 = 0.5 -> 1
			want: 1,
		},
		{
			name: "negative half rounds away from zero",
			in: CarbonIntensityInputs{
				TargetCi:      d("80"),
				Eer:           d("1"),
				Ci:            d("80.5"),
				Uci:           d("0"),
				EnergyDensity: d("1"),
				Quantity:      d("1000000"),
			},
			want: -1,
		},
		{
			name: "zero quantity is zero units",
			in: CarbonIntensityInputs{
				TargetCi:      d("80"),
				Eer:           d("1"),
				Ci:            d("10"),
				EnergyDensity: d("35"),
				Quantity:      d("0"),
			},
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComplianceUnitsForRow(tc.in); got != tc.want {
				t.Errorf("ComplianceUnitsForRow = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAnnualQuantity(t *testing.T) {
	q := func(v string) *decimal.Decimal {
		out := d(v)
		return &out
	}

	// No quarterly columns: the annual figure stands.
	if got := AnnualQuantity(d("1000"), nil, nil, nil, nil); !got.Equal(d("1000")) {
		t.Errorf("annual-only = %s, want 1000", got)
	}

	// Any quarterly column present: quarters replace the annual figure.
	if got := AnnualQuantity(d("999"), q("100"), q("200"), nil, q("50")); !got.Equal(d("350")) {
		t.Errorf("quarterly fold = %s, want 350", got)
	}
}
