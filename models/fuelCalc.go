package models

import "github.com/shopspring/decimal"

// CarbonIntensityInputs are the denormalized factors snapshotted onto a
// fuel row at save time, so the row's credit stays reproducible even after
// reference data changes.
type CarbonIntensityInputs struct {
	TargetCi      decimal.Decimal // TCI of the fuel category for the period, gCO2e/MJ
	Eer           decimal.Decimal // energy effectiveness ratio
	Ci            decimal.Decimal // recorded carbon intensity of the fuel, gCO2e/MJ
	Uci           decimal.Decimal // additional carbon intensity of use, gCO2e/MJ
	EnergyDensity decimal.Decimal // MJ per unit
	Quantity      decimal.Decimal // units supplied
}

var oneMillion = decimal.NewFromInt(1_000_000)

// ComplianceUnitsForRow applies the credit formula
//
//	(TCI x EER - (CI + UCI)) x ED x Q / 1_000_000
//
// in exact decimal arithmetic, rounding half away from zero to a whole
// unit at the end.
// Positive results are credits, negative results are debits.
func ComplianceUnitsForRow(in CarbonIntensityInputs) int64 {
	delta := in.TargetCi.Mul(in.Eer).Sub(in.Ci.Add(in.Uci))
	units := delta.Mul(in.EnergyDensity).Mul(in.Quantity).Div(oneMillion)
	return units.Round(0).IntPart()
}

// AnnualQuantity folds the quarterly columns into the annual total when a
// row is reported quarterly; otherwise the annual quantity stands alone.
func AnnualQuantity(quantity decimal.Decimal, q1, q2, q3, q4 *decimal.Decimal) decimal.Decimal {
	if q1 == nil && q2 == nil && q3 == nil && q4 == nil {
		return quantity
	}
	total := decimal.Zero
	for _, q := range []*decimal.Decimal{q1, q2, q3, q4} {
		if q != nil {
			total = total.Add(*q)
		}
	}
	return total
}
