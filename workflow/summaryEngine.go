package workflow

import (
	"fmt"

	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
)

// RenewableRates are the period's prescribed requirement percentages and
// per-litre penalty rates, keyed by fuel category.
type RenewableRates struct {
	Requirement map[models.FuelCategoryName]decimal.Decimal
	Penalty     map[models.FuelCategoryName]decimal.Decimal
}

// DefaultRequirementRates returns the statutory percentages: 5% gasoline,
// 4% diesel. Jet fuel stays at zero until a coefficient is prescribed; the
// per-period override hook lets a future period turn it on.
func DefaultRequirementRates(jetFuel decimal.Decimal) map[models.FuelCategoryName]decimal.Decimal {
	return map[models.FuelCategoryName]decimal.Decimal{
		models.FuelCategoryGasoline: decimal.NewFromFloat(0.05),
		models.FuelCategoryDiesel:   decimal.NewFromFloat(0.04),
		models.FuelCategoryJetFuel:  jetFuel,
	}
}

// RenewableBaseline carries the prior period's assessed retention and
// deferral, which become this period's carry-ins.
type RenewableBaseline struct {
	PreviousRetained CategoryVolumes // prior period Line 6
	PreviousDeferred CategoryVolumes // prior period Line 8
	Locked           bool            // carry-ins read-only (2025 onward)
}

// SummaryInputs is everything the engine needs, gathered up front so the
// computation itself is deterministic and free of I/O.
type SummaryInputs struct {
	PeriodYear int

	Fossil    CategoryVolumes
	Renewable CategoryVolumes
	Notional  CategoryVolumes

	// User-entered values; nil maps mean "not supplied".
	UserRetained        CategoryVolumes // Line 6
	UserDeferred        CategoryVolumes // Line 8
	UserPrevRetained    CategoryVolumes // Line 7, validated against the baseline when locked
	UserObligationAdded CategoryVolumes // Line 9

	Baseline *RenewableBaseline // nil when no prior-period assessed report exists
	Rates    RenewableRates

	TransferredAway int64 // Line 12
	Received        int64 // Line 13
	Issued          int64 // Line 14

	HasAssessedSibling bool
	SiblingLine18      int64
	SiblingLine19      int64

	AvailableBalance int64 // Line 17
	UnitsFromSupply  int64 // Line 18
	UnitsFromExports int64 // Line 19

	LowCarbonPenaltyRate decimal.Decimal
}

func volumeOf(v CategoryVolumes, category models.FuelCategoryName) int64 {
	if v == nil {
		return 0
	}
	return v[category]
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// categoryKey names a line field in domain errors, e.g. "gasoline.line_7".
func categoryKey(category models.FuelCategoryName, line int) string {
	switch category {
	case models.FuelCategoryGasoline:
		return fmt.Sprintf("gasoline.line_%d", line)
	case models.FuelCategoryDiesel:
		return fmt.Sprintf("diesel.line_%d", line)
	default:
		return fmt.Sprintf("jet_fuel.line_%d", line)
	}
}

// computeRenewableLines derives Lines 1 through 11 for one category,
// applying the retention/deferral caps and carry-in rules in order.
func computeRenewableLines(in SummaryInputs, category models.FuelCategoryName) (models.RenewableLines, error) {
	var lines models.RenewableLines

	lines.Line1FossilSupplied = volumeOf(in.Fossil, category)
	lines.Line2RenewableSupplied = volumeOf(in.Renewable, category)
	lines.Line3TrackedTotal = lines.Line1FossilSupplied + lines.Line2RenewableSupplied

	rate := in.Rates.Requirement[category]
	lines.Line4RenewableRequired = decimal.NewFromInt(lines.Line3TrackedTotal).Mul(rate).Round(0).IntPart()

	lines.Line5NetNotional = volumeOf(in.Notional, category)

	// Carry-ins come from the prior period's assessed report. Before the
	// 2025 lock they may be user-supplied.
	var baselineRetained, baselineDeferred int64
	if in.Baseline != nil {
		baselineRetained = volumeOf(in.Baseline.PreviousRetained, category)
		baselineDeferred = volumeOf(in.Baseline.PreviousDeferred, category)
	}
	lines.Line7PreviouslyRetained = baselineRetained
	lines.Line9ObligationAdded = baselineDeferred
	locked := in.Baseline != nil && in.Baseline.Locked
	userEntered := false
	if locked {
		if in.UserPrevRetained != nil && volumeOf(in.UserPrevRetained, category) != baselineRetained {
			return lines, utils.NewDomainError("previously retained fuel is locked for this period",
				map[string]string{categoryKey(category, 7): "value is locked to the assessed prior period"})
		}
		if in.UserObligationAdded != nil && volumeOf(in.UserObligationAdded, category) != baselineDeferred {
			return lines, utils.NewDomainError("added obligation is locked for this period",
				map[string]string{categoryKey(category, 9): "value is locked to the assessed prior period"})
		}
	} else {
		if in.UserPrevRetained != nil {
			lines.Line7PreviouslyRetained = volumeOf(in.UserPrevRetained, category)
			userEntered = userEntered || lines.Line7PreviouslyRetained != baselineRetained
		}
		if in.UserObligationAdded != nil {
			lines.Line9ObligationAdded = volumeOf(in.UserObligationAdded, category)
			userEntered = userEntered || lines.Line9ObligationAdded != baselineDeferred
		}
	}
	// A prior period may legitimately leave both a retention and a
	// deferral behind; carry-ins reproduce the assessed record as-is.
	// Only a user entry that departs from it is barred from combining
	// the two.
	if userEntered && lines.Line7PreviouslyRetained != 0 && lines.Line9ObligationAdded != 0 {
		return lines, utils.NewDomainError("previously retained fuel and added obligation are mutually exclusive",
			map[string]string{
				categoryKey(category, 7): "cannot be combined with an added obligation",
				categoryKey(category, 9): "cannot be combined with previously retained fuel",
			})
	}

	capLimit := decimal.NewFromInt(lines.Line4RenewableRequired).
		Mul(decimal.NewFromFloat(0.05)).Floor().IntPart()

	// Retention: only an excess over the requirement may be retained, up
	// to 5% of the requirement. Out-of-range entries clamp silently.
	retained := volumeOf(in.UserRetained, category)
	if excess := lines.Line2RenewableSupplied - lines.Line4RenewableRequired; excess > 0 {
		if retained < 0 {
			retained = 0
		}
		retained = min64(retained, min64(excess, capLimit))
	} else {
		retained = 0
	}
	lines.Line6Retained = retained

	// Deferral mirrors retention on the deficiency side.
	deferred := volumeOf(in.UserDeferred, category)
	if deficiency := lines.Line4RenewableRequired - lines.Line2RenewableSupplied; deficiency > 0 {
		if deferred < 0 {
			deferred = 0
		}
		deferred = min64(deferred, min64(deficiency, capLimit))
	} else {
		deferred = 0
	}
	lines.Line8Deferred = deferred

	lines.Line10NetSupplied = lines.Line2RenewableSupplied + lines.Line5NetNotional -
		lines.Line6Retained + lines.Line7PreviouslyRetained +
		lines.Line8Deferred - lines.Line9ObligationAdded

	shortfall := lines.Line4RenewableRequired - lines.Line10NetSupplied
	if shortfall < 0 {
		shortfall = 0
	}
	lines.Line11Penalty = decimal.NewFromInt(shortfall).Mul(in.Rates.Penalty[category])

	return lines, nil
}

// computeLowCarbonLines derives Lines 12 through 22. Lines 15/16 come from
// the assessed sibling only; a chain with no assessed version has never
// had credits issued, so the baselines stay zero.
func computeLowCarbonLines(in SummaryInputs) models.LowCarbonLines {
	var lines models.LowCarbonLines

	lines.Line12TransferredAway = in.TransferredAway
	lines.Line13Received = in.Received
	lines.Line14Issued = in.Issued

	if in.HasAssessedSibling {
		lines.Line15PreviouslyIssued = in.SiblingLine18
		lines.Line16PreviouslyExported = in.SiblingLine19
	}

	lines.Line17AvailableBalance = in.AvailableBalance
	lines.Line18IssuedFromSupply = in.UnitsFromSupply
	lines.Line19IssuedFromExport = in.UnitsFromExports

	lines.Line20BalanceChange = lines.Line18IssuedFromSupply + lines.Line19IssuedFromExport -
		lines.Line15PreviouslyIssued - lines.Line16PreviouslyExported

	ending := lines.Line17AvailableBalance + lines.Line20BalanceChange
	if ending < 0 {
		lines.Line21Penalty = decimal.NewFromInt(-ending).Mul(in.LowCarbonPenaltyRate)
		lines.Line22EndingBalance = 0
	} else {
		lines.Line21Penalty = decimal.Zero
		lines.Line22EndingBalance = ending
	}
	return lines
}

// ComputeSummary runs the whole engine: all three renewable categories,
// the low-carbon block, and the penalty totals. Overrides are applied
// afterwards by applyPenaltyOverride so the derived lines stay untouched.
func ComputeSummary(in SummaryInputs) (*models.ComplianceReportSummary, error) {
	summary := &models.ComplianceReportSummary{}

	for _, category := range models.AllFuelCategories() {
		lines, err := computeRenewableLines(in, category)
		if err != nil {
			return nil, err
		}
		*summary.CategoryLines(category) = lines
	}

	summary.LowCarbon = computeLowCarbonLines(in)

	summary.RenewablePenaltyTotal = summary.Gasoline.Line11Penalty.
		Add(summary.Diesel.Line11Penalty).
		Add(summary.JetFuel.Line11Penalty)
	summary.LowCarbonPenaltyTotal = summary.LowCarbon.Line21Penalty
	summary.TotalPenalty = summary.RenewablePenaltyTotal.Add(summary.LowCarbonPenaltyTotal)

	return summary, nil
}

// applyPenaltyOverride replaces the penalty totals with the stored manual
// override when enabled. Overrides exist only from 2024 onward; for older
// periods the fields are cleared. Derived lines are never altered.
func applyPenaltyOverride(summary *models.ComplianceReportSummary, periodYear int) {
	if periodYear < 2024 {
		summary.OverrideEnabled = false
		summary.OverrideRenewablePenalty = nil
		summary.OverrideLowCarbonPenalty = nil
		summary.OverrideUser = ""
		summary.OverrideDate = nil
		return
	}
	if !summary.OverrideEnabled {
		return
	}
	renewable := decimal.Zero
	if summary.OverrideRenewablePenalty != nil {
		renewable = *summary.OverrideRenewablePenalty
	}
	lowCarbon := decimal.Zero
	if summary.OverrideLowCarbonPenalty != nil {
		lowCarbon = *summary.OverrideLowCarbonPenalty
	}
	summary.RenewablePenaltyTotal = renewable
	summary.LowCarbonPenaltyTotal = lowCarbon
	summary.TotalPenalty = renewable.Add(lowCarbon)
}
