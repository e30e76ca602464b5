package workflow

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// loadRefData fetches the fuel-type and category lookups once per
// computation.
func loadRefData(ctx context.Context) (RefData, error) {
	ref := RefData{
		FuelTypes:  map[int]*models.FuelType{},
		Categories: map[int]models.FuelCategoryName{},
	}
	fuelTypes, err := models.ListFuelTypes(ctx)
	if err != nil {
		return ref, err
	}
	for _, ft := range fuelTypes {
		ref.FuelTypes[ft.ID] = ft
	}
	categories, err := models.ListFuelCategories(ctx)
	if err != nil {
		return ref, err
	}
	for _, c := range categories {
		ref.Categories[c.ID] = c.Category
	}
	return ref, nil
}

// jetFuelRequirementRate is the per-period hook for the jet-fuel
// coefficient. No period has prescribed one yet, so every period gets
// zero; when ratified, the rate joins the period configuration.
func jetFuelRequirementRate(period *models.CompliancePeriod) decimal.Decimal {
	return decimal.Zero
}

// gatherSummaryInputs loads everything the engine needs for one report
// version from a single snapshot.
func gatherSummaryInputs(ctx context.Context, db *gorm.DB, report *models.ComplianceReport) (SummaryInputs, error) {
	var in SummaryInputs

	period, err := models.GetCompliancePeriod(ctx, report.CompliancePeriodId)
	if err != nil {
		return in, err
	}
	in.PeriodYear = period.Year()
	in.Rates = RenewableRates{
		Requirement: DefaultRequirementRates(jetFuelRequirementRate(period)),
		Penalty: map[models.FuelCategoryName]decimal.Decimal{
			models.FuelCategoryGasoline: period.RenewablePenaltyRate,
			models.FuelCategoryDiesel:   period.RenewablePenaltyRate,
			models.FuelCategoryJetFuel:  period.RenewablePenaltyRate,
		},
	}
	in.LowCarbonPenaltyRate = period.LowCarbonPenaltyRate

	ref, err := loadRefData(ctx)
	if err != nil {
		return in, err
	}

	supplies, err := models.EffectiveFuelSupplies(ctx, db, report)
	if err != nil {
		return in, err
	}
	exports, err := models.EffectiveFuelExports(ctx, db, report)
	if err != nil {
		return in, err
	}
	notionals, err := models.EffectiveNotionalTransfers(ctx, db, report)
	if err != nil {
		return in, err
	}

	in.Fossil = AggregateFossilVolumes(supplies, ref)
	in.Renewable = AggregateRenewableVolumes(supplies, ref)
	in.Notional = AggregateNotionalVolumes(notionals, ref)
	in.UnitsFromSupply = ComplianceUnitsFromSupply(supplies)
	in.UnitsFromExports = ComplianceUnitsFromExports(exports)

	// Prior-period carry-ins (Lines 7/9) come from the previous period's
	// assessed report, locked from 2025 onward.
	prevPeriod, err := models.PreviousCompliancePeriod(ctx, period)
	if err != nil {
		return in, err
	}
	if prevPeriod != nil {
		prevReport, err := models.PreviousAssessedForPeriod(ctx, db, report.OrganizationId, prevPeriod.ID)
		if err != nil {
			return in, err
		}
		if prevReport != nil {
			prevSummary, err := models.GetSummaryForReport(ctx, db, prevReport.ID)
			if err != nil {
				return in, err
			}
			if prevSummary != nil {
				in.Baseline = &RenewableBaseline{
					PreviousRetained: CategoryVolumes{
						models.FuelCategoryGasoline: prevSummary.Gasoline.Line6Retained,
						models.FuelCategoryDiesel:   prevSummary.Diesel.Line6Retained,
						models.FuelCategoryJetFuel:  prevSummary.JetFuel.Line6Retained,
					},
					PreviousDeferred: CategoryVolumes{
						models.FuelCategoryGasoline: prevSummary.Gasoline.Line8Deferred,
						models.FuelCategoryDiesel:   prevSummary.Diesel.Line8Deferred,
						models.FuelCategoryJetFuel:  prevSummary.JetFuel.Line8Deferred,
					},
					Locked: in.PeriodYear >= 2025,
				}
			}
		}
	}

	// Lines 15/16 come from the assessed sibling of this chain only; a
	// chain without an assessed version has never had credits issued.
	sibling, err := models.LatestAssessedPredecessor(ctx, db, report)
	if err != nil {
		return in, err
	}
	if sibling != nil {
		siblingSummary, err := models.GetSummaryForReport(ctx, db, sibling.ID)
		if err != nil {
			return in, err
		}
		if siblingSummary != nil {
			in.HasAssessedSibling = true
			in.SiblingLine18 = siblingSummary.LowCarbon.Line18IssuedFromSupply
			in.SiblingLine19 = siblingSummary.LowCarbon.Line19IssuedFromExport
		}
	}

	in.AvailableBalance, err = models.AvailableBalanceAtPeriodEnd(ctx, db, report.OrganizationId, period)
	if err != nil {
		return in, err
	}

	in.TransferredAway, in.Received, in.Issued, err = models.PeriodTransferActivity(
		ctx, db, report.OrganizationId, period.PeriodStartLocal(), period.PeriodEndLocal())
	if err != nil {
		return in, err
	}

	return in, nil
}

// persistedUserInputs seeds the engine's user-entered values from the
// stored summary so a plain GET recomputes with the saved Lines 6/8.
func persistedUserInputs(in *SummaryInputs, persisted *models.ComplianceReportSummary) {
	if persisted == nil {
		return
	}
	in.UserRetained = CategoryVolumes{
		models.FuelCategoryGasoline: persisted.Gasoline.Line6Retained,
		models.FuelCategoryDiesel:   persisted.Diesel.Line6Retained,
		models.FuelCategoryJetFuel:  persisted.JetFuel.Line6Retained,
	}
	in.UserDeferred = CategoryVolumes{
		models.FuelCategoryGasoline: persisted.Gasoline.Line8Deferred,
		models.FuelCategoryDiesel:   persisted.Diesel.Line8Deferred,
		models.FuelCategoryJetFuel:  persisted.JetFuel.Line8Deferred,
	}
}

// ComputeReportSummary derives the current summary for a report version
// without persisting anything. Saved user entries and overrides are
// honored.
func ComputeReportSummary(ctx context.Context, reportId int) (*models.ComplianceReportSummary, error) {
	db := config.GetDB()
	report, err := models.GetComplianceReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	persisted, err := models.GetSummaryForReport(ctx, db, reportId)
	if err != nil {
		return nil, err
	}
	if persisted != nil && persisted.IsLocked {
		// A locked summary is the assessed record; recomputing would let
		// later ledger activity rewrite history.
		return persisted, nil
	}

	in, err := gatherSummaryInputs(ctx, db, report)
	if err != nil {
		return nil, err
	}
	persistedUserInputs(&in, persisted)

	summary, err := ComputeSummary(in)
	if err != nil {
		return nil, err
	}
	summary.ComplianceReportId = report.ID
	if persisted != nil {
		summary.ID = persisted.ID
		summary.IsLocked = persisted.IsLocked
		summary.OverrideEnabled = persisted.OverrideEnabled
		summary.OverrideRenewablePenalty = persisted.OverrideRenewablePenalty
		summary.OverrideLowCarbonPenalty = persisted.OverrideLowCarbonPenalty
		summary.OverrideUser = persisted.OverrideUser
		summary.OverrideDate = persisted.OverrideDate
	}
	applyPenaltyOverride(summary, in.PeriodYear)
	return summary, nil
}

// SummarySaveInput is the user-editable slice of the summary.
type SummarySaveInput struct {
	Retained           map[string]int64 `json:"retained"`            // Line 6 by category
	Deferred           map[string]int64 `json:"deferred"`            // Line 8 by category
	PreviouslyRetained map[string]int64 `json:"previously_retained"` // Line 7 by category
	ObligationAdded    map[string]int64 `json:"obligation_added"`    // Line 9 by category

	OverrideEnabled          *bool            `json:"override_enabled,omitempty"`
	OverrideRenewablePenalty *decimal.Decimal `json:"override_renewable_penalty,omitempty"`
	OverrideLowCarbonPenalty *decimal.Decimal `json:"override_low_carbon_penalty,omitempty"`
}

func volumesFromInput(m map[string]int64) CategoryVolumes {
	if m == nil {
		return nil
	}
	v := CategoryVolumes{}
	for name, value := range m {
		switch name {
		case "gasoline":
			v[models.FuelCategoryGasoline] = value
		case "diesel":
			v[models.FuelCategoryDiesel] = value
		case "jet_fuel":
			v[models.FuelCategoryJetFuel] = value
		}
	}
	return v
}

// lockedSaveMatches reports whether every value the input supplies equals
// the one already stored, i.e. the save would change nothing.
func lockedSaveMatches(input SummarySaveInput, persisted *models.ComplianceReportSummary) bool {
	linesMatch := func(m map[string]int64, pick func(models.RenewableLines) int64) bool {
		for name, value := range m {
			var stored int64
			switch name {
			case "gasoline":
				stored = pick(persisted.Gasoline)
			case "diesel":
				stored = pick(persisted.Diesel)
			case "jet_fuel":
				stored = pick(persisted.JetFuel)
			default:
				continue
			}
			if value != stored {
				return false
			}
		}
		return true
	}
	if !linesMatch(input.Retained, func(l models.RenewableLines) int64 { return l.Line6Retained }) {
		return false
	}
	if !linesMatch(input.Deferred, func(l models.RenewableLines) int64 { return l.Line8Deferred }) {
		return false
	}
	if !linesMatch(input.PreviouslyRetained, func(l models.RenewableLines) int64 { return l.Line7PreviouslyRetained }) {
		return false
	}
	if !linesMatch(input.ObligationAdded, func(l models.RenewableLines) int64 { return l.Line9ObligationAdded }) {
		return false
	}
	if input.OverrideEnabled != nil && *input.OverrideEnabled != persisted.OverrideEnabled {
		return false
	}
	if input.OverrideRenewablePenalty != nil &&
		(persisted.OverrideRenewablePenalty == nil || !input.OverrideRenewablePenalty.Equal(*persisted.OverrideRenewablePenalty)) {
		return false
	}
	if input.OverrideLowCarbonPenalty != nil &&
		(persisted.OverrideLowCarbonPenalty == nil || !input.OverrideLowCarbonPenalty.Equal(*persisted.OverrideLowCarbonPenalty)) {
		return false
	}
	return true
}

// SaveReportSummary writes user-entered values subject to the cap and
// lock rules, recomputes every derived line, and upserts the single
// summary row.
func SaveReportSummary(ctx context.Context, reportId int, input SummarySaveInput) (*models.ComplianceReportSummary, error) {
	db := config.GetDB()
	report, err := models.GetComplianceReport(ctx, reportId)
	if err != nil {
		return nil, err
	}

	var saved *models.ComplianceReportSummary
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		persisted, err := models.GetSummaryForReport(ctx, tx, reportId)
		if err != nil {
			return err
		}
		if persisted != nil && persisted.IsLocked {
			// A save that changes nothing is allowed through; only a
			// value that departs from the locked record is rejected.
			if lockedSaveMatches(input, persisted) {
				saved = persisted
				return nil
			}
			return utils.NewDomainError("summary is locked", map[string]string{"summary": "locked after submission"})
		}
		if !report.Editable() {
			return utils.NewDomainError("summary can only change while the report is in draft", map[string]string{"status": string(report.Status)})
		}

		in, err := gatherSummaryInputs(ctx, tx, report)
		if err != nil {
			return err
		}
		in.UserRetained = volumesFromInput(input.Retained)
		in.UserDeferred = volumesFromInput(input.Deferred)
		in.UserPrevRetained = volumesFromInput(input.PreviouslyRetained)
		in.UserObligationAdded = volumesFromInput(input.ObligationAdded)

		summary, err := ComputeSummary(in)
		if err != nil {
			return err
		}
		summary.ComplianceReportId = report.ID
		if persisted != nil {
			summary.ID = persisted.ID
			summary.OverrideEnabled = persisted.OverrideEnabled
			summary.OverrideRenewablePenalty = persisted.OverrideRenewablePenalty
			summary.OverrideLowCarbonPenalty = persisted.OverrideLowCarbonPenalty
			summary.OverrideUser = persisted.OverrideUser
			summary.OverrideDate = persisted.OverrideDate
			summary.AuditFields = persisted.AuditFields
		}

		if input.OverrideEnabled != nil {
			if *input.OverrideEnabled && in.PeriodYear < 2024 {
				return utils.NewDomainError("penalty override is not available before 2024", map[string]string{"override_enabled": "unsupported for this period"})
			}
			summary.OverrideEnabled = *input.OverrideEnabled
			if summary.OverrideEnabled {
				summary.OverrideRenewablePenalty = input.OverrideRenewablePenalty
				summary.OverrideLowCarbonPenalty = input.OverrideLowCarbonPenalty
				summary.OverrideUser = utils.GetUsernameFromContext(ctx)
				now := time.Now().UTC()
				summary.OverrideDate = &now
			} else {
				summary.OverrideRenewablePenalty = nil
				summary.OverrideLowCarbonPenalty = nil
				summary.OverrideUser = ""
				summary.OverrideDate = nil
			}
		}
		applyPenaltyOverride(summary, in.PeriodYear)

		if err := models.UpsertSummary(ctx, tx, summary); err != nil {
			return err
		}
		saved = summary
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
