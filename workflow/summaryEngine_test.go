package workflow

import (
	"testing"
	"time"

	"github.com/bcgov/lcfs/models"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. The engine takes all of its
// inputs up front, so the line derivations, caps and penalty rules can be
// checked without MySQL.

func testRates() RenewableRates {
	return RenewableRates{
		Requirement: DefaultRequirementRates(decimal.Zero),
		Penalty: map[models.FuelCategoryName]decimal.Decimal{
			models.FuelCategoryGasoline: decimal.NewFromFloat(0.30),
			models.FuelCategoryDiesel:   decimal.NewFromFloat(0.45),
			models.FuelCategoryJetFuel:  decimal.NewFromFloat(0.50),
		},
	}
}

func gasOnly(v int64) CategoryVolumes {
	return CategoryVolumes{models.FuelCategoryGasoline: v}
}

func dieselOnly(v int64) CategoryVolumes {
	return CategoryVolumes{models.FuelCategoryDiesel: v}
}

func TestComputeSummary_RenewableLineDerivation(t *testing.T) {
	in := SummaryInputs{
		PeriodYear: 2024,
		Fossil:     gasOnly(900_000),
		Renewable:  gasOnly(100_000),
		Rates:      testRates(),
	}

	summary, err := ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}

	g := summary.Gasoline
	if g.Line3TrackedTotal != 1_000_000 {
		t.Errorf("line 3 = %d, want 1000000", g.Line3TrackedTotal)
	}
	if g.Line4RenewableRequired != 50_000 {
		t.Errorf("line 4 = %d, want 50000 (5%% of tracked total)", g.Line4RenewableRequired)
	}
	if g.Line10NetSupplied != 100_000 {
		t.Errorf("line 10 = %d, want 100000", g.Line10NetSupplied)
	}
	if !g.Line11Penalty.IsZero() {
		t.Errorf("line 11 = %s, want 0 for a surplus", g.Line11Penalty)
	}
	// Jet fuel has no prescribed coefficient, so its requirement stays 0.
	if summary.JetFuel.Line4RenewableRequired != 0 {
		t.Errorf("jet fuel line 4 = %d, want 0", summary.JetFuel.Line4RenewableRequired)
	}
}

func TestComputeSummary_RetentionClampedToCapAndExcess(t *testing.T) {
	in := SummaryInputs{
		PeriodYear:   2024,
		Fossil:       gasOnly(900_000),
		Renewable:    gasOnly(100_000),
		UserRetained: gasOnly(10_000), // far above the 5% cap
		Rates:        testRates(),
	}

	summary, err := ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}

	// Requirement 50000, excess 50000, cap floor(50000*0.05) = 2500.
	if got := summary.Gasoline.Line6Retained; got != 2_500 {
		t.Errorf("line 6 = %d, want 2500", got)
	}
	if got := summary.Gasoline.Line10NetSupplied; got != 97_500 {
		t.Errorf("line 10 = %d, want 97500", got)
	}
}

func TestComputeSummary_RetentionZeroWithoutExcess(t *testing.T) {
	in := SummaryInputs{
		PeriodYear:   2024,
		Fossil:       gasOnly(1_000_000),
		Renewable:    gasOnly(10_000), // below the requirement
		UserRetained: gasOnly(500),
		Rates:        testRates(),
	}

	summary, err := ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}
	if got := summary.Gasoline.Line6Retained; got != 0 {
		t.Errorf("line 6 = %d, want 0 when there is no excess", got)
	}
}

func TestComputeSummary_DeferralClampAndShortfallPenalty(t *testing.T) {
	in := SummaryInputs{
		PeriodYear:   2024,
		Fossil:       dieselOnly(1_000_000),
		Renewable:    dieselOnly(20_000),
		UserDeferred: dieselOnly(5_000),
		Rates:        testRates(),
	}

	summary, err := ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}

	d := summary.Diesel
	// Requirement 4% of 1020000 = 40800; cap floor(40800*0.05) = 2040.
	if d.Line4RenewableRequired != 40_800 {
		t.Fatalf("line 4 = %d, want 40800", d.Line4RenewableRequired)
	}
	if d.Line8Deferred != 2_040 {
		t.Errorf("line 8 = %d, want 2040 (clamped to cap)", d.Line8Deferred)
	}
	if d.Line10NetSupplied != 22_040 {
		t.Errorf("line 10 = %d, want 22040", d.Line10NetSupplied)
	}
	// Shortfall 18760 at $0.45/L.
	wantPenalty := decimal.NewFromInt(18_760).Mul(decimal.NewFromFloat(0.45))
	if !d.Line11Penalty.Equal(wantPenalty) {
		t.Errorf("line 11 = %s, want %s", d.Line11Penalty, wantPenalty)
	}
	if !summary.RenewablePenaltyTotal.Equal(wantPenalty) {
		t.Errorf("renewable penalty total = %s, want %s", summary.RenewablePenaltyTotal, wantPenalty)
	}
}

func TestComputeSummary_LockedCarryInsRejectEdits(t *testing.T) {
	in := SummaryInputs{
		PeriodYear: 2025,
		Fossil:     gasOnly(1_000_000),
		Renewable:  gasOnly(60_000),
		Baseline: &RenewableBaseline{
			PreviousRetained: gasOnly(1_000),
			Locked:           true,
		},
		UserPrevRetained: gasOnly(999), // differs from the assessed prior period
		Rates:            testRates(),
	}

	if _, err := ComputeSummary(in); err == nil {
		t.Fatal("expected a domain error for editing a locked carry-in")
	}

	// The assessed value itself passes through untouched.
	in.UserPrevRetained = gasOnly(1_000)
	summary, err := ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}
	if got := summary.Gasoline.Line7PreviouslyRetained; got != 1_000 {
		t.Errorf("line 7 = %d, want 1000", got)
	}
}

func TestComputeSummary_BaselineCarryInsMayCoexist(t *testing.T) {
	// A prior period can assess both a retention and a deferral (in
	// different circumstances across its own categories); the next
	// period's carry-ins must reproduce that pair, not reject it.
	in := SummaryInputs{
		PeriodYear: 2025,
		Fossil:     gasOnly(1_000_000),
		Renewable:  gasOnly(60_000),
		Baseline: &RenewableBaseline{
			PreviousRetained: gasOnly(1_000),
			PreviousDeferred: gasOnly(500),
			Locked:           true,
		},
		Rates: testRates(),
	}

	summary, err := ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}
	if got := summary.Gasoline.Line7PreviouslyRetained; got != 1_000 {
		t.Errorf("line 7 = %d, want 1000", got)
	}
	if got := summary.Gasoline.Line9ObligationAdded; got != 500 {
		t.Errorf("line 9 = %d, want 500", got)
	}

	// Attempts to move either value off the assessed record still fail.
	in.UserObligationAdded = gasOnly(501)
	if _, err := ComputeSummary(in); err == nil {
		t.Fatal("expected a domain error for editing a locked carry-in")
	}

	// Before the lock the pair also survives a verbatim echo; only an
	// entry that departs from the assessed record trips the exclusion.
	in.Baseline.Locked = false
	in.UserPrevRetained = gasOnly(1_000)
	in.UserObligationAdded = gasOnly(500)
	if _, err := ComputeSummary(in); err != nil {
		t.Fatalf("ComputeSummary with echoed carry-ins: %v", err)
	}
	in.UserObligationAdded = gasOnly(700)
	if _, err := ComputeSummary(in); err == nil {
		t.Fatal("expected a domain error for combining an edited line 9 with line 7")
	}
}

func TestComputeSummary_RetainedAndObligationMutuallyExclusive(t *testing.T) {
	in := SummaryInputs{
		PeriodYear:          2024,
		Fossil:              gasOnly(1_000_000),
		UserPrevRetained:    gasOnly(100),
		UserObligationAdded: gasOnly(50),
		Rates:               testRates(),
	}
	if _, err := ComputeSummary(in); err == nil {
		t.Fatal("expected a domain error for combining lines 7 and 9")
	}
}

func TestComputeSummary_LowCarbonNegativeEndingBalance(t *testing.T) {
	in := SummaryInputs{
		PeriodYear:           2024,
		Rates:                testRates(),
		AvailableBalance:     100,
		UnitsFromSupply:      -250,
		UnitsFromExports:     -50,
		LowCarbonPenaltyRate: decimal.NewFromInt(600),
	}

	summary, err := ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}

	lc := summary.LowCarbon
	if lc.Line20BalanceChange != -300 {
		t.Errorf("line 20 = %d, want -300", lc.Line20BalanceChange)
	}
	if lc.Line22EndingBalance != 0 {
		t.Errorf("line 22 = %d, want 0 when the balance goes negative", lc.Line22EndingBalance)
	}
	wantPenalty := decimal.NewFromInt(200).Mul(decimal.NewFromInt(600))
	if !lc.Line21Penalty.Equal(wantPenalty) {
		t.Errorf("line 21 = %s, want %s", lc.Line21Penalty, wantPenalty)
	}
}

func TestComputeSummary_SiblingBaselinesOnlyWhenAssessed(t *testing.T) {
	in := SummaryInputs{
		PeriodYear:       2024,
		Rates:            testRates(),
		SiblingLine18:    400,
		SiblingLine19:    -100,
		UnitsFromSupply:  500,
		UnitsFromExports: -100,
		AvailableBalance: 1_000,
	}

	// No assessed sibling: lines 15/16 stay zero, the full issuance counts.
	summary, err := ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}
	if summary.LowCarbon.Line15PreviouslyIssued != 0 || summary.LowCarbon.Line16PreviouslyExported != 0 {
		t.Errorf("lines 15/16 = %d/%d, want 0/0 without an assessed sibling",
			summary.LowCarbon.Line15PreviouslyIssued, summary.LowCarbon.Line16PreviouslyExported)
	}
	if summary.LowCarbon.Line20BalanceChange != 400 {
		t.Errorf("line 20 = %d, want 400", summary.LowCarbon.Line20BalanceChange)
	}

	// With an assessed sibling only the delta flows through.
	in.HasAssessedSibling = true
	summary, err = ComputeSummary(in)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}
	if summary.LowCarbon.Line20BalanceChange != 100 {
		t.Errorf("line 20 = %d, want 100 (delta over the assessed sibling)", summary.LowCarbon.Line20BalanceChange)
	}
}

func TestApplyPenaltyOverride(t *testing.T) {
	renewable := decimal.NewFromInt(1_234)
	lowCarbon := decimal.NewFromInt(5_000)
	now := time.Now()

	summary := &models.ComplianceReportSummary{
		RenewablePenaltyTotal:    decimal.NewFromInt(10),
		LowCarbonPenaltyTotal:    decimal.NewFromInt(20),
		TotalPenalty:             decimal.NewFromInt(30),
		OverrideEnabled:          true,
		OverrideRenewablePenalty: &renewable,
		OverrideLowCarbonPenalty: &lowCarbon,
		OverrideUser:             "director",
		OverrideDate:             &now,
	}

	applyPenaltyOverride(summary, 2024)
	if !summary.TotalPenalty.Equal(renewable.Add(lowCarbon)) {
		t.Errorf("total penalty = %s, want %s", summary.TotalPenalty, renewable.Add(lowCarbon))
	}
	if !summary.RenewablePenaltyTotal.Equal(renewable) {
		t.Errorf("renewable total = %s, want override %s", summary.RenewablePenaltyTotal, renewable)
	}

	// Pre-2024 periods have no override feature; the fields are cleared and
	// the computed totals stand.
	summary2 := &models.ComplianceReportSummary{
		RenewablePenaltyTotal:    decimal.NewFromInt(10),
		LowCarbonPenaltyTotal:    decimal.NewFromInt(20),
		TotalPenalty:             decimal.NewFromInt(30),
		OverrideEnabled:          true,
		OverrideRenewablePenalty: &renewable,
	}
	applyPenaltyOverride(summary2, 2023)
	if summary2.OverrideEnabled || summary2.OverrideRenewablePenalty != nil {
		t.Error("override fields should be cleared for pre-2024 periods")
	}
	if !summary2.TotalPenalty.Equal(decimal.NewFromInt(30)) {
		t.Errorf("total penalty = %s, want computed 30", summary2.TotalPenalty)
	}
}
