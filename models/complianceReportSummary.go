package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RenewableLines holds the renewable-fuel-target summary for one fuel
// category. Lines 1 through 10 are whole litre-equivalents; Line 11 is the
// non-compliance penalty in dollars.
type RenewableLines struct {
	Line1FossilSupplied     int64           `json:"line_1_fossil_supplied"`
	Line2RenewableSupplied  int64           `json:"line_2_renewable_supplied"`
	Line3TrackedTotal       int64           `json:"line_3_tracked_total"`
	Line4RenewableRequired  int64           `json:"line_4_renewable_required"`
	Line5NetNotional        int64           `json:"line_5_net_notional"`
	Line6Retained           int64           `json:"line_6_retained"`
	Line7PreviouslyRetained int64           `json:"line_7_previously_retained"`
	Line8Deferred           int64           `json:"line_8_deferred"`
	Line9ObligationAdded    int64           `json:"line_9_obligation_added"`
	Line10NetSupplied       int64           `json:"line_10_net_supplied"`
	Line11Penalty           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"line_11_penalty"`
}

// LowCarbonLines holds the low-carbon-fuel-target summary. Values are whole
// compliance units except the Line 21 penalty.
type LowCarbonLines struct {
	Line12TransferredAway    int64           `json:"line_12_transferred_away"`
	Line13Received           int64           `json:"line_13_received"`
	Line14Issued             int64           `json:"line_14_issued"`
	Line15PreviouslyIssued   int64           `json:"line_15_previously_issued"`
	Line16PreviouslyExported int64           `json:"line_16_previously_exported"`
	Line17AvailableBalance   int64           `json:"line_17_available_balance"`
	Line18IssuedFromSupply   int64           `json:"line_18_issued_from_supply"`
	Line19IssuedFromExport   int64           `json:"line_19_issued_from_export"`
	Line20BalanceChange      int64           `json:"line_20_balance_change"`
	Line21Penalty            decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"line_21_penalty"`
	Line22EndingBalance      int64           `json:"line_22_ending_balance"`
}

// ComplianceReportSummary is the persisted 22-line summary. Exactly one
// row exists per report version; saving recomputes derived lines and the
// penalty totals.
type ComplianceReportSummary struct {
	ID                 int  `gorm:"primary_key" json:"id"`
	ComplianceReportId int  `gorm:"not null;uniqueIndex" json:"compliance_report_id"`
	IsLocked           bool `gorm:"not null;default:false" json:"is_locked"`

	Gasoline RenewableLines `gorm:"embedded;embeddedPrefix:gasoline_" json:"gasoline"`
	Diesel   RenewableLines `gorm:"embedded;embeddedPrefix:diesel_" json:"diesel"`
	JetFuel  RenewableLines `gorm:"embedded;embeddedPrefix:jet_fuel_" json:"jet_fuel"`

	LowCarbon LowCarbonLines `gorm:"embedded" json:"low_carbon"`

	RenewablePenaltyTotal decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"renewable_penalty_total"`
	LowCarbonPenaltyTotal decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"low_carbon_penalty_total"`
	TotalPenalty          decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"total_penalty"`

	OverrideEnabled          bool             `gorm:"not null;default:false" json:"override_enabled"`
	OverrideRenewablePenalty *decimal.Decimal `gorm:"type:decimal(20,2)" json:"override_renewable_penalty,omitempty"`
	OverrideLowCarbonPenalty *decimal.Decimal `gorm:"type:decimal(20,2)" json:"override_low_carbon_penalty,omitempty"`
	OverrideUser             string           `gorm:"size:255" json:"override_user,omitempty"`
	OverrideDate             *time.Time       `json:"override_date,omitempty"`

	AuditFields
}

func (s *ComplianceReportSummary) GetId() int {
	return s.ID
}

// CategoryLines returns the renewable block for a category.
func (s *ComplianceReportSummary) CategoryLines(category FuelCategoryName) *RenewableLines {
	switch category {
	case FuelCategoryGasoline:
		return &s.Gasoline
	case FuelCategoryDiesel:
		return &s.Diesel
	case FuelCategoryJetFuel:
		return &s.JetFuel
	}
	return nil
}

// GetSummaryForReport loads the persisted summary, or nil when the report
// has never been saved.
func GetSummaryForReport(ctx context.Context, db *gorm.DB, reportId int) (*ComplianceReportSummary, error) {
	var summary ComplianceReportSummary
	err := db.WithContext(ctx).
		Where("compliance_report_id = ?", reportId).
		Take(&summary).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// UpsertSummary writes the single summary row for a report version inside
// the caller's transaction.
func UpsertSummary(ctx context.Context, tx *gorm.DB, summary *ComplianceReportSummary) error {
	if summary.ID == 0 {
		summary.StampCreate(ctx)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "compliance_report_id"}},
			UpdateAll: true,
		}).Create(summary).Error
	}
	summary.StampUpdate(ctx)
	return tx.Save(summary).Error
}

// LockSummary marks a report's summary read-only. Called on submission.
func LockSummary(ctx context.Context, tx *gorm.DB, reportId int) error {
	return tx.Model(&ComplianceReportSummary{}).
		Where("compliance_report_id = ?", reportId).
		Updates(map[string]interface{}{"is_locked": true}).Error
}

// DeleteSummaryForReport removes the summary when a draft version is
// deleted.
func DeleteSummaryForReport(ctx context.Context, tx *gorm.DB, reportId int) error {
	return tx.Where("compliance_report_id = ?", reportId).
		Delete(&ComplianceReportSummary{}).Error
}
