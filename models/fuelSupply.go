package models

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FuelSupply is one fuel-supplied row of a report version. Factor columns
// are snapshotted from reference data at save time; ComplianceUnits is the
// row's computed credit (positive) or debit (negative).
type FuelSupply struct {
	ID int `gorm:"primary_key" json:"id"`
	VersionedFields

	FuelTypeId          int  `gorm:"not null;index" json:"fuel_type_id" binding:"required"`
	FuelCategoryId      int  `gorm:"not null;index" json:"fuel_category_id" binding:"required"`
	EndUseTypeId        *int `json:"end_use_type_id,omitempty"`
	ProvisionOfTheActId int  `gorm:"not null" json:"provision_of_the_act_id" binding:"required"`

	Quantity   decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"quantity"`
	Q1Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q1_quantity,omitempty"`
	Q2Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q2_quantity,omitempty"`
	Q3Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q3_quantity,omitempty"`
	Q4Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q4_quantity,omitempty"`
	Units      string           `gorm:"size:20;not null;default:'L'" json:"units"`

	TargetCi        decimal.Decimal `gorm:"type:decimal(10,2)" json:"target_ci"`
	Eer             decimal.Decimal `gorm:"type:decimal(5,2)" json:"eer"`
	Ci              decimal.Decimal `gorm:"type:decimal(10,2)" json:"ci"`
	Uci             decimal.Decimal `gorm:"type:decimal(10,2)" json:"uci"`
	EnergyDensity   decimal.Decimal `gorm:"type:decimal(10,2)" json:"energy_density"`
	ComplianceUnits int64           `gorm:"not null;default:0" json:"compliance_units"`

	AuditFields

	FuelType     *FuelType     `gorm:"foreignKey:FuelTypeId" json:"fuel_type,omitempty"`
	FuelCategory *FuelCategory `gorm:"foreignKey:FuelCategoryId" json:"fuel_category,omitempty"`
}

func (f *FuelSupply) GetId() int {
	return f.ID
}

func (FuelSupply) TableName() string {
	return "fuel_supplies"
}

// snapshotFactors resolves and denormalizes the carbon-intensity factors,
// then computes the row's compliance units.
func (f *FuelSupply) snapshotFactors(ctx context.Context, report *ComplianceReport) error {
	fuelType, err := GetFuelType(ctx, f.FuelTypeId)
	if err != nil {
		return utils.NewValidationError("fuel type not found", map[string]string{"fuel_type_id": "unknown fuel type"})
	}
	if err := utils.ValidateResourceId[ProvisionOfTheAct](ctx, 0, f.ProvisionOfTheActId); err != nil {
		return utils.NewValidationError("provision not found", map[string]string{"provision_of_the_act_id": "unknown provision"})
	}
	tci, err := LookupTargetCarbonIntensity(ctx, report.CompliancePeriodId, f.FuelCategoryId)
	if err != nil {
		return utils.NewValidationError("no target carbon intensity for category", map[string]string{"fuel_category_id": "no prescribed target for this period"})
	}
	eer, err := LookupEER(ctx, f.FuelTypeId, f.FuelCategoryId, f.EndUseTypeId)
	if err != nil {
		return err
	}
	uci, err := LookupUCI(ctx, f.FuelTypeId, f.EndUseTypeId)
	if err != nil {
		return err
	}

	f.TargetCi = tci
	f.Eer = eer
	f.Uci = uci
	f.EnergyDensity = fuelType.EnergyDensity
	if f.Ci.IsZero() {
		f.Ci = fuelType.DefaultCarbonIntensity
	}
	f.ComplianceUnits = ComplianceUnitsForRow(CarbonIntensityInputs{
		TargetCi:      f.TargetCi,
		Eer:           f.Eer,
		Ci:            f.Ci,
		Uci:           f.Uci,
		EnergyDensity: f.EnergyDensity,
		Quantity:      AnnualQuantity(f.Quantity, f.Q1Quantity, f.Q2Quantity, f.Q3Quantity, f.Q4Quantity),
	})
	return nil
}

// editableReport loads a report and confirms line items may still change.
func editableReport(ctx context.Context, reportId int) (*ComplianceReport, error) {
	report, err := GetComplianceReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	if !report.Editable() {
		return nil, utils.NewDomainError("line items can only change while the report is in draft", map[string]string{"status": string(report.Status)})
	}
	return report, nil
}

// SaveFuelSupply creates or edits a row under the versioned pattern: a new
// group for fresh rows, an in-place update when the latest version already
// belongs to this draft, otherwise an appended successor version.
func SaveFuelSupply(ctx context.Context, input *FuelSupply, reportId int) (*FuelSupply, error) {
	db := config.GetDB()
	report, err := editableReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	if err := input.snapshotFactors(ctx, report); err != nil {
		return nil, err
	}
	input.StampCreate(ctx)

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.GroupUuid == "" {
			input.VersionedFields = NewVersionGroup(report.ID)
			return tx.Create(input).Error
		}
		chainIds, err := ChainReportIdsThrough(ctx, tx, report)
		if err != nil {
			return err
		}
		latest, err := latestRowInGroup[FuelSupply](ctx, tx, FuelSupply{}.TableName(), input.GroupUuid, chainIds)
		if err != nil {
			return err
		}
		if latest.ComplianceReportId == report.ID {
			input.ID = latest.ID
			input.VersionedFields = latest.VersionedFields
			input.CreateUser = latest.CreateUser
			input.StampUpdate(ctx)
			return tx.Save(input).Error
		}
		input.ID = 0
		input.VersionedFields = latest.VersionedFields.NextVersion(report.ID, VersionActionUpdate)
		return tx.Create(input).Error
	})
	if err != nil {
		return nil, err
	}
	return input, nil
}

// DeleteFuelSupply removes a group from a draft: physically when the group
// was born in this draft, otherwise by appending a delete version.
func DeleteFuelSupply(ctx context.Context, groupUuid string, reportId int) error {
	db := config.GetDB()
	report, err := editableReport(ctx, reportId)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteVersionedGroup[FuelSupply](ctx, tx, FuelSupply{}.TableName(), groupUuid, report, func(latest *FuelSupply) *FuelSupply {
			marker := *latest
			marker.ID = 0
			marker.VersionedFields = latest.VersionedFields.NextVersion(report.ID, VersionActionDelete)
			marker.StampCreate(ctx)
			return &marker
		})
	})
}

// EffectiveFuelSupplies returns the effective fuel-supply set for a report
// version.
func EffectiveFuelSupplies(ctx context.Context, db *gorm.DB, report *ComplianceReport) ([]*FuelSupply, error) {
	chainIds, err := ChainReportIdsThrough(ctx, db, report)
	if err != nil {
		return nil, err
	}
	return EffectiveRows[FuelSupply](ctx, db, FuelSupply{}.TableName(), chainIds)
}
