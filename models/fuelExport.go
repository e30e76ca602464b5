package models

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FuelExport is one exported-fuel row. Exports give back the credit earned
// on supply, so the computed units carry a negative sign.
type FuelExport struct {
	ID int `gorm:"primary_key" json:"id"`
	VersionedFields

	FuelTypeId          int  `gorm:"not null;index" json:"fuel_type_id" binding:"required"`
	FuelCategoryId      int  `gorm:"not null;index" json:"fuel_category_id" binding:"required"`
	EndUseTypeId        *int `json:"end_use_type_id,omitempty"`
	ProvisionOfTheActId int  `gorm:"not null" json:"provision_of_the_act_id" binding:"required"`

	Quantity decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"quantity"`
	Units    string          `gorm:"size:20;not null;default:'L'" json:"units"`

	TargetCi        decimal.Decimal `gorm:"type:decimal(10,2)" json:"target_ci"`
	Eer             decimal.Decimal `gorm:"type:decimal(5,2)" json:"eer"`
	Ci              decimal.Decimal `gorm:"type:decimal(10,2)" json:"ci"`
	Uci             decimal.Decimal `gorm:"type:decimal(10,2)" json:"uci"`
	EnergyDensity   decimal.Decimal `gorm:"type:decimal(10,2)" json:"energy_density"`
	ComplianceUnits int64           `gorm:"not null;default:0" json:"compliance_units"`

	AuditFields

	FuelType *FuelType `gorm:"foreignKey:FuelTypeId" json:"fuel_type,omitempty"`
}

func (f *FuelExport) GetId() int {
	return f.ID
}

func (FuelExport) TableName() string {
	return "fuel_exports"
}

func (f *FuelExport) snapshotFactors(ctx context.Context, report *ComplianceReport) error {
	fuelType, err := GetFuelType(ctx, f.FuelTypeId)
	if err != nil {
		return utils.NewValidationError("fuel type not found", map[string]string{"fuel_type_id": "unknown fuel type"})
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
	units := ComplianceUnitsForRow(CarbonIntensityInputs{
		TargetCi:      f.TargetCi,
		Eer:           f.Eer,
		Ci:            f.Ci,
		Uci:           f.Uci,
		EnergyDensity: f.EnergyDensity,
		Quantity:      f.Quantity,
	})
	// Exporting fuel surrenders the credit; only credits are clawed back.
	if units > 0 {
		units = -units
	} else {
		units = 0
	}
	f.ComplianceUnits = units
	return nil
}

func SaveFuelExport(ctx context.Context, input *FuelExport, reportId int) (*FuelExport, error) {
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
		latest, err := latestRowInGroup[FuelExport](ctx, tx, FuelExport{}.TableName(), input.GroupUuid, chainIds)
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

func DeleteFuelExport(ctx context.Context, groupUuid string, reportId int) error {
	db := config.GetDB()
	report, err := editableReport(ctx, reportId)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteVersionedGroup[FuelExport](ctx, tx, FuelExport{}.TableName(), groupUuid, report, func(latest *FuelExport) *FuelExport {
			marker := *latest
			marker.ID = 0
			marker.VersionedFields = latest.VersionedFields.NextVersion(report.ID, VersionActionDelete)
			marker.StampCreate(ctx)
			return &marker
		})
	})
}

func EffectiveFuelExports(ctx context.Context, db *gorm.DB, report *ComplianceReport) ([]*FuelExport, error) {
	chainIds, err := ChainReportIdsThrough(ctx, db, report)
	if err != nil {
		return nil, err
	}
	return EffectiveRows[FuelExport](ctx, db, FuelExport{}.TableName(), chainIds)
}
