package models

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OtherUses records fuel put to a non-transportation purpose. The volume
// is tracked for the renewable summary but earns no compliance units.
type OtherUses struct {
	ID int `gorm:"primary_key" json:"id"`
	VersionedFields

	FuelTypeId          int    `gorm:"not null;index" json:"fuel_type_id" binding:"required"`
	FuelCategoryId      int    `gorm:"not null;index" json:"fuel_category_id" binding:"required"`
	ProvisionOfTheActId int    `gorm:"not null" json:"provision_of_the_act_id" binding:"required"`
	ExpectedUse         string `gorm:"size:255;not null" json:"expected_use" binding:"required"`
	Rationale           string `gorm:"size:1000" json:"rationale"`

	QuantitySupplied decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"quantity_supplied"`
	Units            string          `gorm:"size:20;not null;default:'L'" json:"units"`
	Ci               decimal.Decimal `gorm:"type:decimal(10,2)" json:"ci"`

	AuditFields

	FuelType *FuelType `gorm:"foreignKey:FuelTypeId" json:"fuel_type,omitempty"`
}

func (o *OtherUses) GetId() int {
	return o.ID
}

func (OtherUses) TableName() string {
	return "other_uses"
}

func (o *OtherUses) validate(ctx context.Context) error {
	if _, err := GetFuelType(ctx, o.FuelTypeId); err != nil {
		return utils.NewValidationError("fuel type not found", map[string]string{"fuel_type_id": "unknown fuel type"})
	}
	if o.ExpectedUse == "" {
		return utils.NewValidationError("expected use is required", map[string]string{"expected_use": "required"})
	}
	return nil
}

func SaveOtherUses(ctx context.Context, input *OtherUses, reportId int) (*OtherUses, error) {
	db := config.GetDB()
	report, err := editableReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
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
		latest, err := latestRowInGroup[OtherUses](ctx, tx, OtherUses{}.TableName(), input.GroupUuid, chainIds)
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

func DeleteOtherUses(ctx context.Context, groupUuid string, reportId int) error {
	db := config.GetDB()
	report, err := editableReport(ctx, reportId)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteVersionedGroup[OtherUses](ctx, tx, OtherUses{}.TableName(), groupUuid, report, func(latest *OtherUses) *OtherUses {
			marker := *latest
			marker.ID = 0
			marker.VersionedFields = latest.VersionedFields.NextVersion(report.ID, VersionActionDelete)
			marker.StampCreate(ctx)
			return &marker
		})
	})
}

func EffectiveOtherUses(ctx context.Context, db *gorm.DB, report *ComplianceReport) ([]*OtherUses, error) {
	chainIds, err := ChainReportIdsThrough(ctx, db, report)
	if err != nil {
		return nil, err
	}
	return EffectiveRows[OtherUses](ctx, db, OtherUses{}.TableName(), chainIds)
}
