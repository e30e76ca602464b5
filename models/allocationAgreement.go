package models

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AllocationTransactionType string

const (
	AllocationAllocatedFrom AllocationTransactionType = "Allocated from"
	AllocationAllocatedTo   AllocationTransactionType = "Allocated to"
)

// AllocationAgreement records responsibility for fuel allocated between a
// supplier and a transaction partner under a written agreement.
type AllocationAgreement struct {
	ID int `gorm:"primary_key" json:"id"`
	VersionedFields

	TransactionType         AllocationTransactionType `gorm:"type:enum('Allocated from','Allocated to');not null" json:"transaction_type" binding:"required"`
	TransactionPartner      string                    `gorm:"size:500;not null" json:"transaction_partner" binding:"required"`
	PostalAddress           string                    `gorm:"size:500" json:"postal_address"`
	TransactionPartnerEmail string                    `gorm:"size:255" json:"transaction_partner_email"`
	TransactionPartnerPhone string                    `gorm:"size:50" json:"transaction_partner_phone"`

	FuelTypeId          int `gorm:"not null;index" json:"fuel_type_id" binding:"required"`
	FuelCategoryId      int `gorm:"not null;index" json:"fuel_category_id" binding:"required"`
	ProvisionOfTheActId int `gorm:"not null" json:"provision_of_the_act_id" binding:"required"`

	Quantity   decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"quantity"`
	Q1Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q1_quantity,omitempty"`
	Q2Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q2_quantity,omitempty"`
	Q3Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q3_quantity,omitempty"`
	Q4Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q4_quantity,omitempty"`
	Units      string           `gorm:"size:20;not null;default:'L'" json:"units"`

	AuditFields

	FuelType *FuelType `gorm:"foreignKey:FuelTypeId" json:"fuel_type,omitempty"`
}

func (a *AllocationAgreement) GetId() int {
	return a.ID
}

func (AllocationAgreement) TableName() string {
	return "allocation_agreements"
}

func (a *AllocationAgreement) validate(ctx context.Context) error {
	fields := map[string]string{}
	if a.TransactionType != AllocationAllocatedFrom && a.TransactionType != AllocationAllocatedTo {
		fields["transaction_type"] = "must be 'Allocated from' or 'Allocated to'"
	}
	if a.TransactionPartner == "" {
		fields["transaction_partner"] = "required"
	}
	if a.TransactionPartnerEmail != "" && !utils.IsValidEmail(a.TransactionPartnerEmail) {
		fields["transaction_partner_email"] = "invalid email address"
	}
	if _, err := GetFuelType(ctx, a.FuelTypeId); err != nil {
		fields["fuel_type_id"] = "unknown fuel type"
	}
	if len(fields) > 0 {
		return utils.NewValidationError("invalid allocation agreement", fields)
	}
	return nil
}

func SaveAllocationAgreement(ctx context.Context, input *AllocationAgreement, reportId int) (*AllocationAgreement, error) {
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
		latest, err := latestRowInGroup[AllocationAgreement](ctx, tx, AllocationAgreement{}.TableName(), input.GroupUuid, chainIds)
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

func DeleteAllocationAgreement(ctx context.Context, groupUuid string, reportId int) error {
	db := config.GetDB()
	report, err := editableReport(ctx, reportId)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteVersionedGroup[AllocationAgreement](ctx, tx, AllocationAgreement{}.TableName(), groupUuid, report, func(latest *AllocationAgreement) *AllocationAgreement {
			marker := *latest
			marker.ID = 0
			marker.VersionedFields = latest.VersionedFields.NextVersion(report.ID, VersionActionDelete)
			marker.StampCreate(ctx)
			return &marker
		})
	})
}

func EffectiveAllocationAgreements(ctx context.Context, db *gorm.DB, report *ComplianceReport) ([]*AllocationAgreement, error) {
	chainIds, err := ChainReportIdsThrough(ctx, db, report)
	if err != nil {
		return nil, err
	}
	return EffectiveRows[AllocationAgreement](ctx, db, AllocationAgreement{}.TableName(), chainIds)
}
