package models

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NotionalDirection string

const (
	NotionalReceived    NotionalDirection = "Received"
	NotionalTransferred NotionalDirection = "Transferred"
)

// NotionalTransfer is a paper transfer of renewable volume between two
// suppliers inside one compliance period. Received volume raises the
// receiver's Line 5; transferred volume lowers it.
type NotionalTransfer struct {
	ID int `gorm:"primary_key" json:"id"`
	VersionedFields

	LegalName         string            `gorm:"size:500;not null" json:"legal_name" binding:"required"`
	AddressForService string            `gorm:"size:500" json:"address_for_service"`
	FuelCategoryId    int               `gorm:"not null;index" json:"fuel_category_id" binding:"required"`
	Direction         NotionalDirection `gorm:"type:enum('Received','Transferred');not null" json:"direction" binding:"required"`

	Quantity   decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"quantity"`
	Q1Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q1_quantity,omitempty"`
	Q2Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q2_quantity,omitempty"`
	Q3Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q3_quantity,omitempty"`
	Q4Quantity *decimal.Decimal `gorm:"type:decimal(20,2)" json:"q4_quantity,omitempty"`

	AuditFields

	FuelCategory *FuelCategory `gorm:"foreignKey:FuelCategoryId" json:"fuel_category,omitempty"`
}

func (n *NotionalTransfer) GetId() int {
	return n.ID
}

func (NotionalTransfer) TableName() string {
	return "notional_transfers"
}

// SignedVolume is the row's contribution to Line 5: positive when
// received, negative when transferred away.
func (n *NotionalTransfer) SignedVolume() decimal.Decimal {
	volume := AnnualQuantity(n.Quantity, n.Q1Quantity, n.Q2Quantity, n.Q3Quantity, n.Q4Quantity)
	if n.Direction == NotionalTransferred {
		return volume.Neg()
	}
	return volume
}

func (n *NotionalTransfer) validate() error {
	if n.Direction != NotionalReceived && n.Direction != NotionalTransferred {
		return utils.NewValidationError("invalid direction", map[string]string{"direction": "must be Received or Transferred"})
	}
	if n.LegalName == "" {
		return utils.NewValidationError("legal name is required", map[string]string{"legal_name": "required"})
	}
	return nil
}

func SaveNotionalTransfer(ctx context.Context, input *NotionalTransfer, reportId int) (*NotionalTransfer, error) {
	db := config.GetDB()
	report, err := editableReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
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
		latest, err := latestRowInGroup[NotionalTransfer](ctx, tx, NotionalTransfer{}.TableName(), input.GroupUuid, chainIds)
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

func DeleteNotionalTransfer(ctx context.Context, groupUuid string, reportId int) error {
	db := config.GetDB()
	report, err := editableReport(ctx, reportId)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteVersionedGroup[NotionalTransfer](ctx, tx, NotionalTransfer{}.TableName(), groupUuid, report, func(latest *NotionalTransfer) *NotionalTransfer {
			marker := *latest
			marker.ID = 0
			marker.VersionedFields = latest.VersionedFields.NextVersion(report.ID, VersionActionDelete)
			marker.StampCreate(ctx)
			return &marker
		})
	})
}

func EffectiveNotionalTransfers(ctx context.Context, db *gorm.DB, report *ComplianceReport) ([]*NotionalTransfer, error) {
	chainIds, err := ChainReportIdsThrough(ctx, db, report)
	if err != nil {
		return nil, err
	}
	return EffectiveRows[NotionalTransfer](ctx, db, NotionalTransfer{}.TableName(), chainIds)
}
