package models

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminAdjustment corrects an organization's balance by director order.
// Unlike an initiative agreement the unit delta may be negative, but it
// must never drive the balance below zero.
type AdminAdjustment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrganizationId  int             `gorm:"not null;index" json:"organization_id" binding:"required"`
	ComplianceUnits int64           `gorm:"not null" json:"compliance_units" binding:"required"`
	EffectiveDate   *time.Time      `json:"effective_date,omitempty"`
	Comment         string          `gorm:"size:1000" json:"comment"`
	Status          AgreementStatus `gorm:"size:20;not null;default:'Draft';index" json:"status"`
	AuditFields

	Organization *Organization `gorm:"foreignKey:OrganizationId" json:"organization,omitempty"`
}

func (a *AdminAdjustment) GetId() int {
	return a.ID
}

func CreateAdminAdjustment(ctx context.Context, input *AdminAdjustment) (*AdminAdjustment, error) {
	db := config.GetDB()
	if !utils.GetIsGovernmentFromContext(ctx) {
		return nil, utils.NewForbiddenError("government role required")
	}
	if input.ComplianceUnits == 0 {
		return nil, utils.NewValidationError("compliance units must be non-zero", map[string]string{"compliance_units": "must not be zero"})
	}
	input.Status = AgreementStatusDraft
	input.StampCreate(ctx)
	if err := db.WithContext(ctx).Create(input).Error; err != nil {
		return nil, err
	}
	return input, nil
}

func GetAdminAdjustment(ctx context.Context, id int) (*AdminAdjustment, error) {
	db := config.GetDB()
	var adjustment AdminAdjustment
	err := db.WithContext(ctx).Preload("Organization").Take(&adjustment, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &adjustment, nil
}

// TransitionAdminAdjustment mirrors the initiative-agreement flow; approval
// of a negative adjustment is refused when it would overdraw the balance.
func TransitionAdminAdjustment(ctx context.Context, id int, status AgreementStatus) (*AdminAdjustment, error) {
	db := config.GetDB()
	var adjustment *AdminAdjustment
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a AdminAdjustment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&a, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		switch status {
		case AgreementStatusRecommended:
			if a.Status != AgreementStatusDraft && a.Status != AgreementStatusReturned {
				return utils.NewDomainError("adjustment cannot be recommended from its current status", map[string]string{"status": string(a.Status)})
			}
			if !utils.HasRoleInContext(ctx, RoleAnalyst) {
				return utils.NewForbiddenError("analyst role required")
			}
		case AgreementStatusApproved:
			if a.Status != AgreementStatusRecommended {
				return utils.NewDomainError("adjustment has not been recommended", map[string]string{"status": string(a.Status)})
			}
			if !utils.HasRoleInContext(ctx, RoleDirector) {
				return utils.NewForbiddenError("director role required")
			}
			if a.ComplianceUnits < 0 {
				balance, err := OrganizationBalance(ctx, tx, a.OrganizationId)
				if err != nil {
					return err
				}
				if balance+a.ComplianceUnits < 0 {
					return utils.NewDomainError("adjustment would overdraw the organization's balance", map[string]string{"compliance_units": "exceeds available balance"})
				}
			}
			entry, err := RecordTransaction(ctx, tx, a.OrganizationId, a.ComplianceUnits, TxActionAdjustment, TxRefAdminAdjustment, a.ID)
			if err != nil {
				return err
			}
			if a.EffectiveDate != nil {
				if err := tx.Model(entry).Update("create_date", *a.EffectiveDate).Error; err != nil {
					return err
				}
			}
		case AgreementStatusReturned:
			if a.Status != AgreementStatusRecommended {
				return utils.NewDomainError("only a recommended adjustment can be returned", map[string]string{"status": string(a.Status)})
			}
			if !utils.HasRoleInContext(ctx, RoleDirector) {
				return utils.NewForbiddenError("director role required")
			}
		default:
			return utils.NewDomainError("unsupported transition", map[string]string{"status": string(status)})
		}
		a.Status = status
		a.StampUpdate(ctx)
		if err := tx.Model(&a).Updates(map[string]interface{}{
			"status":      status,
			"update_user": a.UpdateUser,
		}).Error; err != nil {
			return err
		}
		if status == AgreementStatusApproved {
			if err := EnqueueNotificationTx(ctx, tx, "admin-adjustment-approved", a.ID, string(TxRefAdminAdjustment), a.OrganizationId); err != nil {
				return err
			}
		}
		adjustment = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjustment, nil
}
