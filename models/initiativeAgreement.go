package models

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AgreementStatus string

const (
	AgreementStatusDraft       AgreementStatus = "Draft"
	AgreementStatusRecommended AgreementStatus = "Recommended"
	AgreementStatusApproved    AgreementStatus = "Approved"
	AgreementStatusReturned    AgreementStatus = "Returned"
)

// InitiativeAgreement issues compliance units to an organization under a
// Part 3 agreement. Approval writes a single credit adjustment to the
// ledger, dated at the agreement's effective date.
type InitiativeAgreement struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrganizationId  int             `gorm:"not null;index" json:"organization_id" binding:"required"`
	ComplianceUnits int64           `gorm:"not null" json:"compliance_units" binding:"required"`
	EffectiveDate   *time.Time      `json:"effective_date,omitempty"`
	Comment         string          `gorm:"size:1000" json:"comment"`
	Status          AgreementStatus `gorm:"size:20;not null;default:'Draft';index" json:"status"`
	AuditFields

	Organization *Organization `gorm:"foreignKey:OrganizationId" json:"organization,omitempty"`
}

func (a *InitiativeAgreement) GetId() int {
	return a.ID
}

func CreateInitiativeAgreement(ctx context.Context, input *InitiativeAgreement) (*InitiativeAgreement, error) {
	db := config.GetDB()
	if !utils.GetIsGovernmentFromContext(ctx) {
		return nil, utils.NewForbiddenError("government role required")
	}
	if input.ComplianceUnits <= 0 {
		return nil, utils.NewValidationError("compliance units must be positive", map[string]string{"compliance_units": "must be greater than zero"})
	}
	input.Status = AgreementStatusDraft
	input.StampCreate(ctx)
	if err := db.WithContext(ctx).Create(input).Error; err != nil {
		return nil, err
	}
	return input, nil
}

func GetInitiativeAgreement(ctx context.Context, id int) (*InitiativeAgreement, error) {
	db := config.GetDB()
	var agreement InitiativeAgreement
	err := db.WithContext(ctx).Preload("Organization").Take(&agreement, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &agreement, nil
}

// TransitionInitiativeAgreement drives Draft -> Recommended -> Approved,
// with Returned available to send a recommendation back.
func TransitionInitiativeAgreement(ctx context.Context, id int, status AgreementStatus) (*InitiativeAgreement, error) {
	db := config.GetDB()
	var agreement *InitiativeAgreement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a InitiativeAgreement
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&a, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		switch status {
		case AgreementStatusRecommended:
			if a.Status != AgreementStatusDraft && a.Status != AgreementStatusReturned {
				return utils.NewDomainError("agreement cannot be recommended from its current status", map[string]string{"status": string(a.Status)})
			}
			if !utils.HasRoleInContext(ctx, RoleAnalyst) {
				return utils.NewForbiddenError("analyst role required")
			}
		case AgreementStatusApproved:
			if a.Status != AgreementStatusRecommended {
				return utils.NewDomainError("agreement has not been recommended", map[string]string{"status": string(a.Status)})
			}
			if !utils.HasRoleInContext(ctx, RoleDirector) {
				return utils.NewForbiddenError("director role required")
			}
			credit, err := RecordTransaction(ctx, tx, a.OrganizationId, a.ComplianceUnits, TxActionAdjustment, TxRefInitiativeAgreement, a.ID)
			if err != nil {
				return err
			}
			if a.EffectiveDate != nil {
				if err := tx.Model(credit).Update("create_date", *a.EffectiveDate).Error; err != nil {
					return err
				}
			}
		case AgreementStatusReturned:
			if a.Status != AgreementStatusRecommended {
				return utils.NewDomainError("only a recommended agreement can be returned", map[string]string{"status": string(a.Status)})
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
			if err := EnqueueNotificationTx(ctx, tx, "initiative-agreement-approved", a.ID, string(TxRefInitiativeAgreement), a.OrganizationId); err != nil {
				return err
			}
		}
		agreement = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agreement, nil
}
