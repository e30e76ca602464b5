package models

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransferStatus string

const (
	TransferStatusDraft       TransferStatus = "Draft"
	TransferStatusSent        TransferStatus = "Sent"
	TransferStatusSubmitted   TransferStatus = "Submitted"
	TransferStatusRecommended TransferStatus = "Recommended"
	TransferStatusRecorded    TransferStatus = "Recorded"
	TransferStatusRefused     TransferStatus = "Refused"
	TransferStatusDeclined    TransferStatus = "Declined"
	TransferStatusRescinded   TransferStatus = "Rescinded"
)

// Transfer moves compliance units between two organizations. Once both
// parties have signed, the sender's units are reserved; the director's
// record converts the reservation into final adjustments on both sides.
type Transfer struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	FromOrganizationId int             `gorm:"not null;index" json:"from_organization_id" binding:"required"`
	ToOrganizationId   int             `gorm:"not null;index" json:"to_organization_id" binding:"required"`
	Quantity           int64           `gorm:"not null" json:"quantity" binding:"required"`
	PricePerUnit       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price_per_unit"`
	AgreementDate      time.Time       `gorm:"not null" json:"agreement_date"`
	EffectiveDate      *time.Time      `json:"effective_date,omitempty"`
	Status             TransferStatus  `gorm:"size:20;not null;default:'Draft';index" json:"status"`
	AuditFields

	FromOrganization *Organization `gorm:"foreignKey:FromOrganizationId" json:"from_organization,omitempty"`
	ToOrganization   *Organization `gorm:"foreignKey:ToOrganizationId" json:"to_organization,omitempty"`
}

func (t *Transfer) GetId() int {
	return t.ID
}

// effectiveAt is the date the transfer takes effect on balances: the
// agreed effective date when one was set, else the moment it is recorded.
func (t *Transfer) effectiveAt() time.Time {
	if t.EffectiveDate != nil {
		return *t.EffectiveDate
	}
	return time.Now().UTC()
}

func CreateTransfer(ctx context.Context, input *Transfer) (*Transfer, error) {
	db := config.GetDB()
	if input.Quantity <= 0 {
		return nil, utils.NewValidationError("quantity must be positive", map[string]string{"quantity": "must be greater than zero"})
	}
	if input.FromOrganizationId == input.ToOrganizationId {
		return nil, utils.NewValidationError("cannot transfer to the same organization", map[string]string{"to_organization_id": "must differ from sender"})
	}
	if err := utils.ValidateResourceId[Organization](ctx, 0, input.ToOrganizationId); err != nil {
		return nil, utils.NewValidationError("destination organization not found", map[string]string{"to_organization_id": "unknown organization"})
	}
	input.Status = TransferStatusDraft
	input.StampCreate(ctx)
	if err := db.WithContext(ctx).Create(input).Error; err != nil {
		return nil, err
	}
	return input, nil
}

func GetTransfer(ctx context.Context, id int) (*Transfer, error) {
	db := config.GetDB()
	var transfer Transfer
	err := db.WithContext(ctx).
		Preload("FromOrganization").
		Preload("ToOrganization").
		Take(&transfer, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

func getTransferForUpdate(tx *gorm.DB, id int) (*Transfer, error) {
	var transfer Transfer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&transfer, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

func saveTransferStatus(ctx context.Context, tx *gorm.DB, transfer *Transfer, status TransferStatus) error {
	transfer.Status = status
	transfer.StampUpdate(ctx)
	return tx.Model(transfer).Updates(map[string]interface{}{
		"status":      status,
		"update_user": transfer.UpdateUser,
	}).Error
}

// SignAndSendTransfer moves a draft to Sent on the sender's signature.
func SignAndSendTransfer(ctx context.Context, id int) (*Transfer, error) {
	return transitionTransfer(ctx, id, func(ctx context.Context, tx *gorm.DB, t *Transfer) error {
		if t.Status != TransferStatusDraft {
			return utils.NewDomainError("transfer is not in draft", map[string]string{"status": string(t.Status)})
		}
		if t.FromOrganizationId != utils.GetOrganizationIdFromContext(ctx) {
			return utils.NewForbiddenError("only the sending organization may sign and send")
		}
		return saveTransferStatus(ctx, tx, t, TransferStatusSent)
	})
}

// SignAndSubmitTransfer records the receiver's signature and reserves the
// sender's units. Overdraft is refused here, before anything is written.
func SignAndSubmitTransfer(ctx context.Context, id int) (*Transfer, error) {
	return transitionTransfer(ctx, id, func(ctx context.Context, tx *gorm.DB, t *Transfer) error {
		if t.Status != TransferStatusSent {
			return utils.NewDomainError("transfer has not been sent", map[string]string{"status": string(t.Status)})
		}
		if t.ToOrganizationId != utils.GetOrganizationIdFromContext(ctx) {
			return utils.NewForbiddenError("only the receiving organization may sign and submit")
		}
		balance, err := OrganizationBalance(ctx, tx, t.FromOrganizationId)
		if err != nil {
			return err
		}
		if balance < t.Quantity {
			return utils.NewDomainError("sender has insufficient compliance units", map[string]string{"quantity": "exceeds sender balance"})
		}
		if _, err := RecordTransaction(ctx, tx, t.FromOrganizationId, -t.Quantity, TxActionReserved, TxRefTransfer, t.ID); err != nil {
			return err
		}
		return saveTransferStatus(ctx, tx, t, TransferStatusSubmitted)
	})
}

// RecommendTransfer is the analyst's sign-off ahead of director record.
func RecommendTransfer(ctx context.Context, id int) (*Transfer, error) {
	return transitionTransfer(ctx, id, func(ctx context.Context, tx *gorm.DB, t *Transfer) error {
		if t.Status != TransferStatusSubmitted {
			return utils.NewDomainError("transfer has not been submitted", map[string]string{"status": string(t.Status)})
		}
		if !utils.HasRoleInContext(ctx, RoleAnalyst) {
			return utils.NewForbiddenError("analyst role required")
		}
		return saveTransferStatus(ctx, tx, t, TransferStatusRecommended)
	})
}

// RecordTransfer is the director's record: the sender's reservation
// becomes a final debit and the receiver gains a matching credit. Both
// adjustments carry the transfer's effective date.
func RecordTransfer(ctx context.Context, id int) (*Transfer, error) {
	return transitionTransfer(ctx, id, func(ctx context.Context, tx *gorm.DB, t *Transfer) error {
		if t.Status != TransferStatusRecommended {
			return utils.NewDomainError("transfer has not been recommended", map[string]string{"status": string(t.Status)})
		}
		if !utils.HasRoleInContext(ctx, RoleDirector) {
			return utils.NewForbiddenError("director role required")
		}
		if err := ConfirmTransaction(ctx, tx, TxRefTransfer, t.ID); err != nil {
			return err
		}
		effective := t.effectiveAt()
		if err := tx.Model(&Transaction{}).
			Where("reference_type = ? AND reference_id = ?", TxRefTransfer, t.ID).
			Update("create_date", effective).Error; err != nil {
			return err
		}
		credit, err := RecordTransaction(ctx, tx, t.ToOrganizationId, t.Quantity, TxActionAdjustment, TxRefTransfer, t.ID)
		if err != nil {
			return err
		}
		if err := tx.Model(credit).Update("create_date", effective).Error; err != nil {
			return err
		}
		return saveTransferStatus(ctx, tx, t, TransferStatusRecorded)
	})
}

// RefuseTransfer is the director's refusal; any reservation is released.
func RefuseTransfer(ctx context.Context, id int) (*Transfer, error) {
	return transitionTransfer(ctx, id, func(ctx context.Context, tx *gorm.DB, t *Transfer) error {
		if t.Status != TransferStatusRecommended && t.Status != TransferStatusSubmitted {
			return utils.NewDomainError("transfer cannot be refused from its current status", map[string]string{"status": string(t.Status)})
		}
		if !utils.HasRoleInContext(ctx, RoleDirector) {
			return utils.NewForbiddenError("director role required")
		}
		if err := ReleaseTransaction(ctx, tx, TxRefTransfer, t.ID); err != nil {
			return err
		}
		return saveTransferStatus(ctx, tx, t, TransferStatusRefused)
	})
}

// DeclineTransfer is the receiver walking away from a sent transfer.
func DeclineTransfer(ctx context.Context, id int) (*Transfer, error) {
	return transitionTransfer(ctx, id, func(ctx context.Context, tx *gorm.DB, t *Transfer) error {
		if t.Status != TransferStatusSent {
			return utils.NewDomainError("only a sent transfer can be declined", map[string]string{"status": string(t.Status)})
		}
		if t.ToOrganizationId != utils.GetOrganizationIdFromContext(ctx) {
			return utils.NewForbiddenError("only the receiving organization may decline")
		}
		return saveTransferStatus(ctx, tx, t, TransferStatusDeclined)
	})
}

// RescindTransfer lets either party withdraw before the director records.
func RescindTransfer(ctx context.Context, id int) (*Transfer, error) {
	return transitionTransfer(ctx, id, func(ctx context.Context, tx *gorm.DB, t *Transfer) error {
		switch t.Status {
		case TransferStatusSent, TransferStatusSubmitted, TransferStatusRecommended:
		default:
			return utils.NewDomainError("transfer can no longer be rescinded", map[string]string{"status": string(t.Status)})
		}
		org := utils.GetOrganizationIdFromContext(ctx)
		if org != t.FromOrganizationId && org != t.ToOrganizationId {
			return utils.NewForbiddenError("only a party to the transfer may rescind")
		}
		if err := ReleaseTransaction(ctx, tx, TxRefTransfer, t.ID); err != nil {
			return err
		}
		return saveTransferStatus(ctx, tx, t, TransferStatusRescinded)
	})
}

func transitionTransfer(ctx context.Context, id int, apply func(context.Context, *gorm.DB, *Transfer) error) (*Transfer, error) {
	db := config.GetDB()
	var transfer *Transfer
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := getTransferForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := apply(ctx, tx, t); err != nil {
			return err
		}
		if err := EnqueueNotificationTx(ctx, tx, "transfer-status", t.ID, string(TxRefTransfer), t.ToOrganizationId); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// ListTransfers returns transfers visible to the caller: both directions
// for a supplier, everything past Draft for government.
func ListTransfers(ctx context.Context) ([]*Transfer, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&Transfer{}).
		Preload("FromOrganization").
		Preload("ToOrganization")
	if utils.GetIsGovernmentFromContext(ctx) {
		q = q.Where("status <> ?", TransferStatusDraft)
	} else {
		org := utils.GetOrganizationIdFromContext(ctx)
		q = q.Where("from_organization_id = ? OR to_organization_id = ?", org, org)
	}
	var transfers []*Transfer
	if err := q.Order("id DESC").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}
