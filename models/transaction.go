package models

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionAction string

const (
	TxActionReserved   TransactionAction = "Reserved"
	TxActionAdjustment TransactionAction = "Adjustment"
	TxActionReleased   TransactionAction = "Released"
)

// Reference types tie a ledger entry back to the business record that
// produced it.
type TxReferenceType string

const (
	TxRefComplianceReport    TxReferenceType = "CR"
	TxRefTransfer            TxReferenceType = "TR"
	TxRefInitiativeAgreement TxReferenceType = "IA"
	TxRefAdminAdjustment     TxReferenceType = "AA"
)

// Transaction is an append-mostly ledger entry for compliance units.
// Reserved entries hold units pending assessment; Adjustment entries are
// final; Released entries are voided reservations and never count toward
// any balance.
type Transaction struct {
	ID              int               `gorm:"primary_key" json:"id"`
	OrganizationId  int               `gorm:"not null;index:idx_tx_org_action,priority:1" json:"organization_id"`
	ComplianceUnits int64             `gorm:"not null" json:"compliance_units"`
	Action          TransactionAction `gorm:"type:enum('Reserved','Adjustment','Released');not null;index:idx_tx_org_action,priority:2" json:"action"`
	ReferenceType   TxReferenceType   `gorm:"type:enum('CR','TR','IA','AA');not null;index:idx_tx_ref,priority:1" json:"reference_type"`
	ReferenceId     int               `gorm:"not null;index:idx_tx_ref,priority:2" json:"reference_id"`
	CreateDate      time.Time         `gorm:"not null" json:"create_date"`
	AuditFields
}

func (t *Transaction) GetId() int {
	return t.ID
}

// RecordTransaction appends a ledger entry inside the caller's transaction.
func RecordTransaction(ctx context.Context, tx *gorm.DB, organizationId int, units int64, action TransactionAction, refType TxReferenceType, refId int) (*Transaction, error) {
	entry := &Transaction{
		OrganizationId:  organizationId,
		ComplianceUnits: units,
		Action:          action,
		ReferenceType:   refType,
		ReferenceId:     refId,
		CreateDate:      time.Now().UTC(),
	}
	entry.StampCreate(ctx)
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func lockTransactionsForReference(tx *gorm.DB, refType TxReferenceType, refId int) ([]*Transaction, error) {
	var entries []*Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference_type = ? AND reference_id = ?", refType, refId).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReleaseTransaction voids any Reserved entries for the reference. It is
// idempotent: entries already Released (or Adjustment) are left untouched,
// and a reference with no entries is not an error.
func ReleaseTransaction(ctx context.Context, tx *gorm.DB, refType TxReferenceType, refId int) error {
	entries, err := lockTransactionsForReference(tx, refType, refId)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Action != TxActionReserved {
			continue
		}
		entry.Action = TxActionReleased
		entry.StampUpdate(ctx)
		if err := tx.Model(entry).Updates(map[string]interface{}{
			"action":      TxActionReleased,
			"update_user": entry.UpdateUser,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ReinstateTransaction flips Released entries for the reference back to
// Reserved. Used when a superseding report version is deleted and the prior
// version's reservation must hold again.
func ReinstateTransaction(ctx context.Context, tx *gorm.DB, refType TxReferenceType, refId int) error {
	entries, err := lockTransactionsForReference(tx, refType, refId)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Action != TxActionReleased {
			continue
		}
		entry.Action = TxActionReserved
		entry.StampUpdate(ctx)
		if err := tx.Model(entry).Updates(map[string]interface{}{
			"action":      TxActionReserved,
			"update_user": entry.UpdateUser,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ConfirmTransaction finalizes Reserved entries for the reference into
// Adjustments. Released entries are not eligible.
func ConfirmTransaction(ctx context.Context, tx *gorm.DB, refType TxReferenceType, refId int) error {
	entries, err := lockTransactionsForReference(tx, refType, refId)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Action != TxActionReserved {
			continue
		}
		entry.Action = TxActionAdjustment
		entry.StampUpdate(ctx)
		if err := tx.Model(entry).Updates(map[string]interface{}{
			"action":      TxActionAdjustment,
			"update_user": entry.UpdateUser,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// OrganizationBalance is the organization's current balance: the sum of
// Reserved and Adjustment units. Released entries are excluded.
func OrganizationBalance(ctx context.Context, db *gorm.DB, organizationId int) (int64, error) {
	var balance int64
	err := db.WithContext(ctx).Model(&Transaction{}).
		Select("COALESCE(SUM(compliance_units), 0)").
		Where("organization_id = ? AND action IN ?", organizationId,
			[]TransactionAction{TxActionReserved, TxActionAdjustment}).
		Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// BalanceComponents are the inputs to the period-end available balance.
// Entry create dates double as effective dates: transfers, agreements and
// administrative adjustments record their effective date there.
type BalanceComponents struct {
	AdjustmentsThroughPeriodEnd int64
	FutureNegativeAdjustments   int64
	FutureReservedNegative      int64
}

// availableBalance composes the period-end availability rule: adjustments
// effective within the period, debited by future-dated negative adjustments
// and future-dated reserved debits, floored at zero. The debits keep units
// that are already committed elsewhere from being spent retroactively.
func availableBalance(c BalanceComponents) int64 {
	available := c.AdjustmentsThroughPeriodEnd + c.FutureNegativeAdjustments + c.FutureReservedNegative
	if available < 0 {
		return 0
	}
	return available
}

// AvailableBalanceAtPeriodEnd computes the units an organization may apply
// against a compliance period: Adjustment entries effective on or before
// the period end, reduced by negative Adjustments dated after it and by
// negative entries Reserved after it.
func AvailableBalanceAtPeriodEnd(ctx context.Context, db *gorm.DB, organizationId int, period *CompliancePeriod) (int64, error) {
	periodEnd := period.PeriodEndLocal()
	var c BalanceComponents

	err := db.WithContext(ctx).Model(&Transaction{}).
		Select("COALESCE(SUM(compliance_units), 0)").
		Where("organization_id = ? AND action = ? AND create_date <= ?",
			organizationId, TxActionAdjustment, periodEnd).
		Scan(&c.AdjustmentsThroughPeriodEnd).Error
	if err != nil {
		return 0, err
	}

	err = db.WithContext(ctx).Model(&Transaction{}).
		Select("COALESCE(SUM(compliance_units), 0)").
		Where("organization_id = ? AND action = ? AND create_date > ? AND compliance_units < 0",
			organizationId, TxActionAdjustment, periodEnd).
		Scan(&c.FutureNegativeAdjustments).Error
	if err != nil {
		return 0, err
	}

	err = db.WithContext(ctx).Model(&Transaction{}).
		Select("COALESCE(SUM(compliance_units), 0)").
		Where("organization_id = ? AND action = ? AND create_date > ? AND compliance_units < 0",
			organizationId, TxActionReserved, periodEnd).
		Scan(&c.FutureReservedNegative).Error
	if err != nil {
		return 0, err
	}

	return availableBalance(c), nil
}

// ListOrganizationTransactions returns the organization's ledger entries,
// newest first.
func ListOrganizationTransactions(ctx context.Context, organizationId int) ([]*Transaction, error) {
	db := config.GetDB()
	var entries []*Transaction
	err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// PeriodTransferActivity sums an organization's recorded transfer and
// agreement activity within a period window, by effective date. The three
// results feed summary Lines 12, 13 and 14.
func PeriodTransferActivity(ctx context.Context, db *gorm.DB, organizationId int, start, end time.Time) (transferredAway int64, received int64, issued int64, err error) {
	sum := func(refType TxReferenceType, negative bool) (int64, error) {
		var units int64
		q := db.WithContext(ctx).Model(&Transaction{}).
			Select("COALESCE(SUM(compliance_units), 0)").
			Where("organization_id = ? AND action = ? AND reference_type = ? AND create_date >= ? AND create_date <= ?",
				organizationId, TxActionAdjustment, refType, start, end)
		if negative {
			q = q.Where("compliance_units < 0")
		} else {
			q = q.Where("compliance_units > 0")
		}
		if err := q.Scan(&units).Error; err != nil {
			return 0, err
		}
		return units, nil
	}

	sent, err := sum(TxRefTransfer, true)
	if err != nil {
		return 0, 0, 0, err
	}
	received, err = sum(TxRefTransfer, false)
	if err != nil {
		return 0, 0, 0, err
	}
	issued, err = sum(TxRefInitiativeAgreement, false)
	if err != nil {
		return 0, 0, 0, err
	}
	return -sent, received, issued, nil
}

// ReservedUnitsForReference sums the Reserved entries tied to one record.
func ReservedUnitsForReference(ctx context.Context, db *gorm.DB, refType TxReferenceType, refId int) (int64, error) {
	var units int64
	err := db.WithContext(ctx).Model(&Transaction{}).
		Select("COALESCE(SUM(compliance_units), 0)").
		Where("reference_type = ? AND reference_id = ? AND action = ?", refType, refId, TxActionReserved).
		Scan(&units).Error
	if err != nil {
		return 0, err
	}
	return units, nil
}
