package models

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"gorm.io/gorm"
)

// InternalComment is a government-only note on a report version. Comments
// are copied forward when a supplemental or adjustment version is created
// so the discussion follows the chain.
type InternalComment struct {
	ID                 int    `gorm:"primary_key" json:"id"`
	ComplianceReportId int    `gorm:"not null;index" json:"compliance_report_id"`
	Comment            string `gorm:"size:4000;not null" json:"comment" binding:"required"`
	AuditFields
}

func (c *InternalComment) GetId() int {
	return c.ID
}

func CreateInternalComment(ctx context.Context, reportId int, comment string) (*InternalComment, error) {
	if !utils.GetIsGovernmentFromContext(ctx) {
		return nil, utils.NewForbiddenError("government role required")
	}
	if comment == "" {
		return nil, utils.NewValidationError("comment is required", map[string]string{"comment": "required"})
	}
	db := config.GetDB()
	record := &InternalComment{ComplianceReportId: reportId, Comment: comment}
	record.StampCreate(ctx)
	if err := db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func ListInternalComments(ctx context.Context, reportId int) ([]*InternalComment, error) {
	if !utils.GetIsGovernmentFromContext(ctx) {
		return nil, utils.NewForbiddenError("government role required")
	}
	db := config.GetDB()
	var comments []*InternalComment
	err := db.WithContext(ctx).
		Where("compliance_report_id = ?", reportId).
		Order("id").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// CopyInternalComments duplicates a version's comments onto its successor
// inside the caller's transaction.
func CopyInternalComments(ctx context.Context, tx *gorm.DB, fromReportId int, toReportId int) error {
	var comments []*InternalComment
	err := tx.Where("compliance_report_id = ?", fromReportId).
		Order("id").
		Find(&comments).Error
	if err != nil {
		return err
	}
	for _, c := range comments {
		dup := &InternalComment{
			ComplianceReportId: toReportId,
			Comment:            c.Comment,
			AuditFields:        c.AuditFields,
		}
		dup.ID = 0
		if err := tx.Create(dup).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteCommentsForReport removes a deleted draft version's comments.
func DeleteCommentsForReport(ctx context.Context, tx *gorm.DB, reportId int) error {
	return tx.Where("compliance_report_id = ?", reportId).
		Delete(&InternalComment{}).Error
}
