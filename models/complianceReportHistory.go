package models

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ComplianceReportHistory records who moved a report version into each
// status and when. One row per (report, status): re-entering a status, for
// example after a return, overwrites the earlier row rather than appending.
type ComplianceReportHistory struct {
	ID                 int          `gorm:"primary_key" json:"id"`
	ComplianceReportId int          `gorm:"not null;uniqueIndex:idx_history_report_status,priority:1" json:"compliance_report_id"`
	Status             ReportStatus `gorm:"size:40;not null;uniqueIndex:idx_history_report_status,priority:2" json:"status"`
	UserId             int          `json:"user_id"`
	DisplayName        string       `gorm:"size:255" json:"display_name"`
	OccurredAt         time.Time    `gorm:"not null" json:"occurred_at"`
}

func (h *ComplianceReportHistory) GetId() int {
	return h.ID
}

// AppendReportHistory upserts the history row for a status transition
// inside the caller's transaction.
func AppendReportHistory(ctx context.Context, tx *gorm.DB, reportId int, status ReportStatus) error {
	entry := &ComplianceReportHistory{
		ComplianceReportId: reportId,
		Status:             status,
		UserId:             utils.GetUserIdFromContext(ctx),
		DisplayName:        utils.GetUserNameFromContext(ctx),
		OccurredAt:         time.Now().UTC(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "compliance_report_id"}, {Name: "status"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "display_name", "occurred_at"}),
	}).Create(entry).Error
}

// ListReportHistory returns the audit trail for one report version in the
// order the statuses were entered.
func ListReportHistory(ctx context.Context, reportId int) ([]*ComplianceReportHistory, error) {
	db := config.GetDB()
	var entries []*ComplianceReportHistory
	err := db.WithContext(ctx).
		Where("compliance_report_id = ?", reportId).
		Order("occurred_at").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
