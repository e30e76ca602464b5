package models

import (
	"context"

	"github.com/bcgov/lcfs/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VersionActionType string

const (
	VersionActionCreate VersionActionType = "Create"
	VersionActionUpdate VersionActionType = "Update"
	VersionActionDelete VersionActionType = "Delete"
)

// VersionedFields is embedded by every line-item table. Rows are never
// updated in place across report versions: each edit in a new report
// version appends a row with the same group_uuid and a higher version.
// The pair (group_uuid, version) is unique per table.
type VersionedFields struct {
	GroupUuid          string            `gorm:"size:36;not null;uniqueIndex:idx_group_version,priority:1" json:"group_uuid"`
	Version            int               `gorm:"not null;uniqueIndex:idx_group_version,priority:2" json:"version"`
	ActionType         VersionActionType `gorm:"type:enum('Create','Update','Delete');not null;default:'Create'" json:"action_type"`
	ComplianceReportId int               `gorm:"not null;index" json:"compliance_report_id"`
}

// NewVersionGroup initializes the versioned fields for a brand-new row.
func NewVersionGroup(reportId int) VersionedFields {
	return VersionedFields{
		GroupUuid:          uuid.NewString(),
		Version:            0,
		ActionType:         VersionActionCreate,
		ComplianceReportId: reportId,
	}
}

// NextVersion builds the versioned fields for a successor row in a later
// report version.
func (v VersionedFields) NextVersion(reportId int, action VersionActionType) VersionedFields {
	return VersionedFields{
		GroupUuid:          v.GroupUuid,
		Version:            v.Version + 1,
		ActionType:         action,
		ComplianceReportId: reportId,
	}
}

// EffectiveRows returns the effective line-item set for a report chain:
// for each group_uuid, the row with the highest version among the chain's
// report ids, excluding groups whose latest action is Delete.
func EffectiveRows[T any](ctx context.Context, db *gorm.DB, table string, chainReportIds []int) ([]*T, error) {
	if len(chainReportIds) == 0 {
		return nil, nil
	}
	var rows []*T
	err := db.WithContext(ctx).Table(table+" AS t").
		Joins(`JOIN (
			SELECT group_uuid, MAX(version) AS max_version
			FROM `+table+`
			WHERE compliance_report_id IN ?
			GROUP BY group_uuid
		) latest ON latest.group_uuid = t.group_uuid AND latest.max_version = t.version`, chainReportIds).
		Where("t.compliance_report_id IN ?", chainReportIds).
		Where("t.action_type <> ?", VersionActionDelete).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// latestRowInGroup fetches the highest-version row of a group within a chain.
func latestRowInGroup[T any](ctx context.Context, db *gorm.DB, table string, groupUuid string, chainReportIds []int) (*T, error) {
	var row T
	err := db.WithContext(ctx).Table(table).
		Where("group_uuid = ? AND compliance_report_id IN ?", groupUuid, chainReportIds).
		Order("version DESC").
		Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &row, nil
}

// canPhysicallyDelete reports whether removing a group from a draft report
// may be a physical row delete: only when the row's create version belongs
// to the draft itself. Otherwise the removal must be recorded as a Delete
// version.
func canPhysicallyDelete(v VersionedFields, draftReportId int) bool {
	return v.ComplianceReportId == draftReportId && v.ActionType == VersionActionCreate && v.Version == 0
}

// Versioned exposes the embedded fields through an interface so the
// generic repository helpers can read them off any line-item pointer.
func (v *VersionedFields) Versioned() *VersionedFields { return v }

type versionedRow interface{ Versioned() *VersionedFields }

// deleteVersionedGroup removes a group from a draft report. The delete is
// physical when the group was born in this draft (rollback of an in-flight
// edit); otherwise marker builds the logical delete version to append.
func deleteVersionedGroup[T any, P interface {
	*T
	versionedRow
}](ctx context.Context, tx *gorm.DB, table string, groupUuid string, report *ComplianceReport, marker func(latest *T) *T) error {
	chainIds, err := ChainReportIdsThrough(ctx, tx, report)
	if err != nil {
		return err
	}
	latest, err := latestRowInGroup[T](ctx, tx, table, groupUuid, chainIds)
	if err != nil {
		return err
	}
	v := P(latest).Versioned()
	if v.ActionType == VersionActionDelete {
		return nil
	}
	if canPhysicallyDelete(*v, report.ID) {
		return tx.Table(table).Where("group_uuid = ?", groupUuid).Delete(new(T)).Error
	}
	return tx.Table(table).Create(marker(latest)).Error
}
