package models

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportStatus string

const (
	ReportStatusDraft                = ReportStatus("Draft")
	ReportStatusAnalystAdjustment    = ReportStatus("Analyst adjustment")
	ReportStatusSubmitted            = ReportStatus("Submitted")
	ReportStatusRecommendedByAnalyst = ReportStatus("Recommended by analyst")
	ReportStatusRecommendedByManager = ReportStatus("Recommended by manager")
	ReportStatusAssessed             = ReportStatus("Assessed")
	ReportStatusReassessed           = ReportStatus("Re-assessed")
	ReportStatusRejected             = ReportStatus("Rejected")
)

// AssessedStatuses match both the first assessment and re-assessments.
var AssessedStatuses = []ReportStatus{ReportStatusAssessed, ReportStatusReassessed}

type SupplementalInitiator string

const (
	InitiatorSupplier   SupplementalInitiator = "Supplier"
	InitiatorGovernment SupplementalInitiator = "Government"
)

// ComplianceReport is one version in a report chain. All versions for the
// same organization and period share a group uuid; version 0 is the
// original and each supplemental or government adjustment appends the next
// version.
type ComplianceReport struct {
	ID                    int                   `gorm:"primary_key" json:"id"`
	CompliancePeriodId    int                   `gorm:"not null;index" json:"compliance_period_id"`
	OrganizationId        int                   `gorm:"not null;index" json:"organization_id"`
	GroupUuid             string                `gorm:"size:36;not null;uniqueIndex:idx_report_group_version,priority:1" json:"group_uuid"`
	Version               int                   `gorm:"not null;uniqueIndex:idx_report_group_version,priority:2" json:"version"`
	SupplementalInitiator SupplementalInitiator `gorm:"size:20" json:"supplemental_initiator,omitempty"`
	Status                ReportStatus          `gorm:"size:40;not null;default:'Draft';index" json:"status"`
	Nickname              string                `gorm:"size:255" json:"nickname"`
	SupplementalNote      string                `gorm:"size:500" json:"supplemental_note"`
	AssessmentStatement   string                `gorm:"size:1000" json:"assessment_statement"`
	SubmittedAt           *time.Time            `json:"submitted_at,omitempty"`
	AuditFields

	CompliancePeriod *CompliancePeriod `gorm:"foreignKey:CompliancePeriodId" json:"compliance_period,omitempty"`
	Organization     *Organization     `gorm:"foreignKey:OrganizationId" json:"organization,omitempty"`
}

func (r *ComplianceReport) GetId() int {
	return r.ID
}

func (r *ComplianceReport) IsOriginal() bool {
	return r.Version == 0
}

func (r *ComplianceReport) IsGovernmentAdjustment() bool {
	return r.SupplementalInitiator == InitiatorGovernment
}

func (r *ComplianceReport) IsAssessed() bool {
	return r.Status == ReportStatusAssessed || r.Status == ReportStatusReassessed
}

// Editable reports whether line items and the summary may still change.
func (r *ComplianceReport) Editable() bool {
	return r.Status == ReportStatusDraft || r.Status == ReportStatusAnalystAdjustment
}

// InProgress reports whether the version still sits with someone for
// action, i.e. it has been neither assessed nor rejected.
func (r *ComplianceReport) InProgress() bool {
	return !r.IsAssessed() && r.Status != ReportStatusRejected
}

type NewComplianceReport struct {
	CompliancePeriodId int    `json:"compliance_period_id" binding:"required"`
	OrganizationId     int    `json:"organization_id"`
	Nickname           string `json:"nickname"`
}

// CreateComplianceReport opens a new original report (version 0) for the
// organization and period. At most one chain may exist per organization
// and period.
func CreateComplianceReport(ctx context.Context, input NewComplianceReport) (*ComplianceReport, error) {
	db := config.GetDB()
	if input.OrganizationId == 0 {
		input.OrganizationId = utils.GetOrganizationIdFromContext(ctx)
	}
	if _, err := GetCompliancePeriod(ctx, input.CompliancePeriodId); err != nil {
		return nil, utils.NewValidationError("compliance period not found", map[string]string{"compliance_period_id": "unknown compliance period"})
	}

	var count int64
	err := db.WithContext(ctx).Model(&ComplianceReport{}).
		Where("organization_id = ? AND compliance_period_id = ?", input.OrganizationId, input.CompliancePeriodId).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewConflictError("a report already exists for this compliance period")
	}

	report := &ComplianceReport{
		CompliancePeriodId: input.CompliancePeriodId,
		OrganizationId:     input.OrganizationId,
		GroupUuid:          uuid.NewString(),
		Version:            0,
		Status:             ReportStatusDraft,
		Nickname:           input.Nickname,
	}
	report.StampCreate(ctx)

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		return AppendReportHistory(ctx, tx, report.ID, ReportStatusDraft)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func GetComplianceReport(ctx context.Context, id int) (*ComplianceReport, error) {
	db := config.GetDB()
	var report ComplianceReport
	err := db.WithContext(ctx).
		Preload("CompliancePeriod").
		Preload("Organization").
		Take(&report, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &report, nil
}

// getReportForUpdate loads a report with a row lock, without org scoping,
// for use inside lifecycle transactions.
func getReportForUpdate(tx *gorm.DB, id int) (*ComplianceReport, error) {
	var report ComplianceReport
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&report, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &report, nil
}

// GetReportChain returns every version of a report group ordered by
// version ascending.
func GetReportChain(ctx context.Context, db *gorm.DB, groupUuid string) ([]*ComplianceReport, error) {
	var chain []*ComplianceReport
	err := db.WithContext(ctx).
		Where("group_uuid = ?", groupUuid).
		Order("version").
		Find(&chain).Error
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// ChainReportIdsThrough resolves the report ids of versions up to and
// including the given report's version. Line-item effective sets are
// computed over this id set.
func ChainReportIdsThrough(ctx context.Context, db *gorm.DB, report *ComplianceReport) ([]int, error) {
	var ids []int
	err := db.WithContext(ctx).Model(&ComplianceReport{}).
		Where("group_uuid = ? AND version <= ?", report.GroupUuid, report.Version).
		Order("version").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// LatestReportInChain returns the highest version of a group.
func LatestReportInChain(ctx context.Context, db *gorm.DB, groupUuid string) (*ComplianceReport, error) {
	var report ComplianceReport
	err := db.WithContext(ctx).
		Where("group_uuid = ?", groupUuid).
		Order("version DESC").
		Take(&report).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &report, nil
}

// LatestAssessedPredecessor returns the most recent Assessed version with a
// lower version number than the given report, or nil when none exists.
// Supplemental summaries take their previously-issued and previously-retained
// lines from this sibling.
func LatestAssessedPredecessor(ctx context.Context, db *gorm.DB, report *ComplianceReport) (*ComplianceReport, error) {
	var prior ComplianceReport
	err := db.WithContext(ctx).
		Where("group_uuid = ? AND version < ? AND status IN ?", report.GroupUuid, report.Version, AssessedStatuses).
		Order("version DESC").
		Take(&prior).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &prior, nil
}

// PreviousAssessedForPeriod finds the organization's latest assessed
// report version for the given (usually previous) period, across all
// groups. Nil when the organization has no assessed report for it.
func PreviousAssessedForPeriod(ctx context.Context, db *gorm.DB, organizationId int, compliancePeriodId int) (*ComplianceReport, error) {
	var report ComplianceReport
	err := db.WithContext(ctx).
		Where("organization_id = ? AND compliance_period_id = ? AND status IN ?",
			organizationId, compliancePeriodId, AssessedStatuses).
		Order("version DESC, id DESC").
		Take(&report).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// ListComplianceReports returns the latest visible version per chain for
// the caller. Government users see every organization but not supplier
// drafts in progress beyond what has been submitted; suppliers see only
// their own chains.
func ListComplianceReports(ctx context.Context, compliancePeriodId int) ([]*ComplianceReport, error) {
	db := config.GetDB()
	isGovernment := utils.GetIsGovernmentFromContext(ctx)

	q := db.WithContext(ctx).Model(&ComplianceReport{}).
		Preload("CompliancePeriod").
		Preload("Organization")
	if compliancePeriodId != 0 {
		q = q.Where("compliance_period_id = ?", compliancePeriodId)
	}
	if isGovernment {
		// Drafts initiated by suppliers are invisible to government until
		// submitted.
		q = q.Where("NOT (status = ? AND (supplemental_initiator = ? OR version = 0))",
			ReportStatusDraft, InitiatorSupplier)
	} else {
		q = q.Where("organization_id = ?", utils.GetOrganizationIdFromContext(ctx))
	}

	var reports []*ComplianceReport
	if err := q.Order("organization_id, group_uuid, version DESC").Find(&reports).Error; err != nil {
		return nil, err
	}

	// Collapse to the newest visible version per chain.
	seen := make(map[string]bool, len(reports))
	out := make([]*ComplianceReport, 0, len(reports))
	for _, r := range reports {
		if seen[r.GroupUuid] {
			continue
		}
		seen[r.GroupUuid] = true
		out = append(out, r)
	}
	return out, nil
}
