package workflow

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func getReportForTransition(tx *gorm.DB, id int) (*models.ComplianceReport, error) {
	var report models.ComplianceReport
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&report, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &report, nil
}

func saveReportStatus(ctx context.Context, tx *gorm.DB, report *models.ComplianceReport, status models.ReportStatus) error {
	report.Status = status
	report.StampUpdate(ctx)
	if err := tx.Model(report).Updates(map[string]interface{}{
		"status":      status,
		"update_user": report.UpdateUser,
	}).Error; err != nil {
		return err
	}
	return models.AppendReportHistory(ctx, tx, report.ID, status)
}

func transitionReport(ctx context.Context, reportId int, apply func(context.Context, *gorm.DB, *models.ComplianceReport) error) (*models.ComplianceReport, error) {
	db := config.GetDB()
	var report *models.ComplianceReport
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := getReportForTransition(tx, reportId)
		if err != nil {
			return err
		}
		if err := apply(ctx, tx, r); err != nil {
			return err
		}
		if err := models.EnqueueNotificationTx(ctx, tx, "report-status", r.ID, string(models.TxRefComplianceReport), r.OrganizationId); err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func requireOwnReport(ctx context.Context, report *models.ComplianceReport) error {
	if utils.GetIsGovernmentFromContext(ctx) {
		return nil
	}
	if report.OrganizationId != utils.GetOrganizationIdFromContext(ctx) {
		return utils.NewForbiddenError("report belongs to another organization")
	}
	return nil
}

// SubmitReport moves a draft to Submitted (or an analyst adjustment to
// Recommended-by-analyst), locks the summary, and reserves the computed
// compliance-unit delta. A negative delta is reserved only down to the
// organization's balance; penalties cover the remainder.
func SubmitReport(ctx context.Context, reportId int) (*models.ComplianceReport, error) {
	return transitionReport(ctx, reportId, func(ctx context.Context, tx *gorm.DB, r *models.ComplianceReport) error {
		var nextStatus models.ReportStatus
		switch r.Status {
		case models.ReportStatusDraft:
			if err := requireOwnReport(ctx, r); err != nil {
				return err
			}
			if r.IsGovernmentAdjustment() && !utils.GetIsGovernmentFromContext(ctx) {
				return utils.NewForbiddenError("government role required")
			}
			nextStatus = models.ReportStatusSubmitted
		case models.ReportStatusAnalystAdjustment:
			if !utils.HasRoleInContext(ctx, models.RoleAnalyst) {
				return utils.NewForbiddenError("analyst role required")
			}
			nextStatus = models.ReportStatusRecommendedByAnalyst
		default:
			return utils.NewDomainError("report cannot be submitted from its current status", map[string]string{"status": string(r.Status)})
		}

		// Recompute from a fresh snapshot, persist, and freeze the result;
		// this is the record the assessment reads.
		in, err := gatherSummaryInputs(ctx, tx, r)
		if err != nil {
			return err
		}
		persisted, err := models.GetSummaryForReport(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		persistedUserInputs(&in, persisted)
		summary, err := ComputeSummary(in)
		if err != nil {
			return err
		}
		summary.ComplianceReportId = r.ID
		if persisted != nil {
			summary.ID = persisted.ID
			summary.OverrideEnabled = persisted.OverrideEnabled
			summary.OverrideRenewablePenalty = persisted.OverrideRenewablePenalty
			summary.OverrideLowCarbonPenalty = persisted.OverrideLowCarbonPenalty
			summary.OverrideUser = persisted.OverrideUser
			summary.OverrideDate = persisted.OverrideDate
			summary.AuditFields = persisted.AuditFields
		}
		applyPenaltyOverride(summary, in.PeriodYear)
		summary.IsLocked = true
		if err := models.UpsertSummary(ctx, tx, summary); err != nil {
			return err
		}

		delta := summary.LowCarbon.Line20BalanceChange
		if delta < 0 {
			balance, err := models.OrganizationBalance(ctx, tx, r.OrganizationId)
			if err != nil {
				return err
			}
			if -delta > balance {
				delta = -balance
			}
		}
		if delta != 0 {
			if _, err := models.RecordTransaction(ctx, tx, r.OrganizationId, delta,
				models.TxActionReserved, models.TxRefComplianceReport, r.ID); err != nil {
				return err
			}
		}
		return saveReportStatus(ctx, tx, r, nextStatus)
	})
}

// RecommendReportByAnalyst advances Submitted to Recommended-by-analyst.
func RecommendReportByAnalyst(ctx context.Context, reportId int) (*models.ComplianceReport, error) {
	return transitionReport(ctx, reportId, func(ctx context.Context, tx *gorm.DB, r *models.ComplianceReport) error {
		if r.Status != models.ReportStatusSubmitted {
			return utils.NewDomainError("report has not been submitted", map[string]string{"status": string(r.Status)})
		}
		if !utils.HasRoleInContext(ctx, models.RoleAnalyst) {
			return utils.NewForbiddenError("analyst role required")
		}
		return saveReportStatus(ctx, tx, r, models.ReportStatusRecommendedByAnalyst)
	})
}

// RecommendReportByManager advances to Recommended-by-manager.
func RecommendReportByManager(ctx context.Context, reportId int) (*models.ComplianceReport, error) {
	return transitionReport(ctx, reportId, func(ctx context.Context, tx *gorm.DB, r *models.ComplianceReport) error {
		if r.Status != models.ReportStatusRecommendedByAnalyst {
			return utils.NewDomainError("report has not been recommended by an analyst", map[string]string{"status": string(r.Status)})
		}
		if !utils.HasRoleInContext(ctx, models.RoleComplianceManager) {
			return utils.NewForbiddenError("compliance manager role required")
		}
		return saveReportStatus(ctx, tx, r, models.ReportStatusRecommendedByManager)
	})
}

// ReturnReportToSubmitted sends a recommendation back to the analyst queue.
func ReturnReportToSubmitted(ctx context.Context, reportId int) (*models.ComplianceReport, error) {
	return transitionReport(ctx, reportId, func(ctx context.Context, tx *gorm.DB, r *models.ComplianceReport) error {
		if r.Status != models.ReportStatusRecommendedByAnalyst {
			return utils.NewDomainError("only an analyst recommendation can be returned", map[string]string{"status": string(r.Status)})
		}
		if !utils.GetIsGovernmentFromContext(ctx) {
			return utils.NewForbiddenError("government role required")
		}
		return saveReportStatus(ctx, tx, r, models.ReportStatusSubmitted)
	})
}

// ReturnReportToAnalyst sends a manager recommendation back one step.
func ReturnReportToAnalyst(ctx context.Context, reportId int) (*models.ComplianceReport, error) {
	return transitionReport(ctx, reportId, func(ctx context.Context, tx *gorm.DB, r *models.ComplianceReport) error {
		if r.Status != models.ReportStatusRecommendedByManager {
			return utils.NewDomainError("only a manager recommendation can be returned", map[string]string{"status": string(r.Status)})
		}
		if !utils.GetIsGovernmentFromContext(ctx) {
			return utils.NewForbiddenError("government role required")
		}
		return saveReportStatus(ctx, tx, r, models.ReportStatusRecommendedByAnalyst)
	})
}

// AssessReport is the director's decision: the reservation becomes a
// committed adjustment and the version is marked Assessed, or Re-assessed
// when the chain has been assessed before.
func AssessReport(ctx context.Context, reportId int, assessmentStatement string) (*models.ComplianceReport, error) {
	return transitionReport(ctx, reportId, func(ctx context.Context, tx *gorm.DB, r *models.ComplianceReport) error {
		if r.Status != models.ReportStatusRecommendedByManager {
			return utils.NewDomainError("report has not been recommended by a manager", map[string]string{"status": string(r.Status)})
		}
		if !utils.HasRoleInContext(ctx, models.RoleDirector) {
			return utils.NewForbiddenError("director role required")
		}

		if err := models.ConfirmTransaction(ctx, tx, models.TxRefComplianceReport, r.ID); err != nil {
			return err
		}
		if err := models.LockSummary(ctx, tx, r.ID); err != nil {
			return err
		}

		prior, err := models.LatestAssessedPredecessor(ctx, tx, r)
		if err != nil {
			return err
		}
		status := models.ReportStatusAssessed
		if prior != nil {
			status = models.ReportStatusReassessed
		}
		if assessmentStatement != "" {
			if err := tx.Model(r).Update("assessment_statement", assessmentStatement).Error; err != nil {
				return err
			}
			r.AssessmentStatement = assessmentStatement
		}
		return saveReportStatus(ctx, tx, r, status)
	})
}

// RejectReport is the director's refusal. The version's reservation is
// released so the units return to the organization's balance.
func RejectReport(ctx context.Context, reportId int) (*models.ComplianceReport, error) {
	return transitionReport(ctx, reportId, func(ctx context.Context, tx *gorm.DB, r *models.ComplianceReport) error {
		if r.Status != models.ReportStatusRecommendedByManager {
			return utils.NewDomainError("report has not been recommended by a manager", map[string]string{"status": string(r.Status)})
		}
		if !utils.HasRoleInContext(ctx, models.RoleDirector) {
			return utils.NewForbiddenError("director role required")
		}
		if err := models.ReleaseTransaction(ctx, tx, models.TxRefComplianceReport, r.ID); err != nil {
			return err
		}
		return saveReportStatus(ctx, tx, r, models.ReportStatusRejected)
	})
}

// newChainVersion appends version v+1 to a chain. Line items need no
// copying: the effective-set query inherits them through the chain.
// Creating the version supersedes the prior version's reservation.
func newChainVersion(ctx context.Context, tx *gorm.DB, prior *models.ComplianceReport, status models.ReportStatus, initiator models.SupplementalInitiator, nickname string) (*models.ComplianceReport, error) {
	latest, err := models.LatestReportInChain(ctx, tx, prior.GroupUuid)
	if err != nil {
		return nil, err
	}
	if !latest.IsAssessed() {
		return nil, utils.NewDomainError("a new version requires the latest version to be assessed", map[string]string{"status": string(latest.Status)})
	}

	next := &models.ComplianceReport{
		CompliancePeriodId:    prior.CompliancePeriodId,
		OrganizationId:        prior.OrganizationId,
		GroupUuid:             prior.GroupUuid,
		Version:               latest.Version + 1,
		SupplementalInitiator: initiator,
		Status:                status,
		Nickname:              nickname,
	}
	next.StampCreate(ctx)
	if err := tx.Create(next).Error; err != nil {
		return nil, err
	}
	if err := models.AppendReportHistory(ctx, tx, next.ID, status); err != nil {
		return nil, err
	}
	if err := models.CopyInternalComments(ctx, tx, latest.ID, next.ID); err != nil {
		return nil, err
	}
	if err := models.ReleaseTransaction(ctx, tx, models.TxRefComplianceReport, latest.ID); err != nil {
		return nil, err
	}
	return next, nil
}

// CreateSupplementalReport opens the next version of a chain as a draft.
// Suppliers supplement their own reports; government users create
// government-initiated supplementals.
func CreateSupplementalReport(ctx context.Context, reportId int, nickname string) (*models.ComplianceReport, error) {
	db := config.GetDB()
	var created *models.ComplianceReport
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior, err := getReportForTransition(tx, reportId)
		if err != nil {
			return err
		}
		initiator := models.InitiatorSupplier
		if utils.GetIsGovernmentFromContext(ctx) {
			initiator = models.InitiatorGovernment
		} else if prior.OrganizationId != utils.GetOrganizationIdFromContext(ctx) {
			return utils.NewForbiddenError("report belongs to another organization")
		}
		created, err = newChainVersion(ctx, tx, prior, models.ReportStatusDraft, initiator, nickname)
		if err != nil {
			return err
		}
		return models.EnqueueNotificationTx(ctx, tx, "supplemental-created", created.ID, string(models.TxRefComplianceReport), created.OrganizationId)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateAnalystAdjustment opens a government-editable adjustment version.
func CreateAnalystAdjustment(ctx context.Context, reportId int, nickname string) (*models.ComplianceReport, error) {
	db := config.GetDB()
	if !utils.HasRoleInContext(ctx, models.RoleAnalyst) {
		return nil, utils.NewForbiddenError("analyst role required")
	}
	var created *models.ComplianceReport
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior, err := getReportForTransition(tx, reportId)
		if err != nil {
			return err
		}
		created, err = newChainVersion(ctx, tx, prior, models.ReportStatusAnalystAdjustment, models.InitiatorGovernment, nickname)
		if err != nil {
			return err
		}
		return models.EnqueueNotificationTx(ctx, tx, "analyst-adjustment-created", created.ID, string(models.TxRefComplianceReport), created.OrganizationId)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteReportVersion removes an in-progress supplemental or adjustment
// (v>0 only) and reinstates the reservation it superseded. The version's
// own rows, summary, history and comments cascade.
func DeleteReportVersion(ctx context.Context, reportId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := getReportForTransition(tx, reportId)
		if err != nil {
			return err
		}
		if r.IsOriginal() {
			return utils.NewDomainError("the original report cannot be deleted", map[string]string{"version": "0"})
		}
		if r.Status != models.ReportStatusDraft && r.Status != models.ReportStatusAnalystAdjustment {
			return utils.NewDomainError("only an in-progress version can be deleted", map[string]string{"status": string(r.Status)})
		}
		if err := requireOwnReport(ctx, r); err != nil {
			return err
		}

		var prior models.ComplianceReport
		err = tx.Where("group_uuid = ? AND version = ?", r.GroupUuid, r.Version-1).Take(&prior).Error
		if err != nil {
			return err
		}
		if err := models.ReinstateTransaction(ctx, tx, models.TxRefComplianceReport, prior.ID); err != nil {
			return err
		}
		// Any reservation this draft itself made is dropped for good.
		if err := models.ReleaseTransaction(ctx, tx, models.TxRefComplianceReport, r.ID); err != nil {
			return err
		}

		for _, table := range []string{
			models.FuelSupply{}.TableName(),
			models.FuelExport{}.TableName(),
			models.NotionalTransfer{}.TableName(),
			models.OtherUses{}.TableName(),
			models.AllocationAgreement{}.TableName(),
		} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE compliance_report_id = ?", r.ID).Error; err != nil {
				return err
			}
		}
		if err := models.DeleteSummaryForReport(ctx, tx, r.ID); err != nil {
			return err
		}
		if err := models.DeleteCommentsForReport(ctx, tx, r.ID); err != nil {
			return err
		}
		if err := tx.Where("compliance_report_id = ?", r.ID).Delete(&models.ComplianceReportHistory{}).Error; err != nil {
			return err
		}
		return tx.Delete(r).Error
	})
}
