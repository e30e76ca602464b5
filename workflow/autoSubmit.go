package workflow

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
)

// systemContext builds the identity the scheduler acts under: unscoped,
// attributable in audit fields as "system".
func systemContext(ctx context.Context) context.Context {
	ctx = utils.SetUsernameInContext(ctx, "system")
	ctx = utils.SetUserNameInContext(ctx, "system")
	ctx = utils.SetIsGovernmentInContext(ctx, true)
	ctx = utils.SetSkipOrgScopeInContext(ctx, true)
	return ctx
}

// AutoSubmitStaleSupplementals submits supplier-initiated supplemental
// drafts untouched for the configured number of days. Government-initiated
// versions are left alone; the government closes its own work. Returns the
// number submitted.
func AutoSubmitStaleSupplementals(ctx context.Context) (int, error) {
	db := config.GetDB()
	logger := config.GetLogger()
	ctx = systemContext(ctx)

	cutoff := time.Now().UTC().AddDate(0, 0, -config.AutoSubmitAgeDays())
	var candidates []*models.ComplianceReport
	err := db.WithContext(ctx).
		Where("status = ? AND version > 0 AND supplemental_initiator = ? AND updated_at <= ?",
			models.ReportStatusDraft, models.InitiatorSupplier, cutoff).
		Order("id").
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	submitted := 0
	for _, r := range candidates {
		if _, err := SubmitReport(ctx, r.ID); err != nil {
			config.LogError(logger, "workflow", "AutoSubmitStaleSupplementals", "auto-submit failed", r.ID, err)
			continue
		}
		logger.WithField("compliance_report_id", r.ID).Info("auto-submitted stale supplemental")
		submitted++
	}
	return submitted, nil
}

// RunAutoSubmitScheduler polls on an interval until the context ends.
func RunAutoSubmitScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := AutoSubmitStaleSupplementals(ctx); err != nil {
				config.LogError(config.GetLogger(), "workflow", "RunAutoSubmitScheduler", "sweep failed", nil, err)
			}
		}
	}
}
