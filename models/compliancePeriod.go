package models

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportTimezone is the statutory local time for period boundaries.
const ReportTimezone = "America/Vancouver"

// CompliancePeriod is one regulated calendar year. Rows are immutable; the
// prescribed penalty rates ride along as period configuration.
type CompliancePeriod struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	Description          string          `gorm:"size:10;uniqueIndex;not null" json:"description"`
	EffectiveDate        time.Time       `gorm:"not null" json:"effective_date"`
	ExpirationDate       time.Time       `gorm:"not null" json:"expiration_date"`
	RenewablePenaltyRate decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"renewable_penalty_rate"`
	LowCarbonPenaltyRate decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"low_carbon_penalty_rate"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *CompliancePeriod) GetId() int {
	return p.ID
}

// Year parses the period description ("2024").
func (p *CompliancePeriod) Year() int {
	y, err := strconv.Atoi(p.Description)
	if err != nil {
		return 0
	}
	return y
}

// PeriodStartLocal is Jan 1 00:00:00 local time for the period year.
func (p *CompliancePeriod) PeriodStartLocal() time.Time {
	loc, err := time.LoadLocation(ReportTimezone)
	if err != nil {
		loc = time.UTC
	}
	return time.Date(p.Year(), time.January, 1, 0, 0, 0, 0, loc)
}

// PeriodEndLocal is Dec 31 23:59:59 local time for the period year.
func (p *CompliancePeriod) PeriodEndLocal() time.Time {
	loc, err := time.LoadLocation(ReportTimezone)
	if err != nil {
		loc = time.UTC
	}
	return time.Date(p.Year(), time.December, 31, 23, 59, 59, 0, loc)
}

func GetCompliancePeriod(ctx context.Context, id int) (*CompliancePeriod, error) {
	cached, err := utils.RetrieveRedis[CompliancePeriod](id)
	if err == nil && cached != nil {
		return cached, nil
	}

	period, err := utils.FetchSingleModel[CompliancePeriod](ctx, id)
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedis[CompliancePeriod](period, id)
	return period, nil
}

// PreviousCompliancePeriod returns the period for year-1, or nil when none exists.
func PreviousCompliancePeriod(ctx context.Context, period *CompliancePeriod) (*CompliancePeriod, error) {
	db := config.GetDB()
	var prev CompliancePeriod
	err := db.WithContext(ctx).Where("description = ?", strconv.Itoa(period.Year()-1)).Take(&prev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prev, nil
}
