// seed-reference-data loads the program reference tables a fresh database
// needs before any report can be filed: compliance periods with penalty
// rates, fuel categories and types, provisions, end uses, target carbon
// intensities, plus a government admin user and a demo supplier org.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-reference-data
//
// Idempotent: existing rows are matched by their natural key and left alone.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	adminUsername = "lcfsAdmin"
	adminPassword = "lcfs-admin-dev"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUsernameInContext(ctx, "seed")
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetIsGovernmentInContext(ctx, true)
	ctx = utils.SetSkipOrgScopeInContext(ctx, true)

	if err := seed(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("reference data seeded")
}

func seed(ctx context.Context, db *gorm.DB) error {
	if err := seedPeriods(ctx, db); err != nil {
		return err
	}
	if err := seedFuels(ctx, db); err != nil {
		return err
	}
	if err := seedProvisions(ctx, db); err != nil {
		return err
	}
	if err := seedTargets(ctx, db); err != nil {
		return err
	}
	if err := seedOrgAndAdmin(ctx, db); err != nil {
		return err
	}
	return nil
}

func seedPeriods(ctx context.Context, db *gorm.DB) error {
	loc, err := time.LoadLocation(models.ReportTimezone)
	if err != nil {
		loc = time.UTC
	}
	for year := 2019; year <= time.Now().Year(); year++ {
		period := models.CompliancePeriod{
			Description:          fmt.Sprintf("%d", year),
			EffectiveDate:        time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
			ExpirationDate:       time.Date(year, time.December, 31, 23, 59, 59, 0, loc),
			RenewablePenaltyRate: decimal.NewFromFloat(0.45),
			LowCarbonPenaltyRate: decimal.NewFromInt(600),
		}
		err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "description"}}, DoNothing: true}).
			Create(&period).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func seedFuels(ctx context.Context, db *gorm.DB) error {
	categories := []models.FuelCategory{
		{Category: models.FuelCategoryGasoline, DefaultCarbonIntensity: decimal.NewFromFloat(93.67)},
		{Category: models.FuelCategoryDiesel, DefaultCarbonIntensity: decimal.NewFromFloat(100.21)},
		{Category: models.FuelCategoryJetFuel, DefaultCarbonIntensity: decimal.NewFromFloat(88.83)},
	}
	for i := range categories {
		err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "category"}}, DoNothing: true}).
			Create(&categories[i]).Error
		if err != nil {
			return err
		}
	}

	types := []models.FuelType{
		{Name: "Gasoline", FossilDerived: true, EnergyDensity: decimal.NewFromFloat(34.69), DefaultCarbonIntensity: decimal.NewFromFloat(93.67)},
		{Name: "Diesel", FossilDerived: true, EnergyDensity: decimal.NewFromFloat(38.65), DefaultCarbonIntensity: decimal.NewFromFloat(100.21)},
		{Name: "Jet fuel", FossilDerived: true, EnergyDensity: decimal.NewFromFloat(37.40), DefaultCarbonIntensity: decimal.NewFromFloat(88.83)},
		{Name: "Ethanol", Renewable: true, EnergyDensity: decimal.NewFromFloat(23.58), DefaultCarbonIntensity: decimal.NewFromFloat(53.52)},
		{Name: "Biodiesel", Renewable: true, EnergyDensity: decimal.NewFromFloat(35.40), DefaultCarbonIntensity: decimal.NewFromFloat(29.26)},
		{Name: "HDRD", Renewable: true, EnergyDensity: decimal.NewFromFloat(36.51), DefaultCarbonIntensity: decimal.NewFromFloat(35.14)},
		{Name: "Electricity", EnergyDensity: decimal.NewFromFloat(3.6), DefaultCarbonIntensity: decimal.NewFromFloat(12.14), Units: "kWh"},
		{Name: "Hydrogen", EnergyDensity: decimal.NewFromFloat(141.76), DefaultCarbonIntensity: decimal.NewFromFloat(96.85), Units: "kg"},
		{Name: "Other", Unrecognized: true, EnergyDensity: decimal.NewFromFloat(1), DefaultCarbonIntensity: decimal.NewFromFloat(0)},
	}
	for i := range types {
		if types[i].Units == "" {
			types[i].Units = "L"
		}
		err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&types[i]).Error
		if err != nil {
			return err
		}
		// Seeding may change rows a running API has cached.
		_ = utils.RemoveRedis[models.FuelType](types[i].ID)
	}

	endUses := []models.EndUseType{
		{Type: "Light duty motor vehicles"},
		{Type: "Heavy duty motor vehicles"},
		{Type: "Aviation"},
		{Type: "Marine"},
		{Type: "Any"},
	}
	for i := range endUses {
		err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "type"}}, DoNothing: true}).
			Create(&endUses[i]).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func seedProvisions(ctx context.Context, db *gorm.DB) error {
	provisions := []models.ProvisionOfTheAct{
		{Name: "Default carbon intensity - section 19 (b) (ii)"},
		{Name: "Approved fuel code - section 19 (b) (i)"},
		{Name: "Prescribed carbon intensity - section 19 (a)"},
		{Name: "GHGenius modelled - section 6 (5) (d) (ii) (A)"},
	}
	for i := range provisions {
		err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&provisions[i]).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// seedTargets writes one TCI row per period and category, descending a
// fixed reduction schedule.
func seedTargets(ctx context.Context, db *gorm.DB) error {
	var periods []models.CompliancePeriod
	if err := db.WithContext(ctx).Order("description").Find(&periods).Error; err != nil {
		return err
	}
	var categories []models.FuelCategory
	if err := db.WithContext(ctx).Find(&categories).Error; err != nil {
		return err
	}
	base := map[models.FuelCategoryName]decimal.Decimal{
		models.FuelCategoryGasoline: decimal.NewFromFloat(93.67),
		models.FuelCategoryDiesel:   decimal.NewFromFloat(100.21),
		models.FuelCategoryJetFuel:  decimal.NewFromFloat(88.83),
	}
	for _, period := range periods {
		// 1% additional reduction each year from the 2019 baseline.
		reduction := decimal.NewFromInt(int64(period.Year() - 2019)).Mul(decimal.NewFromFloat(0.01))
		for _, category := range categories {
			tci := models.TargetCarbonIntensity{
				CompliancePeriodId:        period.ID,
				FuelCategoryId:            category.ID,
				TargetCarbonIntensity:     base[category.Category].Mul(decimal.NewFromInt(1).Sub(reduction)).Round(2),
				ReductionTargetPercentage: reduction.Mul(decimal.NewFromInt(100)),
			}
			err := db.WithContext(ctx).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "compliance_period_id"}, {Name: "fuel_category_id"}},
					DoNothing: true,
				}).
				Create(&tci).Error
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func seedOrgAndAdmin(ctx context.Context, db *gorm.DB) error {
	var org models.Organization
	err := db.WithContext(ctx).Where("organization_code = ?", "DEMO").Take(&org).Error
	if err == gorm.ErrRecordNotFound {
		created, cerr := models.CreateOrganization(ctx, &models.NewOrganization{
			Name:             "Demo Fuels Ltd.",
			OperatingName:    "Demo Fuels",
			OrganizationCode: "DEMO",
		})
		if cerr != nil {
			return cerr
		}
		org = *created
	} else if err != nil {
		return err
	}

	var existing models.User
	err = db.WithContext(ctx).Where("username = ?", adminUsername).Take(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		return err
	}
	admin := models.User{
		Username:     adminUsername,
		FirstName:    "LCFS",
		LastName:     "Admin",
		IsGovernment: true,
		Roles:        models.RoleAnalyst + "," + models.RoleComplianceManager + "," + models.RoleDirector + "," + models.RoleAdministrator,
		Password:     string(hashed),
		IsActive:     utils.NewTrue(),
	}
	admin.StampCreate(ctx)
	return db.WithContext(ctx).Create(&admin).Error
}
