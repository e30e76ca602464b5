package models

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
)

type FuelCategoryName string

const (
	FuelCategoryGasoline FuelCategoryName = "Gasoline"
	FuelCategoryDiesel   FuelCategoryName = "Diesel"
	FuelCategoryJetFuel  FuelCategoryName = "Jet fuel"
)

// AllFuelCategories returns the categories in summary display order.
func AllFuelCategories() []FuelCategoryName {
	return []FuelCategoryName{FuelCategoryGasoline, FuelCategoryDiesel, FuelCategoryJetFuel}
}

type FuelCategory struct {
	ID                     int              `gorm:"primary_key" json:"id"`
	Category               FuelCategoryName `gorm:"type:enum('Gasoline','Diesel','Jet fuel');uniqueIndex;not null" json:"category"`
	DefaultCarbonIntensity decimal.Decimal  `gorm:"type:decimal(10,2);default:0" json:"default_carbon_intensity"`
	AuditFields
}

func (c *FuelCategory) GetId() int {
	return c.ID
}

// FuelType is program reference data: whether the fuel is fossil-derived,
// its energy density, and its default carbon intensity.
type FuelType struct {
	ID                     int             `gorm:"primary_key" json:"id"`
	Name                   string          `gorm:"size:255;uniqueIndex;not null" json:"name" binding:"required"`
	FossilDerived          bool            `gorm:"not null;default:false" json:"fossil_derived"`
	Renewable              bool            `gorm:"not null;default:false" json:"renewable"`
	EnergyDensity          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"energy_density"`
	DefaultCarbonIntensity decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"default_carbon_intensity"`
	Units                  string          `gorm:"size:20;not null;default:'L'" json:"units"`
	Unrecognized           bool            `gorm:"not null;default:false" json:"unrecognized"`
	AuditFields
}

func (f *FuelType) GetId() int {
	return f.ID
}

type EndUseType struct {
	ID      int    `gorm:"primary_key" json:"id"`
	Type    string `gorm:"size:255;uniqueIndex;not null" json:"type"`
	SubType string `gorm:"size:255" json:"sub_type"`
}

func (e *EndUseType) GetId() int {
	return e.ID
}

// ProvisionOfTheAct is the statutory provision a supplier cites for the
// carbon intensity of a row.
type ProvisionOfTheAct struct {
	ID   int    `gorm:"primary_key" json:"id"`
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"`
}

func (p *ProvisionOfTheAct) GetId() int {
	return p.ID
}

// TargetCarbonIntensity (TCI) per fuel category and compliance period.
type TargetCarbonIntensity struct {
	ID                    int             `gorm:"primary_key" json:"id"`
	CompliancePeriodId    int             `gorm:"not null;uniqueIndex:idx_tci_period_category,priority:1" json:"compliance_period_id"`
	FuelCategoryId        int             `gorm:"not null;uniqueIndex:idx_tci_period_category,priority:2" json:"fuel_category_id"`
	TargetCarbonIntensity decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"target_carbon_intensity"`
	ReductionTargetPercentage decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"reduction_target_percentage"`
}

// EnergyEffectivenessRatio (EER) per fuel type, category and optional end use.
type EnergyEffectivenessRatio struct {
	ID             int             `gorm:"primary_key" json:"id"`
	FuelTypeId     int             `gorm:"not null;index:idx_eer_lookup,priority:1" json:"fuel_type_id"`
	FuelCategoryId int             `gorm:"not null;index:idx_eer_lookup,priority:2" json:"fuel_category_id"`
	EndUseTypeId   *int            `gorm:"index:idx_eer_lookup,priority:3" json:"end_use_type_id"`
	Ratio          decimal.Decimal `gorm:"type:decimal(5,2);not null;default:1" json:"ratio"`
}

// AdditionalCarbonIntensity (UCI) attributable to use.
type AdditionalCarbonIntensity struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FuelTypeId   *int            `gorm:"index" json:"fuel_type_id"`
	EndUseTypeId *int            `gorm:"index" json:"end_use_type_id"`
	Intensity    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"intensity"`
}

func GetFuelType(ctx context.Context, id int) (*FuelType, error) {
	cached, err := utils.RetrieveRedis[FuelType](id)
	if err == nil && cached != nil {
		return cached, nil
	}
	ft, err := utils.FetchSingleModel[FuelType](ctx, id)
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedis[FuelType](ft, id)
	return ft, nil
}

func ListFuelTypes(ctx context.Context) ([]*FuelType, error) {
	cached, err := utils.RetrieveRedisList[FuelType]()
	if err == nil && cached != nil {
		return cached, nil
	}
	db := config.GetDB()
	var types []*FuelType
	if err := db.WithContext(ctx).Order("name").Find(&types).Error; err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[FuelType](types)
	return types, nil
}

func ListFuelCategories(ctx context.Context) ([]*FuelCategory, error) {
	db := config.GetDB()
	var categories []*FuelCategory
	if err := db.WithContext(ctx).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func ListProvisionsOfTheAct(ctx context.Context) ([]*ProvisionOfTheAct, error) {
	db := config.GetDB()
	var provisions []*ProvisionOfTheAct
	if err := db.WithContext(ctx).Order("name").Find(&provisions).Error; err != nil {
		return nil, err
	}
	return provisions, nil
}

// LookupTargetCarbonIntensity resolves the TCI for a category within a period.
func LookupTargetCarbonIntensity(ctx context.Context, compliancePeriodId int, fuelCategoryId int) (decimal.Decimal, error) {
	db := config.GetDB()
	var tci TargetCarbonIntensity
	err := db.WithContext(ctx).
		Where("compliance_period_id = ? AND fuel_category_id = ?", compliancePeriodId, fuelCategoryId).
		Take(&tci).Error
	if err != nil {
		return decimal.Zero, utils.ErrorRecordNotFound
	}
	return tci.TargetCarbonIntensity, nil
}

// LookupEER resolves the energy effectiveness ratio, preferring an
// end-use-specific row and falling back to the category default.
func LookupEER(ctx context.Context, fuelTypeId int, fuelCategoryId int, endUseTypeId *int) (decimal.Decimal, error) {
	db := config.GetDB()
	var eer EnergyEffectivenessRatio
	if endUseTypeId != nil {
		err := db.WithContext(ctx).
			Where("fuel_type_id = ? AND fuel_category_id = ? AND end_use_type_id = ?", fuelTypeId, fuelCategoryId, *endUseTypeId).
			Take(&eer).Error
		if err == nil {
			return eer.Ratio, nil
		}
	}
	err := db.WithContext(ctx).
		Where("fuel_type_id = ? AND fuel_category_id = ? AND end_use_type_id IS NULL", fuelTypeId, fuelCategoryId).
		Take(&eer).Error
	if err != nil {
		return decimal.NewFromInt(1), nil
	}
	return eer.Ratio, nil
}

// LookupUCI resolves additional carbon intensity; zero when none is prescribed.
func LookupUCI(ctx context.Context, fuelTypeId int, endUseTypeId *int) (decimal.Decimal, error) {
	db := config.GetDB()
	var uci AdditionalCarbonIntensity
	q := db.WithContext(ctx).Where("fuel_type_id = ?", fuelTypeId)
	if endUseTypeId != nil {
		q = q.Where("end_use_type_id = ?", *endUseTypeId)
	} else {
		q = q.Where("end_use_type_id IS NULL")
	}
	if err := q.Take(&uci).Error; err != nil {
		return decimal.Zero, nil
	}
	return uci.Intensity, nil
}
