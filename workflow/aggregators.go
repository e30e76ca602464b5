package workflow

import (
	"github.com/bcgov/lcfs/models"
)

// RefData carries the reference lookups an aggregation pass needs, loaded
// once so the aggregators themselves stay free of I/O.
type RefData struct {
	FuelTypes  map[int]*models.FuelType
	Categories map[int]models.FuelCategoryName
}

// CategoryVolumes maps fuel category to whole litre-equivalents.
type CategoryVolumes map[models.FuelCategoryName]int64

func newCategoryVolumes() CategoryVolumes {
	v := make(CategoryVolumes, 3)
	for _, c := range models.AllFuelCategories() {
		v[c] = 0
	}
	return v
}

func (r RefData) categoryOf(fuelCategoryId int) (models.FuelCategoryName, bool) {
	c, ok := r.Categories[fuelCategoryId]
	return c, ok
}

func (r RefData) isFossil(fuelTypeId int) bool {
	ft, ok := r.FuelTypes[fuelTypeId]
	return ok && ft.FossilDerived
}

// AggregateRenewableVolumes sums the supplied volume of non-fossil rows
// per fuel category.
func AggregateRenewableVolumes(rows []*models.FuelSupply, ref RefData) CategoryVolumes {
	volumes := newCategoryVolumes()
	for _, row := range rows {
		if ref.isFossil(row.FuelTypeId) {
			continue
		}
		category, ok := ref.categoryOf(row.FuelCategoryId)
		if !ok {
			continue
		}
		q := models.AnnualQuantity(row.Quantity, row.Q1Quantity, row.Q2Quantity, row.Q3Quantity, row.Q4Quantity)
		volumes[category] += q.Round(0).IntPart()
	}
	return volumes
}

// AggregateFossilVolumes is the fossil-derived counterpart.
func AggregateFossilVolumes(rows []*models.FuelSupply, ref RefData) CategoryVolumes {
	volumes := newCategoryVolumes()
	for _, row := range rows {
		if !ref.isFossil(row.FuelTypeId) {
			continue
		}
		category, ok := ref.categoryOf(row.FuelCategoryId)
		if !ok {
			continue
		}
		q := models.AnnualQuantity(row.Quantity, row.Q1Quantity, row.Q2Quantity, row.Q3Quantity, row.Q4Quantity)
		volumes[category] += q.Round(0).IntPart()
	}
	return volumes
}

// AggregateNotionalVolumes nets the paper transfers per fuel category:
// received volume counts up, transferred volume counts down.
func AggregateNotionalVolumes(rows []*models.NotionalTransfer, ref RefData) CategoryVolumes {
	volumes := newCategoryVolumes()
	for _, row := range rows {
		category, ok := ref.categoryOf(row.FuelCategoryId)
		if !ok {
			continue
		}
		volumes[category] += row.SignedVolume().Round(0).IntPart()
	}
	return volumes
}

// ComplianceUnitsFromSupply sums the per-row credits of the effective
// fuel-supply set.
func ComplianceUnitsFromSupply(rows []*models.FuelSupply) int64 {
	var units int64
	for _, row := range rows {
		units += row.ComplianceUnits
	}
	return units
}

// ComplianceUnitsFromExports sums the export rows; values are stored
// already negated.
func ComplianceUnitsFromExports(rows []*models.FuelExport) int64 {
	var units int64
	for _, row := range rows {
		units += row.ComplianceUnits
	}
	return units
}
