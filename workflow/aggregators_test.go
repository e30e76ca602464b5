package workflow

import (
	"testing"

	"github.com/bcgov/lcfs/models"
	"github.com/shopspring/decimal"
)

func testRefData() RefData {
	return RefData{
		FuelTypes: map[int]*models.FuelType{
			1: {ID: 1, Name: "Gasoline", FossilDerived: true},
			2: {ID: 2, Name: "Ethanol", Renewable: true},
			3: {ID: 3, Name: "Biodiesel", Renewable: true},
		},
		Categories: map[int]models.FuelCategoryName{
			10: models.FuelCategoryGasoline,
			11: models.FuelCategoryDiesel,
		},
	}
}

func supplyRow(fuelTypeId, categoryId int, quantity int64) *models.FuelSupply {
	return &models.FuelSupply{
		FuelTypeId:     fuelTypeId,
		FuelCategoryId: categoryId,
		Quantity:       decimal.NewFromInt(quantity),
	}
}

func TestAggregateVolumes_SplitsFossilFromRenewable(t *testing.T) {
	ref := testRefData()
	rows := []*models.FuelSupply{
		supplyRow(1, 10, 900_000),
		supplyRow(2, 10, 60_000),
		supplyRow(3, 11, 40_000),
	}

	fossil := AggregateFossilVolumes(rows, ref)
	if fossil[models.FuelCategoryGasoline] != 900_000 {
		t.Errorf("fossil gasoline = %d, want 900000", fossil[models.FuelCategoryGasoline])
	}
	if fossil[models.FuelCategoryDiesel] != 0 {
		t.Errorf("fossil diesel = %d, want 0", fossil[models.FuelCategoryDiesel])
	}

	renewable := AggregateRenewableVolumes(rows, ref)
	if renewable[models.FuelCategoryGasoline] != 60_000 {
		t.Errorf("renewable gasoline = %d, want 60000", renewable[models.FuelCategoryGasoline])
	}
	if renewable[models.FuelCategoryDiesel] != 40_000 {
		t.Errorf("renewable diesel = %d, want 40000", renewable[models.FuelCategoryDiesel])
	}
}

func TestAggregateVolumes_QuarterlyRowsFold(t *testing.T) {
	ref := testRefData()
	q := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	row := &models.FuelSupply{
		FuelTypeId:     2,
		FuelCategoryId: 10,
		Quantity:       decimal.NewFromInt(999), // ignored when quarters exist
		Q1Quantity:     q(100),
		Q2Quantity:     q(200),
		Q3Quantity:     q(300),
		Q4Quantity:     q(400),
	}

	renewable := AggregateRenewableVolumes([]*models.FuelSupply{row}, ref)
	if renewable[models.FuelCategoryGasoline] != 1_000 {
		t.Errorf("quarterly fold = %d, want 1000", renewable[models.FuelCategoryGasoline])
	}
}

func TestAggregateVolumes_UnknownCategorySkipped(t *testing.T) {
	ref := testRefData()
	rows := []*models.FuelSupply{supplyRow(2, 99, 5_000)}
	renewable := AggregateRenewableVolumes(rows, ref)
	for _, c := range models.AllFuelCategories() {
		if renewable[c] != 0 {
			t.Errorf("category %s = %d, want 0 for an unknown category id", c, renewable[c])
		}
	}
}

func TestAggregateNotionalVolumes_NetsDirections(t *testing.T) {
	ref := testRefData()
	rows := []*models.NotionalTransfer{
		{FuelCategoryId: 10, Direction: models.NotionalReceived, Quantity: decimal.NewFromInt(30_000)},
		{FuelCategoryId: 10, Direction: models.NotionalTransferred, Quantity: decimal.NewFromInt(12_000)},
		{FuelCategoryId: 11, Direction: models.NotionalTransferred, Quantity: decimal.NewFromInt(7_000)},
	}

	net := AggregateNotionalVolumes(rows, ref)
	if net[models.FuelCategoryGasoline] != 18_000 {
		t.Errorf("net gasoline = %d, want 18000", net[models.FuelCategoryGasoline])
	}
	if net[models.FuelCategoryDiesel] != -7_000 {
		t.Errorf("net diesel = %d, want -7000", net[models.FuelCategoryDiesel])
	}
}

func TestComplianceUnitSums(t *testing.T) {
	supplies := []*models.FuelSupply{
		{ComplianceUnits: 120},
		{ComplianceUnits: -30},
	}
	if got := ComplianceUnitsFromSupply(supplies); got != 90 {
		t.Errorf("supply units = %d, want 90", got)
	}

	exports := []*models.FuelExport{
		{ComplianceUnits: -40},
		{ComplianceUnits: -10},
	}
	if got := ComplianceUnitsFromExports(exports); got != -50 {
		t.Errorf("export units = %d, want -50", got)
	}
}
