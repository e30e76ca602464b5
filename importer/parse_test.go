package importer

import (
	"bytes"
	"testing"

	"github.com/bcgov/lcfs/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("new sheet: %v", err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

var supplyHeader = []interface{}{
	"Fuel type", "Fuel category", "End use", "Determining carbon intensity",
	"Carbon intensity", "Quantity", "Units", "Q1", "Q2", "Q3", "Q4",
}

var allocHeader = []interface{}{
	"Responsibility", "Transaction partner", "Address for service", "Email",
	"Phone", "Fuel type", "Fuel category", "Determining carbon intensity",
	"Quantity", "Units",
}

func TestParseWorkbook_ReadsBothSheets(t *testing.T) {
	data := buildWorkbook(t, map[string][][]interface{}{
		SheetFuelSupply: {
			supplyHeader,
			{"Ethanol", "Gasoline", "", "Default carbon intensity", "", "250000", "L"},
			{}, // empty rows are skipped
			{"Biodiesel", "Diesel", "", "Default carbon intensity", "45.2", "100000", "L", "25000", "25000", "25000", "25000"},
		},
		SheetAllocationAgreements: {
			allocHeader,
			{"Allocated from", "Acme Fuels", "123 Main St", "ops@acme.example", "604-555-0100", "Ethanol", "Gasoline", "Default carbon intensity", "50000", "L"},
		},
	})

	parsed, err := parseWorkbook(data)
	if err != nil {
		t.Fatalf("parseWorkbook: %v", err)
	}
	if len(parsed.FuelSupplies) != 2 {
		t.Fatalf("fuel supply rows = %d, want 2", len(parsed.FuelSupplies))
	}
	if len(parsed.Allocations) != 1 {
		t.Fatalf("allocation rows = %d, want 1", len(parsed.Allocations))
	}
	if parsed.TotalRows != 3 {
		t.Errorf("total rows = %d, want 3", parsed.TotalRows)
	}

	first := parsed.FuelSupplies[0]
	if first.RowNum != 2 || first.FuelType != "Ethanol" || first.Quantity != "250000" {
		t.Errorf("unexpected first supply row: %+v", first)
	}
	if first.Ci != nil {
		t.Error("blank carbon intensity should parse as nil")
	}

	second := parsed.FuelSupplies[1]
	if second.Ci == nil || !second.Ci.Equal(decimal.NewFromFloat(45.2)) {
		t.Errorf("carbon intensity = %v, want 45.2", second.Ci)
	}
	for i, q := range second.Quarters {
		if q == nil || !q.Equal(decimal.NewFromInt(25000)) {
			t.Errorf("quarter %d = %v, want 25000", i+1, q)
		}
	}

	alloc := parsed.Allocations[0]
	if alloc.TransactionType != "Allocated from" || alloc.Partner != "Acme Fuels" {
		t.Errorf("unexpected allocation row: %+v", alloc)
	}
}

func TestParseWorkbook_RequiresAKnownSheet(t *testing.T) {
	data := buildWorkbook(t, map[string][][]interface{}{
		"Totally Unrelated": {{"a", "b"}},
	})
	if _, err := parseWorkbook(data); err == nil {
		t.Fatal("expected an error for a workbook with no known sheets")
	}
}

func TestParseWorkbook_GarbageBytes(t *testing.T) {
	if _, err := parseWorkbook([]byte("not a zip archive")); err == nil {
		t.Fatal("expected an error for non-xlsx bytes")
	}
}

func testWhitelists() *whitelists {
	return &whitelists{
		FuelTypes: map[string]*models.FuelType{
			"ethanol": {ID: 2, Name: "Ethanol", Renewable: true},
		},
		Categories: map[string]*models.FuelCategory{
			"gasoline": {ID: 10, Category: models.FuelCategoryGasoline},
		},
		Provisions: map[string]*models.ProvisionOfTheAct{
			"default carbon intensity": {ID: 1, Name: "Default carbon intensity"},
		},
		EndUses: map[string]*models.EndUseType{
			"any": {ID: 5, Type: "Any"},
		},
	}
}

func TestToFuelSupply_ValidRow(t *testing.T) {
	wl := testWhitelists()
	input, fields := wl.toFuelSupply(fuelSupplyRow{
		RowNum:    2,
		FuelType:  "Ethanol",
		Category:  "GASOLINE", // dropdown matching is case-insensitive
		EndUse:    "Any",
		Provision: "Default carbon intensity",
		Quantity:  "250000",
	})
	if len(fields) != 0 {
		t.Fatalf("unexpected reject fields: %v", fields)
	}
	if input.FuelTypeId != 2 || input.FuelCategoryId != 10 || input.ProvisionOfTheActId != 1 {
		t.Errorf("unexpected ids: %+v", input)
	}
	if input.EndUseTypeId == nil || *input.EndUseTypeId != 5 {
		t.Errorf("end use id = %v, want 5", input.EndUseTypeId)
	}
	if !input.Quantity.Equal(decimal.NewFromInt(250000)) {
		t.Errorf("quantity = %s, want 250000", input.Quantity)
	}
}

func TestToFuelSupply_RejectsPerField(t *testing.T) {
	wl := testWhitelists()

	_, fields := wl.toFuelSupply(fuelSupplyRow{
		FuelType:  "Unobtainium",
		Category:  "Gasoline",
		Provision: "Default carbon intensity",
		Quantity:  "100",
	})
	if fields["fuel_type"] == "" {
		t.Errorf("want a fuel_type reject, got %v", fields)
	}

	_, fields = wl.toFuelSupply(fuelSupplyRow{
		FuelType:  "Ethanol",
		Category:  "Gasoline",
		Provision: "Default carbon intensity",
		Quantity:  "-5",
	})
	if fields["quantity"] == "" {
		t.Errorf("want a quantity reject, got %v", fields)
	}
}

func TestToAllocationAgreement_RejectsBadEnumAndEmail(t *testing.T) {
	wl := testWhitelists()

	valid := allocationRow{
		TransactionType: "Allocated to",
		Partner:         "Acme Fuels",
		Email:           "ops@acme.example",
		FuelType:        "Ethanol",
		Category:        "Gasoline",
		Provision:       "Default carbon intensity",
		Quantity:        "50000",
	}
	input, fields := wl.toAllocationAgreement(valid)
	if len(fields) != 0 {
		t.Fatalf("unexpected reject fields: %v", fields)
	}
	if input.TransactionType != models.AllocationAllocatedTo {
		t.Errorf("transaction type = %q", input.TransactionType)
	}

	badEnum := valid
	badEnum.TransactionType = "Allocated sideways"
	if _, fields = wl.toAllocationAgreement(badEnum); fields["transaction_type"] == "" {
		t.Errorf("want a transaction_type reject, got %v", fields)
	}

	badEmail := valid
	badEmail.Email = "not-an-email"
	if _, fields = wl.toAllocationAgreement(badEmail); fields["transaction_partner_email"] == "" {
		t.Errorf("want an email reject, got %v", fields)
	}
}

// Mirrors the partial-success contract of an import batch: one bad row
// never aborts the rest.
func TestRowValidation_PartialBatch(t *testing.T) {
	wl := testWhitelists()
	rows := []allocationRow{
		{TransactionType: "Allocated from", Partner: "A", FuelType: "Ethanol", Category: "Gasoline", Provision: "Default carbon intensity", Quantity: "10"},
		{TransactionType: "Bogus", Partner: "B", FuelType: "Ethanol", Category: "Gasoline", Provision: "Default carbon intensity", Quantity: "10"},
		{TransactionType: "Allocated to", Partner: "C", FuelType: "Ethanol", Category: "Gasoline", Provision: "Default carbon intensity", Quantity: "10"},
		{TransactionType: "Allocated to", Partner: "D", Email: "broken@", FuelType: "Ethanol", Category: "Gasoline", Provision: "Default carbon intensity", Quantity: "10"},
	}

	created, rejected := 0, 0
	for _, row := range rows {
		if _, fields := wl.toAllocationAgreement(row); len(fields) > 0 {
			rejected++
		} else {
			created++
		}
	}
	if created != 2 || rejected != 2 {
		t.Errorf("created/rejected = %d/%d, want 2/2", created, rejected)
	}
}
