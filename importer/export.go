package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// refNames maps reference-data ids back to the dropdown labels used in the
// workbook, so an exported file round-trips through the importer.
type refNames struct {
	FuelTypes  map[int]string
	Categories map[int]string
	Provisions map[int]string
	EndUses    map[int]string
}

func loadRefNames(ctx context.Context) (*refNames, error) {
	names := &refNames{
		FuelTypes:  map[int]string{},
		Categories: map[int]string{},
		Provisions: map[int]string{},
		EndUses:    map[int]string{},
	}
	fuelTypes, err := models.ListFuelTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, ft := range fuelTypes {
		names.FuelTypes[ft.ID] = ft.Name
	}
	categories, err := models.ListFuelCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		names.Categories[c.ID] = string(c.Category)
	}
	provisions, err := models.ListProvisionsOfTheAct(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range provisions {
		names.Provisions[p.ID] = p.Name
	}
	db := config.GetDB()
	var endUses []*models.EndUseType
	if err := db.WithContext(ctx).Find(&endUses).Error; err != nil {
		return nil, err
	}
	for _, e := range endUses {
		names.EndUses[e.ID] = e.Type
	}
	return names, nil
}

func writeHeader(f *excelize.File, sheet string, headings []string) {
	for i, h := range headings {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, col+"1", h)
	}
}

func writeRow(f *excelize.File, sheet string, rowNo int, values []interface{}) {
	for i, v := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, col+fmt.Sprint(rowNo), v)
	}
}

func optDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.String()
}

// ExportFileName is <type>_<org>_<period>_<status>.xlsx, lowercased with
// spaces collapsed to underscores.
func ExportFileName(report *models.ComplianceReport) string {
	slug := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.ReplaceAll(s, " ", "_")
		return strings.ReplaceAll(s, "-", "_")
	}
	org := fmt.Sprint(report.OrganizationId)
	if report.Organization != nil {
		org = slug(report.Organization.OrganizationCode)
	}
	period := fmt.Sprint(report.CompliancePeriodId)
	if report.CompliancePeriod != nil {
		period = slug(report.CompliancePeriod.Description)
	}
	return fmt.Sprintf("compliance_report_%s_%s_%s.xlsx", org, period, slug(string(report.Status)))
}

// ExportReportWorkbook renders the effective line items of a report
// version as a workbook, one sheet per line-item family.
func ExportReportWorkbook(ctx context.Context, reportId int) (*excelize.File, string, error) {
	report, err := models.GetComplianceReport(ctx, reportId)
	if err != nil {
		return nil, "", err
	}
	names, err := loadRefNames(ctx)
	if err != nil {
		return nil, "", err
	}
	db := config.GetDB()

	f := excelize.NewFile()

	supplies, err := models.EffectiveFuelSupplies(ctx, db, report)
	if err != nil {
		return nil, "", err
	}
	if _, err := f.NewSheet(SheetFuelSupply); err != nil {
		return nil, "", err
	}
	writeHeader(f, SheetFuelSupply, []string{
		"Fuel type", "Fuel category", "End use", "Determining carbon intensity",
		"Carbon intensity", "Quantity", "Units", "Q1", "Q2", "Q3", "Q4", "Compliance units",
	})
	for i, row := range supplies {
		endUse := ""
		if row.EndUseTypeId != nil {
			endUse = names.EndUses[*row.EndUseTypeId]
		}
		writeRow(f, SheetFuelSupply, i+2, []interface{}{
			names.FuelTypes[row.FuelTypeId],
			names.Categories[row.FuelCategoryId],
			endUse,
			names.Provisions[row.ProvisionOfTheActId],
			row.Ci.String(),
			row.Quantity.String(),
			row.Units,
			optDecimal(row.Q1Quantity),
			optDecimal(row.Q2Quantity),
			optDecimal(row.Q3Quantity),
			optDecimal(row.Q4Quantity),
			row.ComplianceUnits,
		})
	}

	exports, err := models.EffectiveFuelExports(ctx, db, report)
	if err != nil {
		return nil, "", err
	}
	const sheetFuelExports = "Fuel Exports"
	if _, err := f.NewSheet(sheetFuelExports); err != nil {
		return nil, "", err
	}
	writeHeader(f, sheetFuelExports, []string{
		"Fuel type", "Fuel category", "End use", "Determining carbon intensity",
		"Carbon intensity", "Quantity", "Units", "Compliance units",
	})
	for i, row := range exports {
		endUse := ""
		if row.EndUseTypeId != nil {
			endUse = names.EndUses[*row.EndUseTypeId]
		}
		writeRow(f, sheetFuelExports, i+2, []interface{}{
			names.FuelTypes[row.FuelTypeId],
			names.Categories[row.FuelCategoryId],
			endUse,
			names.Provisions[row.ProvisionOfTheActId],
			row.Ci.String(),
			row.Quantity.String(),
			row.Units,
			row.ComplianceUnits,
		})
	}

	notionals, err := models.EffectiveNotionalTransfers(ctx, db, report)
	if err != nil {
		return nil, "", err
	}
	const sheetNotionalTransfers = "Notional Transfers"
	if _, err := f.NewSheet(sheetNotionalTransfers); err != nil {
		return nil, "", err
	}
	writeHeader(f, sheetNotionalTransfers, []string{
		"Legal name", "Address for service", "Fuel category", "Received or transferred",
		"Quantity", "Q1", "Q2", "Q3", "Q4",
	})
	for i, row := range notionals {
		writeRow(f, sheetNotionalTransfers, i+2, []interface{}{
			row.LegalName,
			row.AddressForService,
			names.Categories[row.FuelCategoryId],
			string(row.Direction),
			row.Quantity.String(),
			optDecimal(row.Q1Quantity),
			optDecimal(row.Q2Quantity),
			optDecimal(row.Q3Quantity),
			optDecimal(row.Q4Quantity),
		})
	}

	otherUses, err := models.EffectiveOtherUses(ctx, db, report)
	if err != nil {
		return nil, "", err
	}
	const sheetOtherUses = "Fuels For Other Use"
	if _, err := f.NewSheet(sheetOtherUses); err != nil {
		return nil, "", err
	}
	writeHeader(f, sheetOtherUses, []string{
		"Fuel type", "Fuel category", "Determining carbon intensity", "Carbon intensity",
		"Quantity supplied", "Units", "Expected use", "Rationale",
	})
	for i, row := range otherUses {
		writeRow(f, sheetOtherUses, i+2, []interface{}{
			names.FuelTypes[row.FuelTypeId],
			names.Categories[row.FuelCategoryId],
			names.Provisions[row.ProvisionOfTheActId],
			row.Ci.String(),
			row.QuantitySupplied.String(),
			row.Units,
			row.ExpectedUse,
			row.Rationale,
		})
	}

	allocations, err := models.EffectiveAllocationAgreements(ctx, db, report)
	if err != nil {
		return nil, "", err
	}
	if _, err := f.NewSheet(SheetAllocationAgreements); err != nil {
		return nil, "", err
	}
	writeHeader(f, SheetAllocationAgreements, []string{
		"Responsibility", "Legal name of transaction partner", "Address for service",
		"Email", "Phone", "Fuel type", "Fuel category", "Determining carbon intensity",
		"Quantity", "Units",
	})
	for i, row := range allocations {
		writeRow(f, SheetAllocationAgreements, i+2, []interface{}{
			string(row.TransactionType),
			row.TransactionPartner,
			row.PostalAddress,
			row.TransactionPartnerEmail,
			row.TransactionPartnerPhone,
			names.FuelTypes[row.FuelTypeId],
			names.Categories[row.FuelCategoryId],
			names.Provisions[row.ProvisionOfTheActId],
			row.Quantity.String(),
			row.Units,
		})
	}

	// excelize seeds new files with "Sheet1"; drop it so the first real
	// sheet opens by default.
	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(SheetFuelSupply); err == nil {
		f.SetActiveSheet(idx)
	}

	return f, ExportFileName(report), nil
}
