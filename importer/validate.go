package importer

import (
	"context"
	"strings"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/shopspring/decimal"
)

// whitelists are the dropdown values a workbook cell must match. They are
// loaded once per job so validation never hits the database per row.
type whitelists struct {
	FuelTypes  map[string]*models.FuelType
	Categories map[string]*models.FuelCategory
	Provisions map[string]*models.ProvisionOfTheAct
	EndUses    map[string]*models.EndUseType
}

func normalizeDropdown(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func loadWhitelists(ctx context.Context) (*whitelists, error) {
	wl := &whitelists{
		FuelTypes:  map[string]*models.FuelType{},
		Categories: map[string]*models.FuelCategory{},
		Provisions: map[string]*models.ProvisionOfTheAct{},
		EndUses:    map[string]*models.EndUseType{},
	}

	fuelTypes, err := models.ListFuelTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, ft := range fuelTypes {
		wl.FuelTypes[normalizeDropdown(ft.Name)] = ft
	}

	categories, err := models.ListFuelCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		wl.Categories[normalizeDropdown(string(c.Category))] = c
	}

	provisions, err := models.ListProvisionsOfTheAct(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range provisions {
		wl.Provisions[normalizeDropdown(p.Name)] = p
	}

	db := config.GetDB()
	var endUses []*models.EndUseType
	if err := db.WithContext(ctx).Find(&endUses).Error; err != nil {
		return nil, err
	}
	for _, e := range endUses {
		wl.EndUses[normalizeDropdown(e.Type)] = e
	}

	return wl, nil
}

func parseQuantity(raw string, fields map[string]string) decimal.Decimal {
	qty, err := utils.ParseDecimal(raw)
	if err != nil {
		fields["quantity"] = "not a number"
		return decimal.Zero
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		fields["quantity"] = "must be greater than zero"
	}
	return qty
}

// toFuelSupply validates one workbook row against the whitelists and, when
// clean, shapes it as a FuelSupply input. A non-empty field map means the
// row is rejected.
func (wl *whitelists) toFuelSupply(row fuelSupplyRow) (*models.FuelSupply, map[string]string) {
	fields := map[string]string{}

	ft, ok := wl.FuelTypes[normalizeDropdown(row.FuelType)]
	if !ok {
		fields["fuel_type"] = "not a recognized fuel type"
	}
	cat, ok := wl.Categories[normalizeDropdown(row.Category)]
	if !ok {
		fields["fuel_category"] = "not a recognized fuel category"
	}
	prov, ok := wl.Provisions[normalizeDropdown(row.Provision)]
	if !ok {
		fields["provision_of_the_act"] = "not a recognized provision"
	}
	var endUseId *int
	if row.EndUse != "" {
		endUse, ok := wl.EndUses[normalizeDropdown(row.EndUse)]
		if !ok {
			fields["end_use"] = "not a recognized end use"
		} else {
			id := endUse.ID
			endUseId = &id
		}
	}
	qty := parseQuantity(row.Quantity, fields)
	if len(fields) > 0 {
		return nil, fields
	}

	input := &models.FuelSupply{
		FuelTypeId:          ft.ID,
		FuelCategoryId:      cat.ID,
		EndUseTypeId:        endUseId,
		ProvisionOfTheActId: prov.ID,
		Quantity:            qty,
		Q1Quantity:          row.Quarters[0],
		Q2Quantity:          row.Quarters[1],
		Q3Quantity:          row.Quarters[2],
		Q4Quantity:          row.Quarters[3],
	}
	if row.Ci != nil {
		input.Ci = *row.Ci
	}
	if row.Units != "" {
		input.Units = row.Units
	}
	return input, nil
}

// toAllocationAgreement is the Allocation Agreements analogue; model-level
// validation (email shape and the rest) runs again at save time, but the
// whitelist and email checks here produce the per-field reject record.
func (wl *whitelists) toAllocationAgreement(row allocationRow) (*models.AllocationAgreement, map[string]string) {
	fields := map[string]string{}

	txType := models.AllocationTransactionType(row.TransactionType)
	if txType != models.AllocationAllocatedFrom && txType != models.AllocationAllocatedTo {
		fields["transaction_type"] = "must be 'Allocated from' or 'Allocated to'"
	}
	if row.Partner == "" {
		fields["transaction_partner"] = "required"
	}
	if row.Email != "" && !utils.IsValidEmail(row.Email) {
		fields["transaction_partner_email"] = "invalid email address"
	}
	ft, ok := wl.FuelTypes[normalizeDropdown(row.FuelType)]
	if !ok {
		fields["fuel_type"] = "not a recognized fuel type"
	}
	cat, ok := wl.Categories[normalizeDropdown(row.Category)]
	if !ok {
		fields["fuel_category"] = "not a recognized fuel category"
	}
	prov, ok := wl.Provisions[normalizeDropdown(row.Provision)]
	if !ok {
		fields["provision_of_the_act"] = "not a recognized provision"
	}
	qty := parseQuantity(row.Quantity, fields)
	if len(fields) > 0 {
		return nil, fields
	}

	input := &models.AllocationAgreement{
		TransactionType:         txType,
		TransactionPartner:      row.Partner,
		PostalAddress:           row.Address,
		TransactionPartnerEmail: row.Email,
		TransactionPartnerPhone: row.Phone,
		FuelTypeId:              ft.ID,
		FuelCategoryId:          cat.ID,
		ProvisionOfTheActId:     prov.ID,
		Quantity:                qty,
	}
	if row.Units != "" {
		input.Units = row.Units
	}
	return input, nil
}
