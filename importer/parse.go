package importer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Workbook layout. Sheets are read by column index; the first row is the
// header and is skipped.
const (
	SheetFuelSupply           = "Fuel Supply"
	SheetAllocationAgreements = "Allocation Agreements"
)

// Fuel Supply columns:
// A fuel type, B fuel category, C end use, D determining carbon intensity
// (provision), E carbon intensity (blank = fuel-type default), F quantity,
// G units, H-K quarterly quantities (optional).
const (
	colSupplyFuelType = iota
	colSupplyCategory
	colSupplyEndUse
	colSupplyProvision
	colSupplyCi
	colSupplyQuantity
	colSupplyUnits
	colSupplyQ1
	colSupplyQ2
	colSupplyQ3
	colSupplyQ4
)

// Allocation Agreements columns:
// A responsibility (Allocated from/to), B transaction partner, C address
// for service, D email, E phone, F fuel type, G fuel category,
// H determining carbon intensity (provision), I quantity, J units.
const (
	colAllocType = iota
	colAllocPartner
	colAllocAddress
	colAllocEmail
	colAllocPhone
	colAllocFuelType
	colAllocCategory
	colAllocProvision
	colAllocQuantity
	colAllocUnits
)

type fuelSupplyRow struct {
	RowNum    int
	FuelType  string
	Category  string
	EndUse    string
	Provision string
	Ci        *decimal.Decimal
	Quantity  string
	Units     string
	Quarters  [4]*decimal.Decimal
}

type allocationRow struct {
	RowNum          int
	TransactionType string
	Partner         string
	Address         string
	Email           string
	Phone           string
	FuelType        string
	Category        string
	Provision       string
	Quantity        string
	Units           string
}

type parsedWorkbook struct {
	FuelSupplies []fuelSupplyRow
	Allocations  []allocationRow
	TotalRows    int
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func optionalDecimal(row []string, idx int) *decimal.Decimal {
	v := cell(row, idx)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil
	}
	return &d
}

func rowIsEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseWorkbook reads the known sheets of an uploaded workbook. A missing
// sheet is not an error; a workbook with neither sheet is.
func parseWorkbook(data []byte) (*parsedWorkbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %v", err)
	}
	defer f.Close()

	parsed := &parsedWorkbook{}
	sheetsFound := 0

	if rows, err := f.GetRows(SheetFuelSupply); err == nil {
		sheetsFound++
		for idx, row := range rows {
			if idx == 0 || rowIsEmpty(row) {
				continue
			}
			parsed.FuelSupplies = append(parsed.FuelSupplies, fuelSupplyRow{
				RowNum:    idx + 1,
				FuelType:  cell(row, colSupplyFuelType),
				Category:  cell(row, colSupplyCategory),
				EndUse:    cell(row, colSupplyEndUse),
				Provision: cell(row, colSupplyProvision),
				Ci:        optionalDecimal(row, colSupplyCi),
				Quantity:  cell(row, colSupplyQuantity),
				Units:     cell(row, colSupplyUnits),
				Quarters: [4]*decimal.Decimal{
					optionalDecimal(row, colSupplyQ1),
					optionalDecimal(row, colSupplyQ2),
					optionalDecimal(row, colSupplyQ3),
					optionalDecimal(row, colSupplyQ4),
				},
			})
		}
	}

	if rows, err := f.GetRows(SheetAllocationAgreements); err == nil {
		sheetsFound++
		for idx, row := range rows {
			if idx == 0 || rowIsEmpty(row) {
				continue
			}
			parsed.Allocations = append(parsed.Allocations, allocationRow{
				RowNum:          idx + 1,
				TransactionType: cell(row, colAllocType),
				Partner:         cell(row, colAllocPartner),
				Address:         cell(row, colAllocAddress),
				Email:           cell(row, colAllocEmail),
				Phone:           cell(row, colAllocPhone),
				FuelType:        cell(row, colAllocFuelType),
				Category:        cell(row, colAllocCategory),
				Provision:       cell(row, colAllocProvision),
				Quantity:        cell(row, colAllocQuantity),
				Units:           cell(row, colAllocUnits),
			})
		}
	}

	if sheetsFound == 0 {
		return nil, fmt.Errorf("workbook has neither a %q nor an %q sheet", SheetFuelSupply, SheetAllocationAgreements)
	}
	parsed.TotalRows = len(parsed.FuelSupplies) + len(parsed.Allocations)
	return parsed, nil
}
