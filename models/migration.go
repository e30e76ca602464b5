package models

import (
	"log"

	"github.com/bcgov/lcfs/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Organization{}, &User{},
		&CompliancePeriod{},
		&FuelCategory{}, &FuelType{}, &EndUseType{}, &ProvisionOfTheAct{},
		&TargetCarbonIntensity{}, &EnergyEffectivenessRatio{}, &AdditionalCarbonIntensity{},
		&ComplianceReport{}, &ComplianceReportHistory{}, &ComplianceReportSummary{},
		&FuelSupply{}, &FuelExport{}, &NotionalTransfer{}, &OtherUses{}, &AllocationAgreement{},
		&Transaction{},
		&Transfer{}, &InitiativeAgreement{}, &AdminAdjustment{},
		&InternalComment{},
		&NotificationRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
