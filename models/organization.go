package models

import (
	"context"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
)

type Organization struct {
	ID              int    `gorm:"primary_key" json:"id"`
	Name            string `gorm:"size:500;not null;index" json:"name" binding:"required"`
	OperatingName   string `gorm:"size:500" json:"operating_name"`
	OrganizationCode string `gorm:"size:10;uniqueIndex;not null" json:"organization_code" binding:"required"`
	EmailAddress    string `gorm:"size:255" json:"email_address"`
	PhoneNumber     string `gorm:"size:50" json:"phone_number"`
	EdrmsRecord     string `gorm:"size:100" json:"edrms_record"`
	IsActive        *bool  `gorm:"default:true" json:"is_active"`
	AuditFields
}

func (o *Organization) GetId() int {
	return o.ID
}

type NewOrganization struct {
	Name             string `json:"name" binding:"required"`
	OperatingName    string `json:"operating_name"`
	OrganizationCode string `json:"organization_code" binding:"required"`
	EmailAddress     string `json:"email_address"`
	PhoneNumber      string `json:"phone_number"`
	EdrmsRecord      string `json:"edrms_record"`
}

func CreateOrganization(ctx context.Context, input *NewOrganization) (*Organization, error) {
	if input.EmailAddress != "" && !utils.IsValidEmail(input.EmailAddress) {
		return nil, utils.NewValidationError("invalid organization payload", map[string]string{"email_address": "email"})
	}

	db := config.GetDB()

	if err := utils.ValidateUnique[Organization](ctx, 0, "organization_code", input.OrganizationCode, 0); err != nil {
		return nil, err
	}

	org := Organization{
		Name:             input.Name,
		OperatingName:    input.OperatingName,
		OrganizationCode: input.OrganizationCode,
		EmailAddress:     input.EmailAddress,
		PhoneNumber:      input.PhoneNumber,
		EdrmsRecord:      input.EdrmsRecord,
		IsActive:         utils.NewTrue(),
	}
	org.StampCreate(ctx)

	if err := db.WithContext(ctx).Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func GetOrganization(ctx context.Context, id int) (*Organization, error) {
	return utils.FetchSingleModel[Organization](ctx, id)
}
