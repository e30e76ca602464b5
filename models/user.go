package models

import (
	"context"
	"strings"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/utils"
)

// Role names the state machine checks. Suppliers carry no government role;
// government users carry one or more of these.
const (
	RoleAnalyst           = "Analyst"
	RoleComplianceManager = "Compliance Manager"
	RoleDirector          = "Director"
	RoleAdministrator     = "Administrator"
)

type User struct {
	ID             int    `gorm:"primary_key" json:"id"`
	Username       string `gorm:"size:150;uniqueIndex;not null" json:"username" binding:"required"`
	Email          string `gorm:"size:255" json:"email"`
	FirstName      string `gorm:"size:100" json:"first_name"`
	LastName       string `gorm:"size:100" json:"last_name"`
	OrganizationId int    `gorm:"index" json:"organization_id"`
	IsGovernment   bool   `gorm:"not null;default:false" json:"is_government"`
	Roles          string `gorm:"size:500" json:"roles"`
	Password       string `gorm:"size:255" json:"-"`
	IsActive       *bool  `gorm:"default:true" json:"is_active"`
	AuditFields
}

func (u *User) GetId() int {
	return u.ID
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// RoleNames splits the stored comma-separated role list.
func (u *User) RoleNames() []string {
	if strings.TrimSpace(u.Roles) == "" {
		return nil
	}
	parts := strings.Split(u.Roles, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if r := strings.TrimSpace(p); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.RoleNames() {
		if r == role {
			return true
		}
	}
	return false
}

// GetSessionUser resolves a username to its user row, redis-first.
func GetSessionUser(ctx context.Context, username string) (*User, error) {
	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err == nil && exists {
		return &user, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	// session reads tolerate a cold cache
	_ = config.SetRedisObject("User:"+username, &user, utils.GetCacheLifespan())
	return &user, nil
}

// AuthenticateUser checks credentials against the stored bcrypt hash. The
// same error covers a missing user, a disabled one, and a wrong password.
func AuthenticateUser(ctx context.Context, username, password string) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.NewForbiddenError("invalid credentials")
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, utils.NewForbiddenError("invalid credentials")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, utils.NewForbiddenError("invalid credentials")
	}
	return &user, nil
}
