package models

import (
	"context"
	"time"

	"github.com/bcgov/lcfs/utils"
)

// AuditFields is embedded by every row a user can touch. CreateUser/UpdateUser
// are filled from the request context, never trusted from payloads.
type AuditFields struct {
	CreateUser string    `gorm:"size:255" json:"create_user"`
	UpdateUser string    `gorm:"size:255" json:"update_user"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *AuditFields) StampCreate(ctx context.Context) {
	username := auditUsername(ctx)
	a.CreateUser = username
	a.UpdateUser = username
}

func (a *AuditFields) StampUpdate(ctx context.Context) {
	a.UpdateUser = auditUsername(ctx)
}

func auditUsername(ctx context.Context) string {
	if username := utils.GetUsernameFromContext(ctx); username != "" {
		return username
	}
	// scheduled jobs and ops tooling run without a session
	return "system"
}
