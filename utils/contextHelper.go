package utils

import (
	"context"

	"github.com/bcgov/lcfs/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken          = appctx.ContextKeyToken
	ContextKeyUsername       = appctx.ContextKeyUsername
	ContextKeyUserId         = appctx.ContextKeyUserId
	ContextKeyUserName       = appctx.ContextKeyUserName
	ContextKeyOrganizationId = appctx.ContextKeyOrganizationId
	ContextKeyCorrelationId  = appctx.ContextKeyCorrelationId

	ContextKeyIsGovernment = appctx.ContextKeyIsGovernment
	ContextKeyRoles        = appctx.ContextKeyRoles
	ContextKeySkipOrgScope = appctx.ContextKeySkipOrgScope
)

func GetTokenFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, ContextKeyToken)
	return v
}

func GetUsernameFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, ContextKeyUsername)
	return v
}

func GetUserIdFromContext(ctx context.Context) int {
	v, _ := appctx.GetInt(ctx, ContextKeyUserId)
	return v
}

func GetUserNameFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, ContextKeyUserName)
	return v
}

func GetOrganizationIdFromContext(ctx context.Context) int {
	v, _ := appctx.GetInt(ctx, ContextKeyOrganizationId)
	return v
}

func GetCorrelationIdFromContext(ctx context.Context) string {
	v, _ := appctx.GetString(ctx, ContextKeyCorrelationId)
	return v
}

func GetIsGovernmentFromContext(ctx context.Context) bool {
	v, _ := appctx.GetBool(ctx, ContextKeyIsGovernment)
	return v
}

func GetRolesFromContext(ctx context.Context) []string {
	v, _ := appctx.GetStrings(ctx, ContextKeyRoles)
	return v
}

func GetSkipOrgScopeFromContext(ctx context.Context) bool {
	v, _ := appctx.GetBool(ctx, ContextKeySkipOrgScope)
	return v
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, ContextKeyUserName, userName)
}

func SetOrganizationIdInContext(ctx context.Context, organizationId int) context.Context {
	return appctx.Set(ctx, ContextKeyOrganizationId, organizationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetIsGovernmentInContext(ctx context.Context, isGovernment bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsGovernment, isGovernment)
}

func SetRolesInContext(ctx context.Context, roles []string) context.Context {
	return appctx.Set(ctx, ContextKeyRoles, roles)
}

func SetSkipOrgScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipOrgScope, skip)
}

// HasRoleInContext reports whether the session user carries the given role.
func HasRoleInContext(ctx context.Context, role string) bool {
	roles := GetRolesFromContext(ctx)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
