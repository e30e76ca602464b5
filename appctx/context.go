package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> utils).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeyToken          = ContextKey("Token")
	ContextKeyUsername       = ContextKey("Username")
	ContextKeyUserId         = ContextKey("UserId")
	ContextKeyUserName       = ContextKey("UserName")
	ContextKeyOrganizationId = ContextKey("OrganizationId")
	ContextKeyCorrelationId  = ContextKey("CorrelationId")

	// ContextKeyIsGovernment is true for program-administrator users.
	// Government users are not scoped to a single organization.
	ContextKeyIsGovernment = ContextKey("IsGovernment")

	// ContextKeyRoles carries the resolved role names for the session user.
	ContextKeyRoles = ContextKey("Roles")

	// ContextKeySkipOrgScope forces organization scoping to be disabled for the request.
	// Use sparingly (internal ops and scheduled jobs only).
	ContextKeySkipOrgScope = ContextKey("SkipOrgScope")
)

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func GetBool(ctx context.Context, key ContextKey) (bool, bool) {
	v, ok := ctx.Value(key).(bool)
	return v, ok
}

func GetInt(ctx context.Context, key ContextKey) (int, bool) {
	v, ok := ctx.Value(key).(int)
	return v, ok
}

func GetStrings(ctx context.Context, key ContextKey) ([]string, bool) {
	v, ok := ctx.Value(key).([]string)
	return v, ok
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
