package auth

import (
	"context"
	"strings"
)

type userContextKey struct{}
type rolesContextKey struct{}

// ContextWithUser attaches the authenticated user id and roles to the context.
func ContextWithUser(ctx context.Context, userID string, roles []string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, userContextKey{}, userID)
	return context.WithValue(ctx, rolesContextKey{}, dedupeRoles(roles))
}

// UserIDFromContext extracts the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// RolesFromContext returns the deduplicated roles attached to the context.
func RolesFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	v, ok := ctx.Value(rolesContextKey{}).([]string)
	if !ok {
		return nil
	}
	return v
}

// HasRole reports whether the context carries the given role.
func HasRole(ctx context.Context, role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}
