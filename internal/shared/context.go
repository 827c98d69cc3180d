package shared

import "context"

type principalContextKey struct{}

// ContextWithPrincipal stores the authenticated principal id in context.
func ContextWithPrincipal(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principalID)
}

// PrincipalFromContext extracts the authenticated principal id, if any.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(principalContextKey{}).(string)
	return id, id != ""
}
