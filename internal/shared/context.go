package shared

import "context"

type ownerContextKey struct{}

// ContextWithOwner stores the calling owner id in context.
func ContextWithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// OwnerFromContext extracts the owner id from context. Empty when the
// request carried no owner identity.
func OwnerFromContext(ctx context.Context) string {
	ownerID, _ := ctx.Value(ownerContextKey{}).(string)
	return ownerID
}
