package middleware

import "context"

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxShopID
)

func stringFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

// UserIDFromContext returns the authenticated user, or "" before Auth ran.
func UserIDFromContext(ctx context.Context) string { return stringFrom(ctx, ctxUserID) }

// ShopIDFromContext returns the shop the caller is acting for.
func ShopIDFromContext(ctx context.Context) string { return stringFrom(ctx, ctxShopID) }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withString(ctx, ctxUserID, userID)
}

func WithShopID(ctx context.Context, shopID string) context.Context {
	return withString(ctx, ctxShopID, shopID)
}
