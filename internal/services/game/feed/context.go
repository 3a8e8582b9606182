package feed

import "context"

type contextKey struct{}

func withFeedUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

func feedUser(ctx context.Context) string {
	userID, _ := ctx.Value(contextKey{}).(string)
	return userID
}
