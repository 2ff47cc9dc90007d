package auth

import (
	"context"

	"connectrpc.com/connect"
)

// LocalDevInterceptor provides a fixed user for local development. Claims set
// by DebugAuthInterceptor take precedence.
func LocalDevInterceptor(userID string) connect.UnaryInterceptorFunc {
	if userID == "" {
		userID = "local-dev-user"
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if _, ok := GetUserClaims(ctx); ok {
				return next(ctx, req)
			}

			ctx = withUserClaims(ctx, &UserClaims{
				UID:         userID,
				Email:       "dev@localhost",
				DisplayName: "Local Dev User",
				Verified:    true,
			})
			return next(ctx, req)
		}
	}
}
