package auth

import (
	"context"

	"connectrpc.com/connect"
)

// TokenVerifier turns a bearer token into user claims. *FirebaseAuth is the
// production implementation.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (*UserClaims, error)
}

// AuthInterceptor creates a Connect interceptor that requires a verified
// bearer token on every procedure. Health and metrics are served outside the
// RPC handler.
func AuthInterceptor(verifier TokenVerifier) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			// The debug interceptor may already have set claims
			if _, ok := GetUserClaims(ctx); ok {
				return next(ctx, req)
			}

			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}

			token, err := ExtractTokenFromHeader(authHeader)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			claims, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(withUserClaims(ctx, claims), req)
		}
	}
}

// DebugAuthInterceptor allows impersonation via the X-Debug-Impersonate-User
// header. It does nothing unless skipAuth is set.
func DebugAuthInterceptor(skipAuth bool) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if skipAuth {
				if impersonateUser := req.Header().Get("X-Debug-Impersonate-User"); impersonateUser != "" {
					ctx = withUserClaims(ctx, &UserClaims{
						UID:   impersonateUser,
						Email: impersonateUser + "@debug.local",
					})
				}
			}
			return next(ctx, req)
		}
	}
}

type contextKey string

const userClaimsKey contextKey = "user_claims"

func withUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

// WithUserClaims is the exported version for testing purposes
func WithUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return withUserClaims(ctx, claims)
}

// GetUserClaims extracts user claims from context
func GetUserClaims(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*UserClaims)
	return claims, ok && claims != nil
}
