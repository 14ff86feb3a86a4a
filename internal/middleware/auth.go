// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"bookswap/internal/auth"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// ClaimsKey is the context key for the verified token claims.
	ClaimsKey contextKey = "claims"

	// TokenKey is the context key for the raw bearer token.
	TokenKey contextKey = "token"

	// RequestIDKey is the context key for the request id.
	RequestIDKey contextKey = "request_id"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate requires a valid, unrevoked bearer token and stores its
// claims in the request context. Downstream handlers can access them via
// ClaimsFromCtx().
//
// A failed revocation lookup rejects the request, since the token may have
// been logged out.
func Authenticate(verifier TokenVerifier, revoker auth.Revoker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Access denied, no token provided")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "Token has expired"
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", msg)
				return
			}

			revoked, err := revoker.IsRevoked(r.Context(), token)
			if err != nil {
				slog.Error("token revocation lookup failed",
					"error", err,
					"request_id", RequestIDFromCtx(r.Context()),
				)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Unable to verify token")
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Token has been invalidated")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			ctx = context.WithValue(ctx, TokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns 403 unless the authenticated caller has one of the
// given roles. Must be applied after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromCtx(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden", "Access denied. Insufficient permissions")
		})
	}
}

// ClaimsFromCtx extracts the verified claims from the request context.
// Returns nil if the request was not authenticated.
func ClaimsFromCtx(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims
}

// TokenFromCtx returns the raw bearer token of an authenticated request.
func TokenFromCtx(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}
