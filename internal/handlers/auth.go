// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"bookswap/internal/auth"
	"bookswap/internal/middleware"
)

// defaultRevokeTTL applies to tokens that carry no expiry claim.
const defaultRevokeTTL = 24 * time.Hour

// Auth groups the authentication HTTP handlers. Tokens are issued by the
// user service; this API only revokes them.
type Auth struct {
	revoker auth.Revoker
}

// NewAuth creates the auth handlers.
func NewAuth(revoker auth.Revoker) *Auth {
	return &Auth{revoker: revoker}
}

// Logout handles POST /api/auth/logout by revoking the presented token
// until it expires. Must be routed behind middleware.Authenticate.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromCtx(r.Context())
	claims := middleware.ClaimsFromCtx(r.Context())
	if token == "" || claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	expiresAt := time.Now().Add(defaultRevokeTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := a.revoker.Revoke(r.Context(), token, expiresAt); err != nil {
		slog.Error("token revocation failed",
			"user_id", claims.UserID,
			"request_id", middleware.RequestIDFromCtx(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "Failed to log out", nil)
		return
	}

	slog.Info("user logged out", "user_id", claims.UserID)
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}
