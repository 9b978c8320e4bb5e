// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielhkuo/panelsurvey/auth"
)

type adminClaimsKey struct{}

// AdminToken returns the admin session token from the admin_session cookie
// or an Authorization: Bearer header.
func AdminToken(r *http.Request) string {
	if c, err := r.Cookie(auth.AdminCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RequireAdmin rejects requests without a valid admin session
func RequireAdmin(secret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := AdminToken(r)
			if token == "" {
				ErrorResponse(w, http.StatusUnauthorized, "Admin login required")
				return
			}

			claims, err := auth.ParseAdminToken(secret, token)
			if errors.Is(err, auth.ErrExpiredToken) {
				ErrorResponse(w, http.StatusUnauthorized, "Admin session expired, please log in again")
				return
			}
			if err != nil {
				ErrorResponse(w, http.StatusUnauthorized, "Invalid admin session")
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsKey{}, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// AdminClaims returns the claims RequireAdmin attached to the request
func AdminClaims(ctx context.Context) (*auth.AdminClaims, bool) {
	c, ok := ctx.Value(adminClaimsKey{}).(*auth.AdminClaims)
	return c, ok
}
