// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminSessionTTL is how long an admin session stays valid
const AdminSessionTTL = 8 * time.Hour

// AdminCookieName carries the admin session token
const AdminCookieName = "admin_session"

const adminSubject = "admin"

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrNoPassword      = errors.New("admin password is not configured")
	ErrInvalidToken    = errors.New("invalid admin session")
	ErrExpiredToken    = errors.New("admin session expired")
)

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a candidate password against the configured hash
func CheckPassword(hash, password string) error {
	if strings.TrimSpace(hash) == "" {
		return ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// AdminClaims are the claims of an admin session token
type AdminClaims struct {
	jwt.RegisteredClaims
}

// IssueAdminToken signs a session token valid for AdminSessionTTL from now
func IssueAdminToken(secret string, now time.Time) (string, time.Time, error) {
	expires := now.Add(AdminSessionTTL)
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   adminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, expires, nil
}

// ParseAdminToken verifies signature, algorithm, subject and expiry
func ParseAdminToken(secret, token string) (*AdminClaims, error) {
	return ParseAdminTokenAt(secret, token, time.Now())
}

// ParseAdminTokenAt is ParseAdminToken with expiry checked against now
func ParseAdminTokenAt(secret, token string, now time.Time) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(adminSubject),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}

// ConfirmPhrase reports whether typed matches the configured confirmation
// phrase, ignoring case and surrounding whitespace.
func ConfirmPhrase(expected, typed string) bool {
	a := strings.ToLower(strings.TrimSpace(expected))
	b := strings.ToLower(strings.TrimSpace(typed))
	return a != "" && hmac.Equal([]byte(a), []byte(b))
}
