// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth handles administrator credentials and sessions.

Respondents never use this package: their sessions are opaque tokens stored
with the response session. Administrators sign in with a single shared
password whose bcrypt hash is configured via ADMIN_PASSWORD_HASH:

	hash, err := auth.HashPassword("s3cret") // print once, put in .env
	err = auth.CheckPassword(cfg.AdminPasswordHash, typed)

# Admin Sessions

A successful login yields an HS256 JWT valid for eight hours, sent back in
the admin_session cookie:

	token, expires, err := auth.IssueAdminToken(cfg.AdminSessionSecret, time.Now())
	claims, err := auth.ParseAdminToken(cfg.AdminSessionSecret, token)

ParseAdminToken only accepts HS256 and the "admin" subject; expired
tokens return ErrExpiredToken.

# Privacy

HashIP keeps login audit events free of raw client addresses:

	auth.HashIP(ip, cfg.AdminSessionSecret)
*/
package auth
