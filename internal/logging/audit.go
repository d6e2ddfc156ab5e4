// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package logging

import (
	"context"
)

// Authentication audit events. Tokens are never logged in full.

// LogLoginSuccess records a successful basic-auth login.
func LogLoginSuccess(ctx context.Context, username, remoteAddr, token string) {
	Ctx(ctx).Info().
		Str("event", "login_success").
		Str("user", username).
		Str("remote_addr", remoteAddr).
		Str("token", SanitizeToken(token)).
		Msg("User authenticated")
}

// LogLoginFailure records a rejected login attempt.
func LogLoginFailure(ctx context.Context, username, remoteAddr, reason string) {
	Ctx(ctx).Warn().
		Str("event", "login_failure").
		Str("user", username).
		Str("remote_addr", remoteAddr).
		Str("reason", reason).
		Msg("Authentication failed")
}

// LogIdentityResolved records which path resolved a bearer token.
func LogIdentityResolved(ctx context.Context, username, source string) {
	Ctx(ctx).Debug().
		Str("event", "identity_resolved").
		Str("user", username).
		Str("source", source).
		Msg("Resolved client identity")
}

// LogIdentityRejected records a bearer token that could not be resolved.
func LogIdentityRejected(ctx context.Context, token, reason string) {
	Ctx(ctx).Info().
		Str("event", "identity_rejected").
		Str("token", SanitizeToken(token)).
		Str("reason", reason).
		Msg("Rejected bearer token")
}

// SanitizeToken masks a token, keeping the first and last four characters.
//
//	"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9" -> "eyJh...VCJ9"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
