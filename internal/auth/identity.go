// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"time"

	"github.com/tomtom215/irods-gateway/internal/irods"
)

// ClientIdentity is the backend user a request acts for.
type ClientIdentity struct {
	Username string
	Zone     string

	// ExpiresAt is zero for identities that never expire.
	ExpiresAt time.Time

	// Password is the client's native password. It is only kept for
	// compatibility mode, where connections log in as the client.
	Password string
}

// Expired reports whether the identity may no longer be used at now.
func (id ClientIdentity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}

// Client converts the identity into a connection request.
func (id ClientIdentity) Client() irods.Client {
	return irods.Client{Username: id.Username, Zone: id.Zone, Password: id.Password}
}

// Claims is a decoded token payload.
type Claims map[string]any

// String returns the string claim name, if present.
func (c Claims) String(name string) (string, bool) {
	s, ok := c[name].(string)
	return s, ok
}
