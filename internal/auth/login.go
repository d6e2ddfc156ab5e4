// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
	"github.com/tomtom215/irods-gateway/internal/stash"
)

// AnonymousUser may log in without a password. The backend cannot check
// credentials for it; requests fail later if the zone has no such account.
const AnonymousUser = "anonymous"

// ErrInvalidCredentials is returned when the backend rejects a login.
var ErrInvalidCredentials = errors.New("invalid username or password")

// CredentialChecker verifies native passwords against the backend.
type CredentialChecker interface {
	CheckCredentials(ctx context.Context, username, password string) error
}

// LoginConfig configures basic-auth token issuance.
type LoginConfig struct {
	Zone     string
	Lifetime time.Duration

	// KeepPassword stores the password on the identity so compatibility
	// connections can log in as the client.
	KeepPassword bool

	// Archive is optional.
	Archive *TokenArchive

	Now func() time.Time
}

// Login issues bearer tokens for verified basic-auth credentials.
type Login struct {
	checker    CredentialChecker
	identities *stash.Store[ClientIdentity]
	cfg        LoginConfig
}

// NewLogin creates a login flow storing identities in the handle store.
func NewLogin(checker CredentialChecker, identities *stash.Store[ClientIdentity], cfg LoginConfig) *Login {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Login{checker: checker, identities: identities, cfg: cfg}
}

// Login verifies username and password and returns a new bearer token.
func (l *Login) Login(ctx context.Context, username, password string) (string, error) {
	anonymous := username == AnonymousUser && password == ""

	if !anonymous {
		if username == "" || password == "" {
			return "", ErrInvalidCredentials
		}
		if err := l.checker.CheckCredentials(ctx, username, password); err != nil {
			if e, ok := irods.AsError(err); ok && (e.Code == irods.CatInvalidAuthentication || e.Code == irods.CatInvalidUser) {
				return "", ErrInvalidCredentials
			}
			return "", fmt.Errorf("verify credentials for %s: %w", username, err)
		}
	} else {
		logging.Ctx(ctx).Trace().Msg("Anonymous login, skipping credential check")
	}

	id := ClientIdentity{
		Username:  username,
		Zone:      l.cfg.Zone,
		ExpiresAt: l.cfg.Now().Add(l.cfg.Lifetime),
	}
	if l.cfg.KeepPassword {
		id.Password = password
	}

	token := l.identities.Insert(id)
	metrics.StashEntries.Set(float64(l.identities.Len()))

	if l.cfg.Archive != nil {
		if err := l.cfg.Archive.Save(ctx, token, id); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Could not archive bearer token")
		}
	}
	return token, nil
}
