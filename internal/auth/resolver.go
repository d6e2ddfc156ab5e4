// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
	"github.com/tomtom215/irods-gateway/internal/stash"
)

// Resolution sources, used as metric labels and audit fields.
const (
	SourceStash         = "stash"
	SourceJWT           = "jwt"
	SourceIntrospection = "introspection"
	sourceRejected      = "rejected"
)

// TokenValidator validates a self-contained token locally.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (Claims, error)
}

// TokenIntrospector validates a token with the issuer.
type TokenIntrospector interface {
	Introspect(ctx context.Context, token string) (Claims, error)
}

// ResolverConfig wires the optional OpenID Connect integration. With
// Mapper nil, tokens resolve only through the handle store.
type ResolverConfig struct {
	// Zone is assigned to identities mapped from token claims.
	Zone string

	Local  TokenValidator
	Remote TokenIntrospector
	Mapper UserMapper

	// Now overrides the clock. Intended for tests.
	Now func() time.Time
}

// Resolver maps bearer tokens to client identities.
type Resolver struct {
	identities *stash.Store[ClientIdentity]
	zone       string
	local      TokenValidator
	remote     TokenIntrospector
	mapper     UserMapper
	now        func() time.Time
}

// NewResolver creates a resolver over the identity handle store.
func NewResolver(identities *stash.Store[ClientIdentity], cfg ResolverConfig) *Resolver {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{
		identities: identities,
		zone:       cfg.Zone,
		local:      cfg.Local,
		remote:     cfg.Remote,
		mapper:     cfg.Mapper,
		now:        cfg.Now,
	}
}

// OIDCEnabled reports whether tokens unknown to the handle store can be
// validated against an OpenID provider.
func (r *Resolver) OIDCEnabled() bool {
	return r.mapper != nil && (r.local != nil || r.remote != nil)
}

// Resolution is the outcome of the non-blocking half of resolution. Exactly
// one of Identity, Failure or a pending token validation is set.
type Resolution struct {
	Identity ClientIdentity
	Failure  *Failure

	token   string
	pending bool
}

// Pending reports whether Finish must run to complete the resolution.
func (r Resolution) Pending() bool {
	return r.pending
}

// Begin parses the Authorization header and consults the handle store. It
// never blocks on I/O and may run on the serving goroutine.
func (r *Resolver) Begin(ctx context.Context, req *http.Request) Resolution {
	header := req.Header.Get("Authorization")
	if header == "" {
		logging.Ctx(ctx).Debug().Msg("Missing Authorization header")
		return r.reject(ctx, "", "missing authorization header", badRequest())
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		logging.Ctx(ctx).Debug().Msg("Malformed Authorization header")
		return r.reject(ctx, "", "malformed authorization header", badRequest())
	}

	if id, found := r.identities.Find(token); found {
		if !id.Expired(r.now()) {
			metrics.IdentityResolutions.WithLabelValues(SourceStash).Inc()
			logging.LogIdentityResolved(ctx, id.Username, SourceStash)
			return Resolution{Identity: id}
		}

		if r.identities.Erase(token) {
			metrics.StashEvictions.Inc()
			metrics.StashEntries.Set(float64(r.identities.Len()))
		}
		logging.Ctx(ctx).Debug().Str("token", logging.SanitizeToken(token)).Msg("Cached identity expired")
	}

	if !r.OIDCEnabled() {
		return r.reject(ctx, token, "unknown token", unauthorized())
	}
	return Resolution{token: token, pending: true}
}

// Finish validates a pending token locally, then by introspection, and maps
// its claims to a username. It may block on the network. The identity is
// not added to the handle store.
func (r *Resolver) Finish(ctx context.Context, res Resolution) (ClientIdentity, *Failure) {
	if !res.pending {
		return res.Identity, res.Failure
	}

	claims, source := r.validate(ctx, res.token)
	if claims == nil {
		r.reject(ctx, res.token, "token validation failed", nil)
		return ClientIdentity{}, unauthorized()
	}

	username, ok := r.mapper.Match(claims)
	if !ok {
		logging.Ctx(ctx).Warn().Msg("Could not map token claims to a user")
		r.reject(ctx, res.token, "no matching user", nil)
		return ClientIdentity{}, unauthorized()
	}

	metrics.IdentityResolutions.WithLabelValues(source).Inc()
	logging.LogIdentityResolved(ctx, username, source)
	return ClientIdentity{Username: username, Zone: r.zone}, nil
}

// Resolve runs Begin and Finish back to back.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (ClientIdentity, *Failure) {
	return r.Finish(ctx, r.Begin(ctx, req))
}

func (r *Resolver) validate(ctx context.Context, token string) (Claims, string) {
	if r.local != nil {
		claims, err := r.local.Validate(ctx, token)
		if err == nil {
			return claims, SourceJWT
		}
		logging.Ctx(ctx).Debug().Err(err).Msg("Local token validation failed")
	}

	if r.remote != nil {
		claims, err := r.remote.Introspect(ctx, token)
		if err == nil {
			return claims, SourceIntrospection
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Token introspection failed")
	}
	return nil, ""
}

func (r *Resolver) reject(ctx context.Context, token, reason string, f *Failure) Resolution {
	metrics.IdentityResolutions.WithLabelValues(sourceRejected).Inc()
	logging.LogIdentityRejected(ctx, token, reason)
	return Resolution{Failure: f}
}
