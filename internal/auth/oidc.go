// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"fmt"

	"github.com/tomtom215/irods-gateway/internal/config"
	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/stash"
)

// NewResolverFromConfig builds a resolver for the configured OpenID provider.
// The returned JWKS cache is nil unless jwks_uri is set; callers supervise
// it to keep keys fresh.
func NewResolverFromConfig(ctx context.Context, cfg config.OIDCConfig, zone string, identities *stash.Store[ClientIdentity]) (*Resolver, *JWKSCache, error) {
	rc := ResolverConfig{Zone: zone}
	if !cfg.Enabled() {
		logging.Info().Msg("OpenID Connect not configured, bearer tokens resolve from logins only")
		return NewResolver(identities, rc), nil, nil
	}

	mapper, err := NewUserMapper(cfg.UserMapping)
	if err != nil {
		return nil, nil, err
	}
	rc.Mapper = mapper

	hmacKey, err := HMACKey(cfg.AccessTokenSecret, cfg.ClientSecret)
	if err != nil {
		return nil, nil, err
	}

	var jwks *JWKSCache
	vc := ValidatorConfig{Issuer: cfg.Issuer, ClientID: cfg.ClientID, HMACKey: hmacKey}
	if cfg.JWKSURI != "" {
		jwks = NewJWKSCache(cfg.JWKSURI, nil, cfg.JWKSRefresh())
		vc.Keys = jwks
	}
	rc.Local = NewValidator(vc)

	if cfg.IntrospectionEnabled() {
		introspector, err := NewIntrospector(ctx, IntrospectorConfig{
			Issuer:        cfg.Issuer,
			ClientID:      cfg.ClientID,
			ClientSecret:  cfg.ClientSecret,
			Endpoint:      cfg.IntrospectionEndpoint,
			TokenEndpoint: cfg.TokenEndpoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openid_connect: %w", err)
		}
		rc.Remote = introspector
	}

	logging.Info().
		Str("issuer", cfg.Issuer).
		Bool("jwks", jwks != nil).
		Bool("introspection", rc.Remote != nil).
		Str("user_mapping", cfg.UserMapping.Plugin).
		Msg("OpenID Connect token validation enabled")

	return NewResolver(identities, rc), jwks, nil
}
