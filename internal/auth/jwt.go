// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Local validation errors.
var (
	ErrNotJWT             = errors.New("token is not a JWT")
	ErrUnsupportedType    = errors.New("unsupported token typ")
	ErrUnsupportedHeader  = errors.New("unsupported token header")
	ErrNoKeyForAlgorithm  = errors.New("no key configured for algorithm")
	ErrUnsupportedSigning = errors.New("unsupported signing algorithm")
)

// signingAlgorithms lists every algorithm accepted for access tokens.
// "none" is never accepted.
var signingAlgorithms = []string{
	"HS256", "HS384", "HS512",
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
}

// KeySource supplies public keys for asymmetric algorithms.
type KeySource interface {
	VerificationKeys(ctx context.Context, kid, alg string) ([]any, error)
}

// ValidatorConfig configures local access token validation.
type ValidatorConfig struct {
	Issuer   string
	ClientID string

	// HMACKey verifies HS* tokens. HS* tokens are rejected when empty.
	HMACKey []byte

	// Keys verifies RS*, PS* and ES* tokens. Asymmetric tokens are rejected
	// when nil.
	Keys KeySource

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration

	// Now overrides the clock. Intended for tests.
	Now func() time.Time
}

// Validator verifies self-contained access tokens without a network call
// (beyond an occasional JWKS refresh).
type Validator struct {
	hmacKey   []byte
	keySource KeySource
	parser    *jwt.Parser
}

// NewValidator creates a validator. The issuer and audience (client ID) of
// every token are checked, and exp is required.
func NewValidator(cfg ValidatorConfig) *Validator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(signingAlgorithms),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	return &Validator{
		hmacKey:   cfg.HMACKey,
		keySource: cfg.Keys,
		parser:    jwt.NewParser(opts...),
	}
}

// HMACKey returns the key for HS* tokens: the base64url-decoded access token
// secret when set, otherwise the client secret.
func HMACKey(accessTokenSecret, clientSecret string) ([]byte, error) {
	if accessTokenSecret != "" {
		key, err := decodeSegment(accessTokenSecret)
		if err != nil {
			return nil, fmt.Errorf("access_token_secret is not base64url: %w", err)
		}
		return key, nil
	}
	if clientSecret != "" {
		return []byte(clientSecret), nil
	}
	return nil, nil
}

// Validate verifies token and returns its claims. Tokens that are not
// shaped like a JWS fail fast with ErrNotJWT.
func (v *Validator) Validate(ctx context.Context, token string) (Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}

	var candidates []any
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		keys, err := v.keys(ctx, t)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, ErrNoVerificationKey
		}
		candidates = keys
		return keys[0], nil
	})

	// Without a matching kid every compatible key is a candidate.
	for i := 1; err != nil && i < len(candidates) && errors.Is(err, jwt.ErrTokenSignatureInvalid); i++ {
		key := candidates[i]
		claims = jwt.MapClaims{}
		_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	return Claims(claims), nil
}

// keys checks the JOSE header and returns the keys that may verify t.
func (v *Validator) keys(ctx context.Context, t *jwt.Token) ([]any, error) {
	typ, hasTyp := t.Header["typ"].(string)
	if !hasTyp {
		return nil, fmt.Errorf("%w: missing typ", ErrUnsupportedType)
	}
	switch strings.ToLower(typ) {
	case "at+jwt", "application/at+jwt", "jwt":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}

	if _, ok := t.Header["enc"]; ok {
		return nil, fmt.Errorf("%w: encrypted tokens", ErrUnsupportedHeader)
	}
	if _, ok := t.Header["crit"]; ok {
		return nil, fmt.Errorf("%w: crit", ErrUnsupportedHeader)
	}
	if cty, ok := t.Header["cty"].(string); ok && strings.EqualFold(cty, "jwt") {
		return nil, fmt.Errorf("%w: nested tokens", ErrUnsupportedHeader)
	}

	alg := t.Method.Alg()
	if strings.HasPrefix(alg, "HS") {
		if len(v.hmacKey) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoKeyForAlgorithm, alg)
		}
		return []any{v.hmacKey}, nil
	}

	if keyTypeFor(alg) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSigning, alg)
	}
	if v.keySource == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoKeyForAlgorithm, alg)
	}

	kid, _ := t.Header["kid"].(string)
	return v.keySource.VerificationKeys(ctx, kid, alg)
}
