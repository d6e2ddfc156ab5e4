// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/irods-gateway/internal/logging"
)

// ErrNoVerificationKey is returned when the key set holds no key usable for
// a token's algorithm.
var ErrNoVerificationKey = errors.New("no usable verification key")

// jwk is one parsed signing key.
type jwk struct {
	kid    string
	kty    string
	alg    string
	use    string
	keyOps []string
	key    any // *rsa.PublicKey or *ecdsa.PublicKey
}

// usableFor reports whether the key may verify a token signed with alg.
func (k jwk) usableFor(alg string) bool {
	if k.use != "" && k.use != "sig" {
		return false
	}
	if len(k.keyOps) > 0 && !slices.Contains(k.keyOps, "verify") {
		return false
	}
	if k.alg != "" {
		return k.alg == alg
	}
	return k.kty == keyTypeFor(alg)
}

func keyTypeFor(alg string) string {
	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		return "RSA"
	case strings.HasPrefix(alg, "ES"):
		return "EC"
	default:
		return ""
	}
}

// JWKSCache caches the provider's JSON Web Key Set with a TTL.
// It is safe for concurrent use.
type JWKSCache struct {
	uri        string
	httpClient *http.Client
	ttl        time.Duration

	mu      sync.RWMutex
	keys    []jwk
	fetched time.Time
}

// NewJWKSCache creates a cache for the key set at uri.
func NewJWKSCache(uri string, client *http.Client, ttl time.Duration) *JWKSCache {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &JWKSCache{
		uri:        uri,
		httpClient: client,
		ttl:        ttl,
	}
}

// VerificationKeys returns the keys that may verify a token with the given
// kid and alg. A matching kid selects that key alone; otherwise every key
// compatible with alg is returned.
func (c *JWKSCache) VerificationKeys(ctx context.Context, kid, alg string) ([]any, error) {
	c.mu.RLock()
	keys := c.keys
	stale := time.Since(c.fetched) > c.ttl
	c.mu.RUnlock()

	if stale || len(keys) == 0 {
		fresh, err := c.refresh(ctx, false)
		switch {
		case err == nil:
			keys = fresh
		case len(keys) == 0:
			return nil, err
		default:
			logging.Ctx(ctx).Warn().Err(err).Str("jwks_uri", c.uri).Msg("JWKS refresh failed, using cached keys")
		}
	}

	if kid != "" {
		for _, k := range keys {
			if k.kid == kid {
				if !k.usableFor(alg) {
					return nil, fmt.Errorf("%w: key %q does not match alg %s", ErrNoVerificationKey, kid, alg)
				}
				return []any{k.key}, nil
			}
		}
		logging.Ctx(ctx).Debug().Str("kid", kid).Msg("Key ID not found in JWKS, trying all compatible keys")
	}

	var out []any
	for _, k := range keys {
		if k.usableFor(alg) {
			out = append(out, k.key)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: alg %s", ErrNoVerificationKey, alg)
	}
	return out, nil
}

// Refresh fetches the key set now, regardless of its age.
func (c *JWKSCache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx, true)
	return err
}

// Serve keeps the key set warm, refreshing it every TTL. It implements
// suture.Service.
func (c *JWKSCache) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
			logging.Warn().Err(err).Str("jwks_uri", c.uri).Msg("Background JWKS refresh failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *JWKSCache) String() string {
	return "jwks-refresher"
}

func (c *JWKSCache) refresh(ctx context.Context, force bool) ([]jwk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if !force && time.Since(c.fetched) < c.ttl && len(c.keys) > 0 {
		return c.keys, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS fetch failed with status %d", resp.StatusCode)
	}

	var set struct {
		Keys []struct {
			Kty    string   `json:"kty"`
			Kid    string   `json:"kid"`
			Alg    string   `json:"alg"`
			Use    string   `json:"use"`
			KeyOps []string `json:"key_ops"`
			N      string   `json:"n"`
			E      string   `json:"e"`
			Crv    string   `json:"crv"`
			X      string   `json:"x"`
			Y      string   `json:"y"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make([]jwk, 0, len(set.Keys))
	for _, raw := range set.Keys {
		k := jwk{kid: raw.Kid, kty: raw.Kty, alg: raw.Alg, use: raw.Use, keyOps: raw.KeyOps}

		switch raw.Kty {
		case "RSA":
			k.key, err = rsaKey(raw.N, raw.E)
		case "EC":
			k.key, err = ecKey(raw.Crv, raw.X, raw.Y)
		default:
			continue
		}
		if err != nil {
			logging.Debug().Err(err).Str("kid", raw.Kid).Msg("Skipping malformed JWK")
			continue
		}
		keys = append(keys, k)
	}

	c.keys = keys
	c.fetched = time.Now()
	return keys, nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := decodeSegment(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eBytes, err := decodeSegment(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, errors.New("invalid RSA key parameters")
	}

	exp := 0
	for _, b := range eBytes {
		exp = exp<<8 + int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: exp}, nil
}

func ecKey(crv, x, y string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve %q", crv)
	}

	xBytes, err := decodeSegment(x)
	if err != nil {
		return nil, fmt.Errorf("x: %w", err)
	}
	yBytes, err := decodeSegment(y)
	if err != nil {
		return nil, fmt.Errorf("y: %w", err)
	}

	key := &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}
	if !curve.IsOnCurve(key.X, key.Y) {
		return nil, errors.New("point is not on curve")
	}
	return key, nil
}

// decodeSegment decodes base64url with or without padding.
func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
