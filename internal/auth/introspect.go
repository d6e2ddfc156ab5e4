// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/zitadel/oidc/v3/pkg/client/rs"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
)

// Introspection rejections.
var (
	ErrTokenInactive    = errors.New("token is not active")
	ErrTokenNotYetValid = errors.New("token is not valid yet")
	ErrTokenExpired     = errors.New("token has expired")
	ErrAudienceMismatch = errors.New("token audience does not include client_id")
	ErrIssuerMismatch   = errors.New("token issuer does not match")
)

// IntrospectorConfig configures RFC 7662 token introspection.
type IntrospectorConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string

	Endpoint string

	// TokenEndpoint is optional; the introspection endpoint stands in for it
	// so the provider's discovery document is never required.
	TokenEndpoint string

	HTTPClient *http.Client

	// FailureThreshold is the number of consecutive transport failures that
	// opens the breaker.
	FailureThreshold uint32
	BreakerTimeout   time.Duration

	Now func() time.Time
}

// Introspector asks the provider whether an opaque token is valid.
type Introspector struct {
	server   rs.ResourceServer
	breaker  *gobreaker.CircuitBreaker[map[string]any]
	issuer   string
	clientID string
	now      func() time.Time
}

// NewIntrospector creates an introspector authenticating with
// client_secret_basic.
func NewIntrospector(ctx context.Context, cfg IntrospectorConfig) (*Introspector, error) {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	tokenURL := cfg.TokenEndpoint
	if tokenURL == "" {
		tokenURL = cfg.Endpoint
	}

	opts := []rs.Option{rs.WithStaticEndpoints(tokenURL, cfg.Endpoint)}
	if cfg.HTTPClient != nil {
		opts = append(opts, rs.WithClient(cfg.HTTPClient))
	}

	server, err := rs.NewResourceServerClientCredentials(ctx, cfg.Issuer, cfg.ClientID, cfg.ClientSecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("create introspection client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[map[string]any](gobreaker.Settings{
		Name:        "oidc-introspection",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Introspection circuit breaker changed state")
			metrics.RecordBreakerTransition(name, from.String(), to.String(), float64(to))
		},
	})

	return &Introspector{
		server:   server,
		breaker:  breaker,
		issuer:   cfg.Issuer,
		clientID: cfg.ClientID,
		now:      cfg.Now,
	}, nil
}

// Introspect validates token with the provider and returns its claims.
func (i *Introspector) Introspect(ctx context.Context, token string) (Claims, error) {
	resp, err := i.breaker.Execute(func() (map[string]any, error) {
		return rs.Introspect[map[string]any](ctx, i.server, token)
	})
	if err != nil {
		return nil, fmt.Errorf("introspection failed: %w", err)
	}

	claims := Claims(resp)
	if err := i.check(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// check applies the response rules: active must be true and aud must name
// the client; nbf, exp and iss are checked when present.
func (i *Introspector) check(c Claims) error {
	if active, _ := c["active"].(bool); !active {
		return ErrTokenInactive
	}

	now := i.now()
	if nbf, ok := numericDate(c["nbf"]); ok && now.Before(nbf) {
		return ErrTokenNotYetValid
	}
	if exp, ok := numericDate(c["exp"]); ok && !now.Before(exp) {
		return ErrTokenExpired
	}

	if !audienceContains(c["aud"], i.clientID) {
		return ErrAudienceMismatch
	}

	if iss, present := c["iss"]; present {
		if s, ok := iss.(string); !ok || s != i.issuer {
			return ErrIssuerMismatch
		}
	}
	return nil
}

func audienceContains(aud any, clientID string) bool {
	switch v := aud.(type) {
	case string:
		return v == clientID
	case []any:
		for _, a := range v {
			if s, ok := a.(string); ok && s == clientID {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if s == clientID {
				return true
			}
		}
	}
	return false
}

// numericDate reads a JSON NumericDate in seconds since the epoch.
func numericDate(v any) (time.Time, bool) {
	var secs float64
	switch n := v.(type) {
	case float64:
		secs = n
	case int64:
		secs = float64(n)
	case int:
		secs = float64(n)
	case interface{ String() string }:
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	default:
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), true
}
