// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"fmt"
	"regexp"

	"github.com/tomtom215/irods-gateway/internal/config"
)

// UserMapper maps validated token claims to an iRODS username.
type UserMapper interface {
	Match(claims Claims) (string, bool)
}

// ClaimMapper reads the username from a single string claim, optionally
// rewriting it with a regular expression.
type ClaimMapper struct {
	claim   string
	re      *regexp.Regexp
	replace string
}

// NewClaimMapper creates a mapper for claim. match and replace must both be
// set or both be empty; replace uses regexp.Expand syntax ($1, ${name}).
func NewClaimMapper(claim, match, replace string) (*ClaimMapper, error) {
	if claim == "" {
		return nil, fmt.Errorf("user mapping: claim name is required")
	}
	if (match == "") != (replace == "") {
		return nil, fmt.Errorf("user mapping: match_regex and replace_format must be set together")
	}

	m := &ClaimMapper{claim: claim, replace: replace}
	if match != "" {
		re, err := regexp.Compile(match)
		if err != nil {
			return nil, fmt.Errorf("user mapping: invalid match_regex: %w", err)
		}
		m.re = re
	}
	return m, nil
}

// Match returns the mapped username.
func (m *ClaimMapper) Match(claims Claims) (string, bool) {
	v, ok := claims.String(m.claim)
	if !ok {
		return "", false
	}
	if m.re != nil {
		v = m.re.ReplaceAllString(v, m.replace)
	}
	return v, v != ""
}

// StaticMapper looks a claim value up in a fixed table.
type StaticMapper struct {
	claim string
	users map[string]string
}

// NewStaticMapper creates a table-driven mapper.
func NewStaticMapper(claim string, users map[string]string) *StaticMapper {
	return &StaticMapper{claim: claim, users: users}
}

// Match returns the username registered for the claim's value.
func (m *StaticMapper) Match(claims Claims) (string, bool) {
	v, ok := claims.String(m.claim)
	if !ok {
		return "", false
	}
	user, ok := m.users[v]
	return user, ok && user != ""
}

// NewUserMapper builds the mapper selected by cfg.Plugin.
func NewUserMapper(cfg config.UserMappingConfig) (UserMapper, error) {
	switch cfg.Plugin {
	case "", "user_claim":
		return NewClaimMapper(cfg.IRODSUserClaim, cfg.MatchRegex, cfg.ReplaceFormat)
	case "static":
		if cfg.Static.Claim == "" {
			return nil, fmt.Errorf("user mapping: static plugin requires a claim")
		}
		return NewStaticMapper(cfg.Static.Claim, cfg.Static.Users), nil
	default:
		return nil, fmt.Errorf("user mapping: unknown plugin %q", cfg.Plugin)
	}
}
