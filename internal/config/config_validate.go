// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}

	return c.validateOIDC()
}

// validateStruct runs tag-based validation and flattens the result into one
// readable error.
func validateStruct(c *Config) error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, translateFieldError(fe))
	}
	return errors.New(strings.Join(messages, "; "))
}

func translateFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func (c *Config) validateOIDC() error {
	oidc := c.HTTPServer.Authentication.OpenIDConnect

	if (oidc.ClientID == "") != (oidc.Issuer == "") {
		return fmt.Errorf("openid_connect: client_id and issuer must be set together")
	}
	if !oidc.Enabled() {
		return nil
	}

	if oidc.IntrospectionEndpoint != "" && oidc.ClientSecret == "" {
		return fmt.Errorf("openid_connect: introspection_endpoint requires client_secret")
	}

	m := oidc.UserMapping
	switch m.Plugin {
	case "user_claim":
		if m.IRODSUserClaim == "" {
			return fmt.Errorf("openid_connect.user_mapping: user_claim plugin requires irods_user_claim")
		}
		if (m.MatchRegex == "") != (m.ReplaceFormat == "") {
			return fmt.Errorf("openid_connect.user_mapping: match_regex and replace_format must be set together")
		}
		if m.MatchRegex != "" {
			if _, err := regexp.Compile(m.MatchRegex); err != nil {
				return fmt.Errorf("openid_connect.user_mapping: invalid match_regex: %w", err)
			}
		}
	case "static":
		if m.Static.Claim == "" {
			return fmt.Errorf("openid_connect.user_mapping: static plugin requires static.claim")
		}
	}
	return nil
}
