// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package config

import (
	"fmt"
	"time"
)

// Config holds the gateway configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every optional setting
//  2. Config File: YAML file (config.yaml, CONFIG_PATH or --config)
//  3. Environment Variables: explicit variable to key mappings
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	HTTPServer  HTTPServerConfig  `koanf:"http_server"`
	IRODSClient IRODSClientConfig `koanf:"irods_client"`
	Log         LogConfig         `koanf:"log"`
}

// HTTPServerConfig configures the HTTP side of the gateway.
type HTTPServerConfig struct {
	Host    string `koanf:"host" validate:"required"`
	Port    int    `koanf:"port" validate:"min=1,max=65535"`
	BaseURL string `koanf:"base_url" validate:"required,startswith=/"`

	Requests       RequestsConfig       `koanf:"requests"`
	Authentication AuthenticationConfig `koanf:"authentication"`
	RateLimit      RateLimitConfig      `koanf:"rate_limit"`
	CORS           CORSConfig           `koanf:"cors"`
}

// Addr returns the listen address.
func (c HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RequestsConfig bounds request handling.
type RequestsConfig struct {
	// Threads is the number of background workers executing backend calls.
	Threads int `koanf:"threads" validate:"min=1"`

	// QueueSize is the number of tasks that may wait for a worker.
	QueueSize int `koanf:"queue_size" validate:"min=0"`

	MaxSizeOfRequestBodyInBytes int64 `koanf:"max_size_of_request_body_in_bytes" validate:"min=1"`
	TimeoutInSeconds            int   `koanf:"timeout_in_seconds" validate:"min=1"`
}

// Timeout returns the request timeout.
func (c RequestsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutInSeconds) * time.Second
}

// AuthenticationConfig configures identity resolution.
type AuthenticationConfig struct {
	// EvictionCheckIntervalInSeconds is how often expired identities are
	// swept from the handle store.
	EvictionCheckIntervalInSeconds int `koanf:"eviction_check_interval_in_seconds" validate:"min=1"`

	Basic         BasicAuthConfig    `koanf:"basic"`
	TokenArchive  TokenArchiveConfig `koanf:"token_archive"`
	OpenIDConnect OIDCConfig         `koanf:"openid_connect"`
}

// EvictionInterval returns the sweep interval.
func (c AuthenticationConfig) EvictionInterval() time.Duration {
	return time.Duration(c.EvictionCheckIntervalInSeconds) * time.Second
}

// BasicAuthConfig configures tokens issued by the /authenticate endpoint.
type BasicAuthConfig struct {
	TimeoutInSeconds int `koanf:"timeout_in_seconds" validate:"min=1"`
}

// TokenLifetime returns how long a basic-auth token stays valid.
func (c BasicAuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TimeoutInSeconds) * time.Second
}

// TokenArchiveConfig configures persistence of issued tokens.
type TokenArchiveConfig struct {
	// Path is a badger directory. Empty disables the archive; ":memory:"
	// keeps it in memory.
	Path string `koanf:"path"`
}

// Enabled reports whether issued tokens are persisted.
func (c TokenArchiveConfig) Enabled() bool {
	return c.Path != ""
}

// OIDCConfig configures bearer tokens issued by an OpenID provider.
// Token validation is enabled when ClientID and Issuer are set.
type OIDCConfig struct {
	ClientID              string `koanf:"client_id"`
	ClientSecret          string `koanf:"client_secret"`
	Issuer                string `koanf:"issuer" validate:"omitempty,url"`
	TokenEndpoint         string `koanf:"token_endpoint" validate:"omitempty,url"`
	IntrospectionEndpoint string `koanf:"introspection_endpoint" validate:"omitempty,url"`
	JWKSURI               string `koanf:"jwks_uri" validate:"omitempty,url"`

	// AccessTokenSecret is a base64url-encoded HMAC key for HS* access tokens.
	// ClientSecret is used when empty.
	AccessTokenSecret string `koanf:"access_token_secret"`

	JWKSRefreshInSeconds int `koanf:"jwks_refresh_in_seconds" validate:"min=0"`

	UserMapping UserMappingConfig `koanf:"user_mapping"`
}

// Enabled reports whether OpenID Connect validation is configured.
func (c OIDCConfig) Enabled() bool {
	return c.ClientID != "" && c.Issuer != ""
}

// IntrospectionEnabled reports whether remote introspection can be used.
func (c OIDCConfig) IntrospectionEnabled() bool {
	return c.Enabled() && c.IntrospectionEndpoint != "" && c.ClientSecret != ""
}

// JWKSRefresh returns the JWKS cache lifetime.
func (c OIDCConfig) JWKSRefresh() time.Duration {
	return time.Duration(c.JWKSRefreshInSeconds) * time.Second
}

// UserMappingConfig selects how token claims map to iRODS usernames.
type UserMappingConfig struct {
	// Plugin is "user_claim" or "static".
	Plugin string `koanf:"plugin" validate:"oneof=user_claim static"`

	// IRODSUserClaim names the claim carrying the username (user_claim).
	IRODSUserClaim string `koanf:"irods_user_claim"`
	MatchRegex     string `koanf:"match_regex"`
	ReplaceFormat  string `koanf:"replace_format"`

	// Static maps claim values to usernames (static).
	Static StaticMappingConfig `koanf:"static"`
}

// StaticMappingConfig is a fixed claim value to username table.
type StaticMappingConfig struct {
	Claim string            `koanf:"claim"`
	Users map[string]string `koanf:"users"`
}

// RateLimitConfig configures per-client request limiting.
type RateLimitConfig struct {
	Enabled           bool `koanf:"enabled"`
	RequestsPerMinute int  `koanf:"requests_per_minute" validate:"min=0"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// IRODSClientConfig configures backend connections.
type IRODSClientConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
	Zone string `koanf:"zone" validate:"required"`

	// EnableCompatibility opens one connection per request for servers that
	// cannot switch identities on a pooled connection.
	EnableCompatibility bool `koanf:"enable_4_2_compatibility"`

	ProxyAdminAccount ProxyAdminConfig     `koanf:"proxy_admin_account"`
	ConnectionPool    ConnectionPoolConfig `koanf:"connection_pool"`

	MaxNumberOfRowsPerCatalogQuery int `koanf:"max_number_of_rows_per_catalog_query" validate:"min=1"`

	Catalog CatalogConfig `koanf:"catalog"`
}

// ProxyAdminConfig is the privileged account used for identity switching.
type ProxyAdminConfig struct {
	Username string `koanf:"username" validate:"required"`
	Password string `koanf:"password" validate:"required"`
}

// ConnectionPoolConfig sizes the backend pool.
type ConnectionPoolConfig struct {
	Size                       int     `koanf:"size" validate:"min=1"`
	RefreshTimeoutInSeconds    int     `koanf:"refresh_timeout_in_seconds" validate:"min=0"`
	MaxRetrievalsBeforeRefresh int     `koanf:"max_retrievals_before_refresh" validate:"min=0"`
	DialRatePerSecond          float64 `koanf:"dial_rate_per_second" validate:"min=0"`
}

// RefreshAfter returns the maximum connection age.
func (c ConnectionPoolConfig) RefreshAfter() time.Duration {
	return time.Duration(c.RefreshTimeoutInSeconds) * time.Second
}

// CatalogConfig configures the embedded catalog backend.
type CatalogConfig struct {
	// Path is the DuckDB database file. ":memory:" keeps it in memory.
	Path string `koanf:"path" validate:"required"`

	// PolicyModel and PolicyPath replace the embedded authorization model
	// and policy when set.
	PolicyModel string `koanf:"policy_model"`
	PolicyPath  string `koanf:"policy_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error critical off"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
