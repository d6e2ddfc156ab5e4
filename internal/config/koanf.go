// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/irods_http_api/config.yaml",
	"/etc/irods_http_api/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default applied. Defaults
// follow the reference server's sample configuration.
func defaultConfig() *Config {
	return &Config{
		HTTPServer: HTTPServerConfig{
			Host:    "0.0.0.0",
			Port:    9000,
			BaseURL: "/irods-http-api/0.2.0",
			Requests: RequestsConfig{
				Threads:                     3,
				QueueSize:                   64,
				MaxSizeOfRequestBodyInBytes: 8 * 1024 * 1024,
				TimeoutInSeconds:            30,
			},
			Authentication: AuthenticationConfig{
				EvictionCheckIntervalInSeconds: 60,
				Basic: BasicAuthConfig{
					TimeoutInSeconds: 3600,
				},
				OpenIDConnect: OIDCConfig{
					JWKSRefreshInSeconds: 900,
					UserMapping: UserMappingConfig{
						Plugin:         "user_claim",
						IRODSUserClaim: "irods_username",
					},
				},
			},
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 600,
			},
		},
		IRODSClient: IRODSClientConfig{
			Host: "localhost",
			Port: 1247,
			Zone: "tempZone",
			ProxyAdminAccount: ProxyAdminConfig{
				Username: "rods",
				Password: "rods",
			},
			ConnectionPool: ConnectionPoolConfig{
				Size:                       4,
				RefreshTimeoutInSeconds:    600,
				MaxRetrievalsBeforeRefresh: 16,
				DialRatePerSecond:          10,
			},
			MaxNumberOfRowsPerCatalogQuery: 15,
			Catalog: CatalogConfig{
				Path: ":memory:",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, the config file at path (or the
// first file found in the search paths when path is empty) and the
// environment, then validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set through
// the environment.
var sliceConfigPaths = []string{
	"http_server.cors.allowed_origins",
}

// processSliceFields converts comma-separated string values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables (lower-cased) to config keys.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_host":         "http_server.host",
	"http_port":         "http_server.port",
	"http_base_url":     "http_server.base_url",
	"http_threads":      "http_server.requests.threads",
	"http_queue_size":   "http_server.requests.queue_size",
	"http_max_body":     "http_server.requests.max_size_of_request_body_in_bytes",
	"http_timeout":      "http_server.requests.timeout_in_seconds",
	"cors_origins":      "http_server.cors.allowed_origins",
	"rate_limit_enable": "http_server.rate_limit.enabled",
	"rate_limit_rpm":    "http_server.rate_limit.requests_per_minute",

	"auth_eviction_interval": "http_server.authentication.eviction_check_interval_in_seconds",
	"auth_basic_timeout":     "http_server.authentication.basic.timeout_in_seconds",
	"auth_token_archive":     "http_server.authentication.token_archive.path",

	"oidc_client_id":              "http_server.authentication.openid_connect.client_id",
	"oidc_client_secret":          "http_server.authentication.openid_connect.client_secret",
	"oidc_issuer":                 "http_server.authentication.openid_connect.issuer",
	"oidc_token_endpoint":         "http_server.authentication.openid_connect.token_endpoint",
	"oidc_introspection_endpoint": "http_server.authentication.openid_connect.introspection_endpoint",
	"oidc_jwks_uri":               "http_server.authentication.openid_connect.jwks_uri",
	"oidc_access_token_secret":    "http_server.authentication.openid_connect.access_token_secret",
	"oidc_user_claim":             "http_server.authentication.openid_connect.user_mapping.irods_user_claim",
	"oidc_match_regex":            "http_server.authentication.openid_connect.user_mapping.match_regex",
	"oidc_replace_format":         "http_server.authentication.openid_connect.user_mapping.replace_format",

	"irods_host":           "irods_client.host",
	"irods_port":           "irods_client.port",
	"irods_zone":           "irods_client.zone",
	"irods_compatibility":  "irods_client.enable_4_2_compatibility",
	"irods_proxy_user":     "irods_client.proxy_admin_account.username",
	"irods_proxy_password": "irods_client.proxy_admin_account.password",
	"irods_pool_size":      "irods_client.connection_pool.size",
	"irods_max_rows":       "irods_client.max_number_of_rows_per_catalog_query",
	"irods_catalog_path":   "irods_client.catalog.path",

	"log_level":  "log.level",
	"log_format": "log.format",
	"log_caller": "log.caller",
}

// envTransformFunc maps an environment variable name to a config key, or ""
// to skip it.
//
// Examples:
//   - IRODS_ZONE -> irods_client.zone
//   - OIDC_ISSUER -> http_server.authentication.openid_connect.issuer
//   - LOG_LEVEL -> log.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
