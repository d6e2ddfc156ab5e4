// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package config loads and validates the gateway configuration.

Configuration is layered with Koanf v2:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: the path passed to Load, CONFIG_PATH, or the first of
    DefaultConfigPaths that exists
 3. Environment variables listed in envMappings

The YAML tree mirrors the reference server's configuration:

	http_server:
	  host: 0.0.0.0
	  port: 9000
	  requests:
	    threads: 3
	    max_size_of_request_body_in_bytes: 8388608
	    timeout_in_seconds: 30
	  authentication:
	    eviction_check_interval_in_seconds: 60
	    basic:
	      timeout_in_seconds: 3600
	    openid_connect:
	      client_id: gateway
	      issuer: https://idp.example.org/realms/irods
	      user_mapping:
	        plugin: user_claim
	        irods_user_claim: irods_username
	irods_client:
	  host: irods.example.org
	  port: 1247
	  zone: tempZone
	  enable_4_2_compatibility: false
	  proxy_admin_account:
	    username: rods
	    password: rods
	  connection_pool:
	    size: 4
	  max_number_of_rows_per_catalog_query: 15

Field constraints are expressed as validator/v10 tags; rules that involve
several fields live in config_validate.go.

Environment examples:

	IRODS_ZONE=otherZone
	OIDC_ISSUER=https://idp.example.org/realms/irods
	CORS_ORIGINS=https://a.example.org,https://b.example.org
	LOG_LEVEL=debug
*/
package config
