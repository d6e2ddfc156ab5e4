// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package main is the entry point for the iRODS HTTP gateway.

The gateway exposes an iRODS zone over a REST-style HTTP API. Clients obtain
a bearer token from /authenticate (basic auth) or present an OpenID Connect
access token; every other request runs against the zone as that client,
through a pooled proxy connection that switches identity per request.

# Process Layout

	RootSupervisor ("irods-http-api")
	├── IdentitySupervisor ("identity-layer")
	│   ├── handle store sweeper
	│   └── JWKS refresher (if jwks_uri is set)
	├── BackendSupervisor ("backend-layer")
	│   ├── connection pool
	│   └── request executor
	└── APISupervisor ("api-layer")
	    └── HTTP server

Startup order:

 1. Configuration: Koanf v2 (defaults, YAML file, environment)
 2. Logging: zerolog
 3. Catalog: embedded DuckDB catalog acting as the zone server
 4. Connector and pool: proxy connections behind rate limiter and breaker
 5. Identity: handle store, token archive, OpenID Connect resolver
 6. Executor, endpoints and chi router
 7. Supervisor tree until SIGINT or SIGTERM

# Configuration

	--config path            YAML config file (or CONFIG_PATH)

	HTTP_PORT=9000           listen port
	HTTP_THREADS=3           executor workers
	IRODS_ZONE=tempZone      zone name
	IRODS_PROXY_USER=rods    proxy administrator
	IRODS_PROXY_PASSWORD=... proxy password
	IRODS_CATALOG_PATH=...   DuckDB catalog file or :memory:
	OIDC_ISSUER=...          enables OpenID Connect with OIDC_CLIENT_ID
	LOG_LEVEL=info           trace, debug, info, warn, error
	LOG_FORMAT=json          json or console

# Example

	export IRODS_PROXY_PASSWORD=rods
	./irods-http-api --config config.yaml

	curl -u rods:rods -X POST localhost:9000/irods-http-api/0.2.0/authenticate
	curl -H "Authorization: Bearer $TOKEN" \
	    "localhost:9000/irods-http-api/0.2.0/query?op=execute_genquery&query=select%20COLL_NAME"
*/
package main
