// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package auth resolves bearer tokens to iRODS identities.

Tokens come from two places. Basic-auth logins through the /authenticate
endpoint are verified against the backend and stored in the identity handle
store under a fresh opaque token. Tokens issued by an OpenID provider are
validated on every request, either locally as signed JWTs or remotely
through the provider's introspection endpoint, and their claims are mapped
to a username.

Key Components:

  - Resolver: turns an Authorization header into a ClientIdentity or a
    ready-to-send Failure
  - Validator: local JWT validation (golang-jwt) with keys from a JWKSCache
  - Introspector: RFC 7662 introspection (zitadel/oidc) behind a circuit breaker
  - UserMapper: claim to username mapping (user_claim and static)
  - Login: basic-auth token issuance
  - TokenArchive: badger persistence of issued tokens across restarts
  - Sweeper: periodic removal of expired identities

Resolution is split so the serving goroutine never blocks on the network:

	res := resolver.Begin(ctx, r)  // header parsing and handle store lookup
	if res.Pending() {
	    // on a background worker
	    id, failure := resolver.Finish(ctx, res)
	}

Resolve runs both halves inline and is meant for tests and tools.
*/
package auth
