// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package irods manages connections to the iRODS backend.

The backend protocol itself sits behind the Dialer and Conn interfaces:
connect, authenticate, switch identity and execute. This package adds
everything the gateway needs on top of those primitives:

  - Connector: dials and logs in, paced by a rate limiter and protected by a
    circuit breaker
  - Pool: a bounded set of connections authenticated as the proxy account
  - Acquirer: hands out a Facade acting for a specific user, either by
    switching the identity of a pooled connection or, in 4.2 compatibility
    mode, by dialing a fresh connection per request
  - Error: backend failures with their numeric code

A connection that failed at the connection level (dial, login, identity
switch, transport) is discarded and never returned to the pool:

	f, err := acquirer.Acquire(ctx, irods.Client{Username: "alice"})
	if err != nil {
		return err
	}
	defer f.Release()

	res, err := f.Execute(ctx, irods.Call{API: irods.APIGenQuery, ...})
*/
package irods
