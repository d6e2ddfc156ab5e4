// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package services adapts gateway components to suture's Serve(ctx) pattern.

HTTPServerService turns the blocking ListenAndServe/Shutdown pair of an
*http.Server into a supervised service that drains connections when its
context is canceled.

ConnectionPoolService owns the lifetime of the proxy connection pool. It
fills the pool on start and closes it on shutdown; warm-up failures are
logged and connections are then opened lazily on first checkout.

Return values follow suture's conventions:

	nil         -> stopped cleanly, not restarted
	error       -> crashed, restarted with backoff
	ctx.Err()   -> shutdown requested
*/
package services
