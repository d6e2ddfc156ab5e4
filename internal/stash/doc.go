// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package stash provides the process-wide handle store.

A Store maps generated opaque keys to values of a single type. Keys are
36-character UUID strings and are re-rolled on collision, so Insert never
fails. The store has no notion of expiry; callers that keep timestamps in
their values sweep with EraseIf.

Each use case gets its own typed store instead of sharing one container of
untyped values:

	identities := stash.New[auth.ClientIdentity]()
	token := identities.Insert(id)
	if id, ok := identities.Find(token); ok {
		...
	}

All operations are safe for concurrent use. Lookups take a read lock and run
in parallel with each other; Insert, Erase and EraseIf are exclusive.
*/
package stash
