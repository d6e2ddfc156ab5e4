// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package catalog is an embedded iRODS catalog backed by DuckDB.

It implements irods.Dialer and irods.Conn in-process so the gateway can run
without a remote server: local development, demos and the integration tests
all use it. The catalog keeps zones, users and groups, collections, data
object replicas, access grants, tickets, quotas, resources and specific
queries in DuckDB tables.

# Connections

Dial returns an unauthenticated connection. Authenticate verifies the proxy
account's native password (bcrypt hashed at rest); when the dial request
names a different client, the proxy must be allowed to act as a proxy.
SwitchIdentity changes the acting user of an authenticated proxy
connection and, when asked, finalizes replicas the previous user left open.

Every Execute call is authorized with the Casbin policy in package authz,
using the acting user's type as the subject.

# Queries

GenQuery text is parsed into a small AST and translated to SQL:

	select COLL_NAME, DATA_NAME, count(DATA_ID)
	where COLL_NAME like '/tempZone/home/%' and DATA_SIZE > '1024'

Supported conditions are =, !=, <>, <, >, <=, >=, like, not like, in,
not in and between, joined with and; "||" adds alternatives for the same
column. Rows are restricted to what the acting user owns or has been
granted unless the user is a rodsadmin.

GenQuery2 accepts the same grammar with optional trailing limit and offset
clauses, and renders rows as JSON or returns the generated SQL.

Specific queries are stored SQL statements executed with positional bind
arguments.
*/
package catalog
