// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package api provides the HTTP layer of the gateway: routing, operation
dispatch, request decoding and the background executor.

Every endpoint lives under a configurable base URL (default
/irods-http-api/0.2.0) and multiplexes its operations on the "op"
argument. GET requests carry arguments in the query string; POST requests
carry them in a multipart/form-data or application/x-www-form-urlencoded
body.

Key Components:

  - NewRouter: Chi router with request IDs, CORS, rate limiting, body
    limits, compression and Prometheus metrics
  - Endpoint: per-URL operation tables and the Dispatch rules (405 for
    unsupported verbs, 400 for missing or unknown operations)
  - Session: single-writer ownership of one exchange's response
  - Executor: bounded worker pool running backend work off the serving
    goroutine, supervised by suture
  - Response: JSON bodies with the "irods_response" envelope and the
    mapping from backend errors to HTTP status codes

Request Flow:

 1. middleware.RequestID attaches X-Request-ID and a request-scoped logger
 2. NewRouter opens a Session bounded by the request timeout
 3. Endpoint.Dispatch selects the operation handler
 4. The handler resolves the caller and submits a Task to the Executor
 5. A worker runs the Task and sends its Response to the Session
 6. The serving goroutine writes the Response, or an empty 500 if the
    exchange timed out first

Error Mapping:

	Backend error code            400 + {"irods_response": {...}}
	Connection or pool failure    500 + {"irods_response": {...}}
	Failed authentication         401, empty body
	Invalid arguments             400, empty body
	Unhandled failure             500, empty body
*/
package api
