// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package middleware provides HTTP middleware shared by every gateway route.

Key Components:

  - RequestID: assigns or propagates X-Request-ID and stores it for logging.Ctx
  - PrometheusMetrics: request count, latency and in-flight gauges labelled
    by chi route pattern
  - Compression: gzip for clients that accept it, skipping bodies that
    declare a Content-Length below a threshold

All three use the func(http.HandlerFunc) http.HandlerFunc shape; the api
package adapts them to chi's r.Use.

Middleware Stack:

	RequestID -> RealIP -> Recoverer -> CORS
	  base URL: RateLimit -> PrometheusMetrics -> BodyLimit -> Compression -> endpoint
*/
package middleware
