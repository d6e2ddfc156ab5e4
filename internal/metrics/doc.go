// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

/*
Package metrics provides Prometheus metrics for the gateway.

Metrics are registered with the default registry through promauto and are
exposed at /metrics in Prometheus text format:

	curl http://localhost:9000/metrics

# Available Metrics

HTTP:
  - irods_http_api_requests_total{method,endpoint,status}
  - irods_http_api_request_duration_seconds{method,endpoint}
  - irods_http_api_active_requests
  - irods_http_api_operations_total{endpoint,op,outcome}

Background execution:
  - irods_http_api_executor_queue_depth
  - irods_http_api_executor_busy_workers
  - irods_http_api_executor_tasks_total{outcome}

Backend connections:
  - irods_connection_pool_checkouts_total
  - irods_connection_pool_discards_total{reason}
  - irods_connection_pool_in_use / irods_connection_pool_idle
  - irods_backend_dials_total{mode,outcome}
  - irods_identity_switches_total{outcome}

Identity:
  - irods_http_api_identity_resolutions_total{source}
  - irods_http_api_stash_entries
  - irods_http_api_stash_evictions_total

Resilience:
  - circuit_breaker_state{name}
  - circuit_breaker_transitions_total{name,from,to}
*/
package metrics
