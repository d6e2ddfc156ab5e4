// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package api

import "errors"

// Request decoding errors
var (
	// ErrUnsupportedContentType indicates a POST body that is neither
	// multipart form data nor urlencoded
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrMissingBoundary indicates a multipart content type without a boundary
	ErrMissingBoundary = errors.New("multipart body without boundary")

	// ErrMalformedBody indicates a body that could not be read or parsed
	ErrMalformedBody = errors.New("malformed request body")
)

// ErrExecutorSaturated is returned by Executor.Submit when the queue stayed
// full until the request ended.
var ErrExecutorSaturated = errors.New("executor queue full")
