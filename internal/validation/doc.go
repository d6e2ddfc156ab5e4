// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

// Package validation provides struct validation using go-playground/validator v10.
//
// Endpoint handlers decode operation arguments into request structs and
// validate them here before any backend work is queued. Failures carry the
// request parameter name taken from the `param` struct tag, so log lines
// name the argument the client actually sent.
//
// # Custom Tags
//
//   - lpath: absolute logical path
//   - irodsname: user, group or zone name
//
// # Example
//
//	type statRequest struct {
//	    Name string `param:"name" validate:"required,irodsname"`
//	    Zone string `param:"zone" validate:"omitempty,irodsname"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    sess.Send(api.Fail(http.StatusBadRequest))
//	    return
//	}
package validation
