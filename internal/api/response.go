// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
)

// ServerName is sent in the Server header of every response.
const ServerName = "irods-http-api"

// Response is a complete HTTP response built off the serving goroutine and
// handed to a Session for writing.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Status is the "irods_response" object of every JSON body.
type Status struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Envelope is embedded in JSON response documents to render the
// "irods_response" member. The zero value reports success.
type Envelope struct {
	IRODSResponse Status `json:"irods_response"`
}

// Fail returns a response with the given status and an empty body.
func Fail(status int) Response {
	return Response{Status: status}
}

// JSON renders v as the response body. A value that cannot be encoded
// yields an empty 500.
func JSON(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
		return Fail(http.StatusInternalServerError)
	}
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return Response{Status: status, Header: h, Body: body}
}

// Text returns a text/plain response.
func Text(status int, s string) Response {
	h := make(http.Header)
	h.Set("Content-Type", "text/plain")
	return Response{Status: status, Header: h, Body: []byte(s)}
}

// OK returns a 200 response carrying only a successful envelope.
func OK() Response {
	return JSON(http.StatusOK, Envelope{})
}

// BackendFailure renders a backend error code and message in the envelope.
func BackendFailure(status, code int, message string) Response {
	return JSON(status, Envelope{IRODSResponse: Status{ErrorCode: code, ErrorMessage: message}})
}

// FromError converts the error of a backend task into a response.
//
// Failures of the connection itself (dial, login, identity switch, broken
// transport, closed pool) become 500 with the envelope. Other backend
// errors are attributed to the request and become 400 with the envelope.
// Anything else is an unhandled failure: an empty 500.
func FromError(ctx context.Context, err error) Response {
	if err == nil {
		return OK()
	}

	if irods.IsConnectionError(err) || errors.Is(err, irods.ErrPoolClosed) {
		logging.Ctx(ctx).Error().Err(err).Msg("Backend connection failure")
		if e, ok := irods.AsError(err); ok {
			return BackendFailure(http.StatusInternalServerError, e.Code, e.Message)
		}
		return BackendFailure(http.StatusInternalServerError, irods.SysInternalErr, "backend connection failure")
	}

	if e, ok := irods.AsError(err); ok {
		logging.Ctx(ctx).Debug().Int("error_code", e.Code).Str("error_message", e.Message).Msg("Backend rejected operation")
		return BackendFailure(http.StatusBadRequest, e.Code, e.Message)
	}

	logging.Ctx(ctx).Error().Err(err).Msg("Unhandled failure")
	return Fail(http.StatusInternalServerError)
}

// Write sends the response to w.
func (resp Response) Write(w http.ResponseWriter) {
	h := w.Header()
	for k, v := range resp.Header {
		h[k] = v
	}
	h.Set("Server", ServerName)
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			logging.Debug().Err(err).Msg("Failed to write response body")
		}
	}
}
