// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package api

import (
	"net/http"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
)

// OperationHandler serves one operation of an endpoint. It must eventually
// call sess.Send, either inline or from a task submitted to the executor.
type OperationHandler func(sess *Session, r *http.Request, args Args)

// OperationTable maps "op" values to handlers.
type OperationTable map[string]OperationHandler

// Endpoint is one URL under the base path. Requests are dispatched on the
// "op" argument through Get and Post, unless Handle is set, in which case
// Handle serves every request itself.
type Endpoint struct {
	// Name labels metrics and logs, e.g. "query".
	Name string

	// Path is relative to the base URL, e.g. "/query".
	Path string

	Get  OperationTable
	Post OperationTable

	Handle func(sess *Session, r *http.Request)
}

// Dispatch routes r to the matching operation of get or post.
func Dispatch(sess *Session, r *http.Request, get, post OperationTable) {
	Endpoint{Get: get, Post: post}.Dispatch(sess, r)
}

// Dispatch routes r to the matching operation.
//
// GET reads arguments from the query string. POST reads them from a
// multipart/form-data or application/x-www-form-urlencoded body. A verb
// with an empty table, or any other verb, is rejected with 405. A missing
// or unknown "op", an undecodable body or an unsupported content type is
// rejected with 400.
func (e Endpoint) Dispatch(sess *Session, r *http.Request) {
	ctx := sess.Context()
	log := logging.Ctx(ctx)

	var (
		table OperationTable
		args  Args
	)

	switch r.Method {
	case http.MethodGet:
		if len(e.Get) == 0 {
			e.reject(sess, r, "method_not_allowed", http.StatusMethodNotAllowed)
			return
		}
		table = e.Get
		args = ParseQuery(r.URL.RawQuery)

	case http.MethodPost:
		if len(e.Post) == 0 {
			e.reject(sess, r, "method_not_allowed", http.StatusMethodNotAllowed)
			return
		}
		table = e.Post
		decoded, err := DecodeBody(r)
		if err != nil {
			log.Error().Err(err).Str("endpoint", e.Name).Msg("Could not decode request body")
			e.reject(sess, r, "bad_body", http.StatusBadRequest)
			return
		}
		args = decoded

	default:
		e.reject(sess, r, "method_not_allowed", http.StatusMethodNotAllowed)
		return
	}

	op, ok := args["op"]
	if !ok {
		log.Error().Str("endpoint", e.Name).Msg("Missing [op] parameter")
		e.reject(sess, r, "missing_op", http.StatusBadRequest)
		return
	}

	handler, ok := table[op]
	if !ok {
		log.Error().Str("endpoint", e.Name).Str("op", op).Msg("Operation not supported")
		e.reject(sess, r, "unknown_op", http.StatusBadRequest)
		return
	}

	metrics.RecordDispatch(e.Name, op, "matched")
	log.Trace().Str("endpoint", e.Name).Str("op", op).Msg("Dispatching operation")
	handler(sess, r, args)
}

// reject answers with an empty body. Unknown op names are not used as
// metric labels.
func (e Endpoint) reject(sess *Session, r *http.Request, outcome string, status int) {
	if status == http.StatusMethodNotAllowed {
		logging.Ctx(sess.Context()).Error().Str("endpoint", e.Name).Str("method", r.Method).Msg("HTTP method not supported")
	}
	metrics.RecordDispatch(e.Name, "", outcome)
	sess.Send(Fail(status))
}
