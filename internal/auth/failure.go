// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"net/http"
	"strconv"
)

// Failure is a complete HTTP response for a request whose identity could not
// be resolved. Callers forward it as is.
type Failure struct {
	Status int
	Header http.Header
	Body   []byte
}

func (f *Failure) Error() string {
	return "identity resolution failed: " + strconv.Itoa(f.Status) + " " + http.StatusText(f.Status)
}

func badRequest() *Failure {
	return &Failure{Status: http.StatusBadRequest, Header: http.Header{}}
}

func unauthorized() *Failure {
	h := http.Header{}
	h.Set("WWW-Authenticate", "Bearer")
	return &Failure{Status: http.StatusUnauthorized, Header: h}
}
