// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/auth"
	"github.com/tomtom215/irods-gateway/internal/logging"
)

func (h *Handlers) authenticationEndpoint() api.Endpoint {
	return api.Endpoint{
		Name:   "authentication",
		Path:   "/authenticate",
		Handle: h.handleAuthenticate,
	}
}

// handleAuthenticate exchanges HTTP basic credentials for a bearer token.
// The token is returned as text/plain.
func (h *Handlers) handleAuthenticate(sess *api.Session, r *http.Request) {
	log := logging.Ctx(sess.Context())

	if r.Method != http.MethodPost {
		log.Error().Str("method", r.Method).Msg("HTTP method not supported")
		sess.Send(api.Fail(http.StatusMethodNotAllowed))
		return
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		log.Error().Msg("Missing Authorization header")
		sess.Send(api.Fail(http.StatusBadRequest))
		return
	}

	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		log.Error().Msg("Authentication scheme not supported")
		sess.Send(api.Fail(http.StatusBadRequest))
		return
	}

	username, password := decodeBasic(strings.TrimSpace(encoded))
	remote := r.RemoteAddr

	err := h.deps.Executor.Submit(sess, func(ctx context.Context) api.Response {
		token, err := h.deps.Login.Login(ctx, username, password)
		switch {
		case err == nil:
			logging.LogLoginSuccess(ctx, username, remote, token)
			return api.Text(http.StatusOK, token)
		case errors.Is(err, auth.ErrInvalidCredentials):
			logging.LogLoginFailure(ctx, username, remote, err.Error())
			return api.Fail(http.StatusUnauthorized)
		default:
			logging.LogLoginFailure(ctx, username, remote, "backend failure")
			logging.Ctx(ctx).Error().Err(err).Msg("Could not verify credentials")
			return api.Fail(http.StatusInternalServerError)
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("Could not queue login")
		sess.Send(api.Fail(http.StatusServiceUnavailable))
	}
}

// decodeBasic splits base64 "user:password" at the first colon. Anything
// undecodable yields empty credentials, which Login rejects.
func decodeBasic(encoded string) (username, password string) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ""
	}
	username, password, _ = strings.Cut(string(raw), ":")
	return username, password
}
