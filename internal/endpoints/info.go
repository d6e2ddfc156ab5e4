// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"net/http"

	"github.com/tomtom215/irods-gateway/internal/api"
)

type serverInfo struct {
	APIVersion           string `json:"api_version"`
	Build                string `json:"build"`
	Zone                 string `json:"irods_zone"`
	MaxRowsPerQuery      int    `json:"max_number_of_rows_per_catalog_query"`
	MaxRequestBodyBytes  int64  `json:"max_size_of_request_body_in_bytes"`
	OpenIDConnectEnabled bool   `json:"openid_connect_enabled"`
}

func (h *Handlers) informationEndpoint() api.Endpoint {
	return api.Endpoint{
		Name:   "information",
		Path:   "/info",
		Handle: h.handleInfo,
	}
}

// handleInfo describes the gateway. It needs no credentials.
func (h *Handlers) handleInfo(sess *api.Session, r *http.Request) {
	if r.Method != http.MethodGet {
		sess.Send(api.Fail(http.StatusMethodNotAllowed))
		return
	}

	oidc := false
	if h.deps.Identities != nil {
		oidc = h.deps.Identities.OIDCEnabled()
	}

	sess.Send(api.JSON(http.StatusOK, serverInfo{
		APIVersion:           h.cfg.Version,
		Build:                h.cfg.Build,
		Zone:                 h.cfg.Zone,
		MaxRowsPerQuery:      h.cfg.MaxRowsPerQuery,
		MaxRequestBodyBytes:  h.cfg.MaxBodyBytes,
		OpenIDConnectEnabled: oidc,
	}))
}
