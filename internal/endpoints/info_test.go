// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInfo(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/info", "", nil)
	wantStatus(t, w, http.StatusOK)

	doc := decode(t, w)
	want := map[string]any{
		"api_version":                          "0.2.0",
		"build":                                "test",
		"irods_zone":                           testZone,
		"max_number_of_rows_per_catalog_query": float64(testMaxRows),
		"max_size_of_request_body_in_bytes":    float64(1 << 20),
		"openid_connect_enabled":               false,
	}
	for k, v := range want {
		if doc[k] != v {
			t.Errorf("%s = %v, want %v", k, doc[k], v)
		}
	}
}

func TestInfo_RejectsPost(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, testBaseURL+"/info", nil))

	wantStatus(t, w, http.StatusMethodNotAllowed)
	wantEmpty(t, w)
}
