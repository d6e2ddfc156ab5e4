// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"errors"
	"net/http"
	"testing"

	"github.com/tomtom215/irods-gateway/internal/api"
)

type saturatedRunner struct{}

func (saturatedRunner) Submit(*api.Session, api.Task) error {
	return api.ErrExecutorSaturated
}

func TestEndpoints_Paths(t *testing.T) {
	h := New(Config{Zone: testZone}, Deps{})

	want := map[string]bool{
		"/authenticate": true,
		"/info":         true,
		"/query":        true,
		"/quotas":       true,
		"/tickets":      true,
		"/users-groups": true,
		"/zones":        true,
	}
	eps := h.Endpoints()
	if len(eps) != len(want) {
		t.Fatalf("Endpoints() returned %d endpoints, want %d", len(eps), len(want))
	}
	for _, ep := range eps {
		if !want[ep.Path] {
			t.Errorf("unexpected endpoint %s", ep.Path)
		}
		if ep.Name == "" {
			t.Errorf("endpoint %s has no name", ep.Path)
		}
	}
}

func TestNew_ClampsMaxRows(t *testing.T) {
	if h := New(Config{MaxRowsPerQuery: 0}, Deps{}); h.cfg.MaxRowsPerQuery != 1 {
		t.Errorf("MaxRowsPerQuery = %d, want 1", h.cfg.MaxRowsPerQuery)
	}
}

func TestSaturatedExecutor(t *testing.T) {
	env := newTestEnv(t)
	env.handlers.deps.Executor = saturatedRunner{}

	w := env.get(t, "/query", env.rods, values("op", "execute_genquery", "query", "select COLL_NAME"))
	wantStatus(t, w, http.StatusServiceUnavailable)
	wantEmpty(t, w)

	if !errors.Is(saturatedRunner{}.Submit(nil, nil), api.ErrExecutorSaturated) {
		t.Error("Submit() error is not ErrExecutorSaturated")
	}
}
