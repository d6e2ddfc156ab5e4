// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/auth"
	"github.com/tomtom215/irods-gateway/internal/catalog"
	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/stash"
)

const (
	testZone    = "tempZone"
	testBaseURL = "/irods-http-api/0.2.0"
	testMaxRows = 50
)

// testEnv is a gateway wired to an in-memory catalog.
type testEnv struct {
	router     http.Handler
	handlers   *Handlers
	identities *stash.Store[auth.ClientIdentity]
	catalog    *catalog.Catalog

	// rods is a bearer token for the proxy administrator.
	rods string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cat, err := catalog.Open(ctx, catalog.Config{
		Path:           ":memory:",
		Zone:           testZone,
		Host:           "localhost",
		ConnectionInfo: "localhost:1247",
		AdminUsername:  "rods",
		AdminPassword:  "rods",
	})
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	connector := irods.NewConnector(cat, irods.ConnectorConfig{
		Zone:          testZone,
		ProxyUsername: "rods",
		ProxyPassword: "rods",
	})
	pool, err := irods.NewPool(connector.ConnectAsProxy, irods.PoolConfig{Size: 2})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(pool.Close)
	acquirer := irods.NewPooledAcquirer(connector, pool)

	identities := stash.New[auth.ClientIdentity]()
	resolver := auth.NewResolver(identities, auth.ResolverConfig{Zone: testZone})
	login := auth.NewLogin(acquirer, identities, auth.LoginConfig{Zone: testZone, Lifetime: time.Hour})

	executor := api.NewExecutor(2, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = executor.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	handlers := New(Config{
		Zone:            testZone,
		Version:         "0.2.0",
		Build:           "test",
		MaxRowsPerQuery: testMaxRows,
		MaxBodyBytes:    1 << 20,
	}, Deps{
		Identities: resolver,
		Login:      login,
		Backend:    acquirer,
		Executor:   executor,
		Columns:    catalog.ColumnNames,
	})

	return &testEnv{
		router:     api.NewRouter(api.RouterConfig{BaseURL: testBaseURL, Timeout: 5 * time.Second}, handlers.Endpoints()...),
		handlers:   handlers,
		identities: identities,
		catalog:    cat,
		rods:       identities.Insert(auth.ClientIdentity{Username: "rods", Zone: testZone}),
	}
}

// tokenFor stores an identity for user without a backend login.
func (e *testEnv) tokenFor(user string) string {
	return e.identities.Insert(auth.ClientIdentity{Username: user, Zone: testZone, ExpiresAt: time.Now().Add(time.Hour)})
}

func (e *testEnv) get(t *testing.T, path, token string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, testBaseURL+path+"?"+query.Encode(), nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) post(t *testing.T, path, token string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, testBaseURL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// mustPost posts as rods and fails unless the backend reports success.
func (e *testEnv) mustPost(t *testing.T, path string, form url.Values) {
	t.Helper()
	w := e.post(t, path, e.rods, form)
	if w.Code != http.StatusOK {
		t.Fatalf("POST %s %v status = %d, body = %s", path, form, w.Code, w.Body.String())
	}
	if code := errorCode(t, w); code != 0 {
		t.Fatalf("POST %s %v error_code = %d, body = %s", path, form, code, w.Body.String())
	}
}

// login exchanges basic credentials for a token through the endpoint.
func (e *testEnv) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, testBaseURL+"/authenticate", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(username+":"+password)))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return doc
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	status, ok := decode(t, w)["irods_response"].(map[string]any)
	if !ok {
		t.Fatalf("body %s has no irods_response", w.Body.String())
	}
	code, _ := status["error_code"].(float64)
	return int(code)
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, want, w.Body.String())
	}
}

func wantEmpty(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func values(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}
