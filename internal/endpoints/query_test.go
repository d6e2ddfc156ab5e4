// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/irods-gateway/internal/auth"
	"github.com/tomtom215/irods-gateway/internal/irods"
)

func rowsOf(t *testing.T, doc map[string]any) [][]any {
	t.Helper()
	raw, ok := doc["rows"].([]any)
	if !ok {
		t.Fatalf("rows = %v, want array", doc["rows"])
	}
	rows := make([][]any, len(raw))
	for i, r := range raw {
		rows[i], _ = r.([]any)
	}
	return rows
}

func TestExecuteGenQuery_ValidToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor("rods")

	w := env.get(t, "/query", token, values("op", "execute_genquery", "query", "select COLL_NAME", "count", "5"))
	wantStatus(t, w, http.StatusOK)

	if !strings.Contains(w.Body.String(), `"irods_response":{"error_code":0}`) {
		t.Errorf("body = %s, want success envelope", w.Body.String())
	}
	if rows := rowsOf(t, decode(t, w)); len(rows) == 0 || len(rows) > 5 {
		t.Errorf("got %d rows, want 1..5", len(rows))
	}
}

func TestExecuteGenQuery_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.identities.Insert(auth.ClientIdentity{
		Username:  "rods",
		Zone:      testZone,
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	w := env.get(t, "/query", token, values("op", "execute_genquery", "query", "select COLL_NAME"))
	wantStatus(t, w, http.StatusUnauthorized)
	wantEmpty(t, w)

	if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want Bearer", got)
	}
	if _, ok := env.identities.Find(token); ok {
		t.Error("expired identity still in the handle store")
	}
}

func TestExecuteGenQuery_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		token string
		args  []string
		want  int
	}{
		{"missing token", "", []string{"query", "select COLL_NAME"}, http.StatusBadRequest},
		{"unknown token", "nope", []string{"query", "select COLL_NAME"}, http.StatusUnauthorized},
		{"missing query", env.rods, nil, http.StatusBadRequest},
		{"unknown parser", env.rods, []string{"query", "select COLL_NAME", "parser", "sql"}, http.StatusBadRequest},
		{"bad offset", env.rods, []string{"query", "select COLL_NAME", "offset", "x"}, http.StatusBadRequest},
		{"bad count", env.rods, []string{"query", "select COLL_NAME", "count", "1.5"}, http.StatusBadRequest},
		{"bad case-sensitive", env.rods, []string{"query", "select COLL_NAME", "case-sensitive", "2"}, http.StatusBadRequest},
		{"bad distinct", env.rods, []string{"query", "select COLL_NAME", "distinct", "yes"}, http.StatusBadRequest},
		{"bad sql-only", env.rods, []string{"query", "select COLL_NAME", "parser", "genquery2", "sql-only", "2"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(t, "/query", tt.token, values(append([]string{"op", "execute_genquery"}, tt.args...)...))
			wantStatus(t, w, tt.want)
			wantEmpty(t, w)
		})
	}
}

func TestExecuteGenQuery_Options(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		args     []string
		wantRows int
	}{
		{"all collections", []string{"query", "select COLL_NAME"}, 6},
		{"count clamps to one", []string{"query", "select COLL_NAME", "count", "0"}, 1},
		{"offset", []string{"query", "select COLL_NAME", "offset", "4"}, 2},
		{"negative offset", []string{"query", "select COLL_NAME", "offset", "-3"}, 6},
		{"case insensitive", []string{"query", "select COLL_NAME where COLL_NAME = '/TEMPZONE/HOME'", "case-sensitive", "0"}, 1},
		{"case sensitive miss", []string{"query", "select COLL_NAME where COLL_NAME = '/TEMPZONE/HOME'"}, 0},
		{"not distinct", []string{"query", "select COLL_OWNER_NAME", "distinct", "0"}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(t, "/query", env.rods, values(append([]string{"op", "execute_genquery"}, tt.args...)...))
			wantStatus(t, w, http.StatusOK)
			if got := len(rowsOf(t, decode(t, w))); got != tt.wantRows {
				t.Errorf("got %d rows, want %d (body %s)", got, tt.wantRows, w.Body.String())
			}
		})
	}
}

func TestExecuteGenQuery_BackendError(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/query", env.rods, values("op", "execute_genquery", "query", "select NOT_A_COLUMN"))
	wantStatus(t, w, http.StatusBadRequest)
	if code := errorCode(t, w); code >= 0 {
		t.Errorf("error_code = %d, want negative", code)
	}
}

func TestExecuteGenQuery2(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/query", env.rods, values("op", "execute_genquery", "parser", "genquery2", "query", "select COLL_NAME where COLL_NAME = '/tempZone'"))
	wantStatus(t, w, http.StatusOK)
	rows := rowsOf(t, decode(t, w))
	if len(rows) != 1 || len(rows[0]) != 1 || rows[0][0] != "/tempZone" {
		t.Errorf("rows = %v, want [[/tempZone]]", rows)
	}

	w = env.get(t, "/query", env.rods, values("op", "execute_genquery", "parser", "genquery2", "sql-only", "1", "query", "select COLL_NAME"))
	wantStatus(t, w, http.StatusOK)
	if sql, _ := decode(t, w)["sql"].(string); !strings.Contains(strings.ToUpper(sql), "SELECT") {
		t.Errorf("sql = %q, want generated SQL", sql)
	}
}

func TestSpecificQueries(t *testing.T) {
	env := newTestEnv(t)

	env.mustPost(t, "/query", values("op", "add_specific_query",
		"name", "zonesByType", "sql", "SELECT zone_name FROM zones WHERE zone_type = ?"))

	w := env.get(t, "/query", env.rods, values("op", "execute_specific_query", "name", "zonesByType", "args", "local"))
	wantStatus(t, w, http.StatusOK)
	rows := rowsOf(t, decode(t, w))
	if len(rows) != 1 || rows[0][0] != testZone {
		t.Errorf("rows = %v, want [[%s]]", rows, testZone)
	}

	w = env.get(t, "/query", env.rods, values("op", "list_specific_queries"))
	wantStatus(t, w, http.StatusOK)
	found := false
	queries, _ := decode(t, w)["specific_queries"].([]any)
	for _, q := range queries {
		if m, _ := q.(map[string]any); m["name"] == "zonesByType" {
			found = true
		}
	}
	if !found {
		t.Errorf("specific_queries = %v, want zonesByType listed", queries)
	}

	env.mustPost(t, "/query", values("op", "remove_specific_query", "name", "zonesByType"))

	w = env.get(t, "/query", env.rods, values("op", "execute_specific_query", "name", "zonesByType", "args", "local"))
	wantStatus(t, w, http.StatusBadRequest)
	if code := errorCode(t, w); code != irods.CatUnknownSpecificQuery {
		t.Errorf("error_code = %d, want %d", code, irods.CatUnknownSpecificQuery)
	}
}

func TestSpecificQueries_RequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.mustPost(t, "/users-groups", values("op", "create_user", "name", "alice", "zone", testZone))

	w := env.post(t, "/query", env.tokenFor("alice"), values("op", "add_specific_query", "name", "q", "sql", "SELECT 1"))
	wantStatus(t, w, http.StatusBadRequest)
	if code := errorCode(t, w); code != irods.CatInsufficientPrivilege {
		t.Errorf("error_code = %d, want %d", code, irods.CatInsufficientPrivilege)
	}
}

func TestExecuteSpecificQuery_Delimiter(t *testing.T) {
	env := newTestEnv(t)
	env.mustPost(t, "/query", values("op", "add_specific_query",
		"name", "zoneNamed", "sql", "SELECT zone_name FROM zones WHERE zone_name = ? AND zone_type = ?"))

	w := env.get(t, "/query", env.rods, values("op", "execute_specific_query",
		"name", "zoneNamed", "args", testZone+"|local", "args-delimiter", "|"))
	wantStatus(t, w, http.StatusOK)
	if rows := rowsOf(t, decode(t, w)); len(rows) != 1 {
		t.Errorf("rows = %v, want one row", rows)
	}
}

func TestListGenQueryColumns(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/query", env.rods, values("op", "list_genquery_columns"))
	wantStatus(t, w, http.StatusOK)

	columns, _ := decode(t, w)["columns"].([]any)
	found := false
	for _, c := range columns {
		if c == "COLL_NAME" {
			found = true
		}
	}
	if !found {
		t.Errorf("columns = %v, want COLL_NAME", columns)
	}

	env.handlers.deps.Columns = nil
	w = env.get(t, "/query", env.rods, values("op", "list_genquery_columns"))
	wantStatus(t, w, http.StatusNotImplemented)
}
