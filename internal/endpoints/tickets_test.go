// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func ticketRows(t *testing.T, env *testEnv, columns string) [][]any {
	t.Helper()
	w := env.get(t, "/query", env.rods, values("op", "execute_genquery", "query", "select "+columns))
	wantStatus(t, w, http.StatusOK)
	return rowsOf(t, decode(t, w))
}

func TestTickets_Create(t *testing.T) {
	env := newTestEnv(t)
	now := time.Unix(1_700_000_000, 0)
	env.handlers.now = func() time.Time { return now }

	w := env.post(t, "/tickets", env.rods, values(
		"op", "create",
		"lpath", "/tempZone/home/rods",
		"type", "write",
		"use-count", "3",
		"write-byte-count", "1024",
		"seconds-until-expiration", "60",
		"hosts", "10.0.0.1, 10.0.0.2",
	))
	wantStatus(t, w, http.StatusOK)
	ticket, _ := decode(t, w)["ticket"].(string)
	if ticket == "" {
		t.Fatalf("body = %s, want ticket", w.Body.String())
	}

	rows := ticketRows(t, env, "TICKET_STRING, TICKET_TYPE, TICKET_USES_LIMIT, TICKET_WRITE_FILE_LIMIT, TICKET_WRITE_BYTE_LIMIT")
	if len(rows) != 1 {
		t.Fatalf("tickets = %v, want one", rows)
	}
	want := []any{ticket, "write", "3", "0", "1024"}
	for i, v := range want {
		if rows[0][i] != v {
			t.Errorf("column %d = %v, want %v", i, rows[0][i], v)
		}
	}

	expiry := ticketRows(t, env, "TICKET_EXPIRY_TS")
	if want := fmt.Sprintf("%011d", now.Unix()+60); len(expiry) != 1 || expiry[0][0] != want {
		t.Errorf("expiry = %v, want %s", expiry, want)
	}

	env.mustPost(t, "/tickets", values("op", "remove", "name", ticket))
	if rows := ticketRows(t, env, "TICKET_STRING"); len(rows) != 0 {
		t.Errorf("tickets after remove = %v, want none", rows)
	}
}

func TestTickets_FailedRestrictionDeletesTicket(t *testing.T) {
	env := newTestEnv(t)

	w := env.post(t, "/tickets", env.rods, values(
		"op", "create",
		"lpath", "/tempZone/home/rods",
		"users", "nobody",
	))
	wantStatus(t, w, http.StatusBadRequest)
	if code := errorCode(t, w); code >= 0 {
		t.Errorf("error_code = %d, want negative", code)
	}

	if rows := ticketRows(t, env, "TICKET_STRING"); len(rows) != 0 {
		t.Errorf("tickets = %v, want partially configured ticket deleted", rows)
	}
}

func TestTickets_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing lpath", []string{"op", "create"}},
		{"relative lpath", []string{"op", "create", "lpath", "home/rods"}},
		{"bad type", []string{"op", "create", "lpath", "/tempZone/home/rods", "type", "admin"}},
		{"bad use-count", []string{"op", "create", "lpath", "/tempZone/home/rods", "use-count", "many"}},
		{"negative write count", []string{"op", "create", "lpath", "/tempZone/home/rods", "write-data-object-count", "-1"}},
		{"zero expiration", []string{"op", "create", "lpath", "/tempZone/home/rods", "seconds-until-expiration", "0"}},
		{"remove without name", []string{"op", "remove"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.post(t, "/tickets", env.rods, values(tt.args...))
			wantStatus(t, w, http.StatusBadRequest)
			wantEmpty(t, w)
		})
	}

	if rows := ticketRows(t, env, "TICKET_STRING"); len(rows) != 0 {
		t.Errorf("tickets = %v, want none created by rejected requests", rows)
	}
}

func TestTickets_NotImplemented(t *testing.T) {
	env := newTestEnv(t)

	for _, op := range []string{"list", "stat"} {
		t.Run(op, func(t *testing.T) {
			w := env.get(t, "/tickets", env.rods, values("op", op))
			wantStatus(t, w, http.StatusNotImplemented)
			wantEmpty(t, w)
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a,b", 2},
		{" a , ,b ,", 2},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); len(got) != tt.want {
			t.Errorf("splitList(%q) = %v, want %d items", tt.in, got, tt.want)
		}
	}
}
