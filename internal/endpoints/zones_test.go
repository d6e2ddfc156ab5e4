// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"net/http"
	"testing"
)

func statZone(t *testing.T, env *testEnv, name string) (bool, map[string]any) {
	t.Helper()
	w := env.get(t, "/zones", env.rods, values("op", "stat", "name", name))
	wantStatus(t, w, http.StatusOK)
	doc := decode(t, w)
	info, ok := doc["info"].(map[string]any)
	if !ok {
		t.Fatalf("info = %v, want object", doc["info"])
	}
	exists, _ := doc["exists"].(bool)
	return exists, info
}

func TestZones_StatLocal(t *testing.T) {
	env := newTestEnv(t)

	exists, info := statZone(t, env, testZone)
	if !exists {
		t.Fatal("exists = false, want true")
	}
	if info["name"] != testZone || info["type"] != "local" || info["connection_info"] != "localhost:1247" {
		t.Errorf("info = %v", info)
	}
	if _, ok := info["id"].(float64); !ok {
		t.Errorf("id = %v, want number", info["id"])
	}

	exists, info = statZone(t, env, "otherZone")
	if exists || len(info) != 0 {
		t.Errorf("stat otherZone = %v %v, want false {}", exists, info)
	}
}

func TestZones_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	env.mustPost(t, "/zones", values("op", "add", "name", "otherZone", "connection-info", "other.example.org:1247", "comment", "partner"))

	exists, info := statZone(t, env, "otherZone")
	if !exists || info["type"] != "remote" || info["comment"] != "partner" || info["connection_info"] != "other.example.org:1247" {
		t.Fatalf("after add: exists = %v, info = %v", exists, info)
	}

	env.mustPost(t, "/zones", values("op", "modify", "name", "otherZone", "property", "comment", "value", "renamed partner"))
	if _, info := statZone(t, env, "otherZone"); info["comment"] != "renamed partner" {
		t.Errorf("after modify: comment = %v", info["comment"])
	}

	w := env.get(t, "/zones", env.rods, values("op", "report"))
	wantStatus(t, w, http.StatusOK)
	report, _ := decode(t, w)["zone_report"].(map[string]any)
	if zones, _ := report["zones"].([]any); len(zones) != 2 {
		t.Errorf("zone_report zones = %v, want 2", report["zones"])
	}

	env.mustPost(t, "/zones", values("op", "remove", "name", "otherZone"))
	if exists, _ := statZone(t, env, "otherZone"); exists {
		t.Error("zone still exists after remove")
	}
}

func TestZones_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"add without name", []string{"op", "add"}},
		{"modify unknown property", []string{"op", "modify", "name", "z", "property", "zone_type", "value", "local"}},
		{"modify without value", []string{"op", "modify", "name", "z", "property", "comment"}},
		{"name with quote", []string{"op", "remove", "name", "z'x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.post(t, "/zones", env.rods, values(tt.args...))
			wantStatus(t, w, http.StatusBadRequest)
			wantEmpty(t, w)
		})
	}
}
