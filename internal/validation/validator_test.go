// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type userRequest struct {
	Name     string `param:"name" validate:"required,irodsname"`
	Zone     string `param:"zone" validate:"omitempty,irodsname"`
	UserType string `param:"user-type" validate:"omitempty,oneof=rodsuser rodsadmin groupadmin"`
	Count    int    `param:"count" validate:"min=1,max=15"`
}

type pathRequest struct {
	Path   string `param:"lpath" validate:"required,lpath"`
	Filter string `param:"query" validate:"excludesall='"`
	Note   string
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"user with zone", &userRequest{Name: "alice", Zone: "tempZone", UserType: "rodsuser", Count: 5}},
		{"user without optional fields", &userRequest{Name: "bob", Count: 15}},
		{"absolute path", &pathRequest{Path: "/tempZone/home/alice"}},
		{"path with filter", &pathRequest{Path: "/tempZone", Filter: "COLL_NAME like %home%"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() error = %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{"missing name", &userRequest{Count: 1}, "name", "required"},
		{"name with hash", &userRequest{Name: "alice#tempZone", Count: 1}, "name", "irodsname"},
		{"name with space", &userRequest{Name: "a b", Count: 1}, "name", "irodsname"},
		{"bad zone", &userRequest{Name: "alice", Zone: "temp/Zone", Count: 1}, "zone", "irodsname"},
		{"bad user type", &userRequest{Name: "alice", UserType: "superuser", Count: 1}, "user-type", "oneof"},
		{"count too low", &userRequest{Name: "alice", Count: 0}, "count", "min"},
		{"count too high", &userRequest{Name: "alice", Count: 16}, "count", "max"},
		{"relative path", &pathRequest{Path: "tempZone/home"}, "lpath", "lpath"},
		{"quote in filter", &pathRequest{Path: "/tempZone", Filter: "x' or '1'='1"}, "query", "excludesall"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() error = nil, want error")
			}

			found := false
			for _, e := range err.Errors() {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("ValidateStruct() errors = %v, want field %s tag %s", err.Errors(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestValidateStruct_FieldNameFallback(t *testing.T) {
	type noParam struct {
		Value string `validate:"required"`
	}

	err := ValidateStruct(&noParam{})
	if err == nil {
		t.Fatal("ValidateStruct() error = nil, want error")
	}
	if got := err.Errors()[0].Field(); got != "Value" {
		t.Errorf("Field() = %q, want Value", got)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{"required", &userRequest{Count: 1}, "name is required"},
		{"oneof", &userRequest{Name: "a", UserType: "x", Count: 1}, "user-type must be one of: rodsuser rodsadmin groupadmin"},
		{"numeric max", &userRequest{Name: "a", Count: 99}, "count must be at most 15"},
		{"lpath", &pathRequest{Path: "rel"}, "lpath must be an absolute logical path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	var ve RequestValidationError
	if got := ve.Error(); got != "validation failed" {
		t.Errorf("Error() = %q, want validation failed", got)
	}
}
