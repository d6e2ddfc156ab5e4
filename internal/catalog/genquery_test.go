// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package catalog

import (
	"reflect"
	"sort"
	"testing"

	"github.com/tomtom215/irods-gateway/internal/irods"
)

func TestParseGenQuery(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		paging bool
		want   *genQuery
	}{
		{
			name:  "single column",
			input: "select COLL_NAME",
			want:  &genQuery{selects: []selection{{column: "COLL_NAME"}}},
		},
		{
			name:  "keywords and columns are case insensitive",
			input: "SELECT coll_name, Data_Name WHERE data_size > 10",
			want: &genQuery{
				selects:    []selection{{column: "COLL_NAME"}, {column: "DATA_NAME"}},
				conditions: []condition{{column: "DATA_SIZE", any: []predicate{{op: ">", values: []string{"10"}}}}},
			},
		},
		{
			name:  "functions",
			input: "select COUNT(DATA_ID), order_asc(COLL_NAME), order_desc(DATA_SIZE)",
			want: &genQuery{selects: []selection{
				{column: "DATA_ID", fn: "count"},
				{column: "COLL_NAME", fn: "order"},
				{column: "DATA_SIZE", fn: "order_desc"},
			}},
		},
		{
			name:  "operators",
			input: "select DATA_NAME where DATA_NAME like '%.txt' and DATA_SIZE between '1' '9' and DATA_REPL_NUM == '0' and DATA_RESC_NAME not like 'x%'",
			want: &genQuery{
				selects: []selection{{column: "DATA_NAME"}},
				conditions: []condition{
					{column: "DATA_NAME", any: []predicate{{op: "like", values: []string{"%.txt"}}}},
					{column: "DATA_SIZE", any: []predicate{{op: "between", values: []string{"1", "9"}}}},
					{column: "DATA_REPL_NUM", any: []predicate{{op: "=", values: []string{"0"}}}},
					{column: "DATA_RESC_NAME", any: []predicate{{op: "not like", values: []string{"x%"}}}},
				},
			},
		},
		{
			name:  "in lists",
			input: "select USER_NAME where USER_TYPE in ('rodsuser', 'groupadmin') and USER_NAME not in ('rods')",
			want: &genQuery{
				selects: []selection{{column: "USER_NAME"}},
				conditions: []condition{
					{column: "USER_TYPE", any: []predicate{{op: "in", values: []string{"rodsuser", "groupadmin"}}}},
					{column: "USER_NAME", any: []predicate{{op: "not in", values: []string{"rods"}}}},
				},
			},
		},
		{
			name:  "alternatives",
			input: "select COLL_NAME where COLL_NAME = '/a' || = '/b' || like '/c%'",
			want: &genQuery{
				selects: []selection{{column: "COLL_NAME"}},
				conditions: []condition{{column: "COLL_NAME", any: []predicate{
					{op: "=", values: []string{"/a"}},
					{op: "=", values: []string{"/b"}},
					{op: "like", values: []string{"/c%"}},
				}}},
			},
		},
		{
			name:   "paging",
			input:  "select COLL_NAME limit 5 offset 10",
			paging: true,
			want:   &genQuery{selects: []selection{{column: "COLL_NAME"}}, limit: 5, offset: 10},
		},
		{
			name:  "string with spaces",
			input: "select DATA_NAME where DATA_NAME = 'my file.txt'",
			want: &genQuery{
				selects:    []selection{{column: "DATA_NAME"}},
				conditions: []condition{{column: "DATA_NAME", any: []predicate{{op: "=", values: []string{"my file.txt"}}}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGenQuery(tt.input, tt.paging)
			if err != nil {
				t.Fatalf("parseGenQuery() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseGenQuery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseGenQuery_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		paging bool
	}{
		{"empty", "", false},
		{"missing select", "COLL_NAME", false},
		{"unterminated string", "select DATA_NAME where DATA_NAME = 'x", false},
		{"unknown function", "select frobnicate(DATA_NAME)", false},
		{"missing value", "select DATA_NAME where DATA_NAME =", false},
		{"stray pipe", "select DATA_NAME where DATA_NAME = 'a' | = 'b'", false},
		{"bare bang", "select DATA_NAME where DATA_NAME ! 'a'", false},
		{"unclosed in", "select DATA_NAME where DATA_NAME in ('a', 'b'", false},
		{"limit without paging", "select DATA_NAME limit 5", false},
		{"non-numeric limit", "select DATA_NAME limit five", true},
		{"trailing garbage", "select DATA_NAME where DATA_NAME = 'a' DATA_SIZE", false},
		{"unexpected character", "select DATA_NAME; drop table users", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseGenQuery(tt.input, tt.paging)
			wantCode(t, err, irods.InputArgNotWellFormedErr)
		})
	}
}

func TestBuildSQL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     buildOptions
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "distinct with limit",
			input:   "select COLL_NAME where COLL_NAME like '/tempZone/home/%'",
			opts:    buildOptions{distinct: true, limit: 5},
			wantSQL: "SELECT DISTINCT CAST(c.coll_name AS VARCHAR) FROM collections c WHERE CAST(c.coll_name AS VARCHAR) LIKE ? ORDER BY 1 LIMIT 5",
			wantArgs: []any{"/tempZone/home/%"},
		},
		{
			name:  "aggregate groups by the other columns",
			input: "select COUNT(DATA_ID), COLL_NAME",
			wantSQL: "SELECT CAST(count(d.data_id) AS VARCHAR), CAST(c.coll_name AS VARCHAR) " +
				"FROM data_objects d JOIN collections c ON c.coll_id = d.coll_id GROUP BY 2 ORDER BY 2",
		},
		{
			name:     "numeric comparison binds integers",
			input:    "select DATA_NAME where DATA_SIZE > '100'",
			wantSQL:  "SELECT CAST(d.data_name AS VARCHAR) FROM data_objects d JOIN collections c ON c.coll_id = d.coll_id WHERE d.data_size > ? ORDER BY 1",
			wantArgs: []any{int64(100)},
		},
		{
			name:     "upper case where",
			input:    "select USER_NAME where USER_NAME = 'Alice'",
			opts:     buildOptions{upperCase: true, offset: 2},
			wantSQL:  "SELECT CAST(u.user_name AS VARCHAR) FROM users u WHERE upper(CAST(u.user_name AS VARCHAR)) = ? ORDER BY 1 OFFSET 2",
			wantArgs: []any{"ALICE"},
		},
		{
			name:     "alternatives and in",
			input:    "select ZONE_NAME where ZONE_NAME = 'a' || = 'b' and ZONE_TYPE in ('local', 'remote')",
			wantSQL:  "SELECT CAST(z.zone_name AS VARCHAR) FROM zones z WHERE (CAST(z.zone_name AS VARCHAR) = ? OR CAST(z.zone_name AS VARCHAR) = ?) AND CAST(z.zone_type AS VARCHAR) IN (?, ?) ORDER BY 1",
			wantArgs: []any{"a", "b", "local", "remote"},
		},
		{
			name:     "explicit order",
			input:    "select RESC_NAME, order_desc(RESC_ID) where RESC_ID between '1' '20000'",
			wantSQL:  "SELECT CAST(r.resc_name AS VARCHAR), CAST(r.resc_id AS VARCHAR) FROM resources r WHERE r.resc_id BETWEEN ? AND ? ORDER BY 2 DESC",
			wantArgs: []any{int64(1), int64(20000)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := parseGenQuery(tt.input, false)
			if err != nil {
				t.Fatalf("parseGenQuery() error = %v", err)
			}
			gotSQL, gotArgs, err := buildSQL(q, scope{}, tt.opts)
			if err != nil {
				t.Fatalf("buildSQL() error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Errorf("buildSQL() sql =\n%s\nwant\n%s", gotSQL, tt.wantSQL)
			}
			if len(gotArgs) != len(tt.wantArgs) || (len(gotArgs) > 0 && !reflect.DeepEqual(gotArgs, tt.wantArgs)) {
				t.Errorf("buildSQL() args = %#v, want %#v", gotArgs, tt.wantArgs)
			}
		})
	}
}

func TestBuildSQL_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode int
	}{
		{"unknown column", "select NOT_A_COLUMN", irods.InputArgNotWellFormedErr},
		{"unknown where column", "select DATA_NAME where BOGUS = 'x'", irods.InputArgNotWellFormedErr},
		{"unrelated tables", "select DATA_NAME, ZONE_NAME", irods.CatFailedToLinkTables},
		{"tickets and quotas", "select TICKET_STRING, QUOTA_LIMIT", irods.CatFailedToLinkTables},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := parseGenQuery(tt.input, false)
			if err != nil {
				t.Fatalf("parseGenQuery() error = %v", err)
			}
			_, _, err = buildSQL(q, scope{}, buildOptions{})
			wantCode(t, err, tt.wantCode)
		})
	}
}

func TestBuildSQL_RestrictedScope(t *testing.T) {
	sc := scope{
		restricted: true,
		user:       irods.User{Name: "alice", Zone: testZone},
		userID:     42,
		memberIDs:  []int64{42, 7},
	}

	q, err := parseGenQuery("select DATA_NAME", false)
	if err != nil {
		t.Fatalf("parseGenQuery() error = %v", err)
	}
	got, args, err := buildSQL(q, sc, buildOptions{})
	if err != nil {
		t.Fatalf("buildSQL() error = %v", err)
	}
	want := "SELECT CAST(d.data_name AS VARCHAR) FROM data_objects d JOIN collections c ON c.coll_id = d.coll_id " +
		"WHERE ((d.owner_name = ? AND d.owner_zone = ?) OR d.data_id IN (SELECT object_id FROM access WHERE user_id IN (42, 7))) ORDER BY 1"
	if got != want {
		t.Errorf("buildSQL() sql =\n%s\nwant\n%s", got, want)
	}
	if !reflect.DeepEqual(args, []any{"alice", testZone}) {
		t.Errorf("buildSQL() args = %#v", args)
	}

	q, _ = parseGenQuery("select TICKET_STRING", false)
	got, args, _ = buildSQL(q, sc, buildOptions{})
	if want := "SELECT CAST(t.ticket_string AS VARCHAR) FROM tickets t JOIN users tu ON tu.user_id = t.user_id WHERE t.user_id = ? ORDER BY 1"; got != want {
		t.Errorf("buildSQL() sql =\n%s\nwant\n%s", got, want)
	}
	if !reflect.DeepEqual(args, []any{int64(42)}) {
		t.Errorf("buildSQL() args = %#v", args)
	}

	q, _ = parseGenQuery("select ZONE_NAME", false)
	got, _, _ = buildSQL(q, sc, buildOptions{})
	if want := "SELECT CAST(z.zone_name AS VARCHAR) FROM zones z ORDER BY 1"; got != want {
		t.Errorf("zones are not scoped: got %s", got)
	}
}

func TestColumnNames(t *testing.T) {
	names := ColumnNames()
	if len(names) != len(columns) {
		t.Fatalf("ColumnNames() returned %d names, want %d", len(names), len(columns))
	}
	if !sort.StringsAreSorted(names) {
		t.Error("ColumnNames() is not sorted")
	}
}

func TestInlineArgs(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		args []any
		want string
	}{
		{"string", "a = ?", []any{"x"}, "a = 'x'"},
		{"integer", "n >= ?", []any{int64(100)}, "n >= 100"},
		{"escapes quotes", "a = ?", []any{"o'brien"}, "a = 'o''brien'"},
		{"list", "a IN (?, ?)", []any{"x", int64(2)}, "a IN ('x', 2)"},
		{"quoted mark untouched", "a = '?' AND b = ?", []any{"y"}, "a = '?' AND b = 'y'"},
		{"missing args", "a = ? AND b = ?", []any{"x"}, "a = 'x' AND b = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inlineArgs(tt.stmt, tt.args); got != tt.want {
				t.Errorf("inlineArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}
