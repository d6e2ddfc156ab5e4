// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/auth"
	"github.com/tomtom215/irods-gateway/internal/irods"
)

type genQueryRequest struct {
	Query  string `param:"query" validate:"required"`
	Parser string `param:"parser" validate:"oneof=genquery1 genquery2"`
	Zone   string `param:"zone" validate:"omitempty,irodsname"`
}

type specificQueryRequest struct {
	Name      string `param:"name" validate:"required"`
	Delimiter string `param:"args-delimiter" validate:"required"`
}

type specificQueryDefinition struct {
	Name string `param:"name" validate:"required"`
	SQL  string `param:"sql" validate:"required"`
}

type rowsResponse struct {
	api.Envelope
	Rows [][]string `json:"rows"`
}

type rawRowsResponse struct {
	api.Envelope
	Rows json.RawMessage `json:"rows"`
}

type sqlResponse struct {
	api.Envelope
	SQL string `json:"sql"`
}

type columnsResponse struct {
	api.Envelope
	Columns []string `json:"columns"`
}

type specificQueryInfo struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

type specificQueriesResponse struct {
	api.Envelope
	Queries []specificQueryInfo `json:"specific_queries"`
}

func (h *Handlers) queryEndpoint() api.Endpoint {
	return api.Endpoint{
		Name: "query",
		Path: "/query",
		Get: api.OperationTable{
			"execute_genquery":       h.executeGenQuery,
			"execute_specific_query": h.executeSpecificQuery,
			"list_genquery_columns":  h.listGenQueryColumns,
			"list_specific_queries":  h.listSpecificQueries,
		},
		Post: api.OperationTable{
			"add_specific_query":    h.addSpecificQuery,
			"remove_specific_query": h.removeSpecificQuery,
		},
	}
}

// window reads offset and count. Count defaults to the configured maximum
// and is clamped into [1, max].
func (h *Handlers) window(sess *api.Session, args api.Args) (offset, count int, ok bool) {
	offset, err := args.Int("offset", 0)
	if err != nil {
		rejectArgument(sess, "offset", err)
		return 0, 0, false
	}
	count, err = args.Int("count", h.cfg.MaxRowsPerQuery)
	if err != nil {
		rejectArgument(sess, "count", err)
		return 0, 0, false
	}
	return max(offset, 0), min(max(count, 1), h.cfg.MaxRowsPerQuery), true
}

// flag reads an argument that must be "0" or "1".
func flag(sess *api.Session, args api.Args, name string, def bool) (bool, bool) {
	v, ok := args[name]
	if !ok {
		return def, true
	}
	switch v {
	case "1":
		return true, true
	case "0":
		return false, true
	default:
		rejectArgument(sess, name, nil)
		return false, false
	}
}

func (h *Handlers) executeGenQuery(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := genQueryRequest{Query: args["query"], Parser: args["parser"], Zone: args["zone"]}
	if req.Parser == "" {
		req.Parser = "genquery1"
	}
	if !valid(sess, &req) {
		return
	}

	options := map[string]string{"query": req.Query}
	if req.Zone != "" {
		options["zone"] = req.Zone
	}

	if req.Parser == "genquery2" {
		sqlOnly, ok := flag(sess, args, "sql-only", false)
		if !ok {
			return
		}
		if sqlOnly {
			options["sql_only"] = "1"
		}

		h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
			out, err := conn.Execute(ctx, irods.Call{API: irods.APIGenQuery2, Options: options})
			if err != nil {
				return api.FromError(ctx, err)
			}
			if sqlOnly {
				return api.JSON(http.StatusOK, sqlResponse{SQL: out.Text})
			}
			return api.JSON(http.StatusOK, rawRowsResponse{Rows: json.RawMessage(out.Text)})
		})
		return
	}

	offset, count, ok := h.window(sess, args)
	if !ok {
		return
	}
	caseSensitive, ok := flag(sess, args, "case-sensitive", true)
	if !ok {
		return
	}
	distinct, ok := flag(sess, args, "distinct", true)
	if !ok {
		return
	}

	var flags int
	if !caseSensitive {
		flags |= irods.OptionUpperCaseWhere
		options["query"] = strings.ToUpper(req.Query)
	}
	if !distinct {
		flags |= irods.OptionNoDistinct
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		out, err := conn.Execute(ctx, irods.Call{
			API:     irods.APIGenQuery,
			Options: options,
			Flags:   flags,
			Offset:  offset,
			Limit:   count,
		})
		if err != nil {
			return api.FromError(ctx, err)
		}
		return api.JSON(http.StatusOK, rowsResponse{Rows: nonNil(out.Rows)})
	})
}

func (h *Handlers) executeSpecificQuery(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := specificQueryRequest{Name: args["name"], Delimiter: args["args-delimiter"]}
	if req.Delimiter == "" {
		req.Delimiter = ","
	}
	if !valid(sess, &req) {
		return
	}
	offset, count, ok := h.window(sess, args)
	if !ok {
		return
	}

	var bound []string
	if v := args["args"]; v != "" {
		bound = strings.Split(v, req.Delimiter)
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		out, err := conn.Execute(ctx, irods.Call{
			API:     irods.APISpecificQuery,
			Options: map[string]string{"name": req.Name},
			Args:    bound,
			Offset:  offset,
			Limit:   count,
		})
		if err != nil {
			return api.FromError(ctx, err)
		}
		return api.JSON(http.StatusOK, rowsResponse{Rows: nonNil(out.Rows)})
	})
}

func (h *Handlers) listGenQueryColumns(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}
	if h.deps.Columns == nil {
		notImplemented(sess, r, args)
		return
	}

	h.run(sess, res, func(ctx context.Context, _ auth.ClientIdentity) api.Response {
		return api.JSON(http.StatusOK, columnsResponse{Columns: h.deps.Columns()})
	})
}

func (h *Handlers) listSpecificQueries(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		out, err := conn.Execute(ctx, irods.Call{
			API:     irods.APISpecificQuery,
			Options: map[string]string{"name": "listQueryByAliasLike"},
			Args:    []string{"%"},
		})
		if err != nil {
			return api.FromError(ctx, err)
		}

		queries := make([]specificQueryInfo, 0, len(out.Rows))
		for _, row := range out.Rows {
			if len(row) < 2 {
				continue
			}
			queries = append(queries, specificQueryInfo{Name: row[0], SQL: row[1]})
		}
		return api.JSON(http.StatusOK, specificQueriesResponse{Queries: queries})
	})
}

func (h *Handlers) addSpecificQuery(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := specificQueryDefinition{Name: args["name"], SQL: args["sql"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "add", "specificQuery", req.SQL, req.Name)
	})
}

func (h *Handlers) removeSpecificQuery(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := nameRequest{Name: args["name"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "rm", "specificQuery", req.Name)
	})
}

func nonNil(rows [][]string) [][]string {
	if rows == nil {
		return [][]string{}
	}
	return rows
}
