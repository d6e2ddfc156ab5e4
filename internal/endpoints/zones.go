// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/irods"
)

type zoneRequest struct {
	Name string `param:"name" validate:"required,irodsname"`
}

type addZoneRequest struct {
	Name           string `param:"name" validate:"required,irodsname"`
	ConnectionInfo string `param:"connection-info"`
	Comment        string `param:"comment"`
}

type modifyZoneRequest struct {
	Name     string `param:"name" validate:"required,irodsname"`
	Property string `param:"property" validate:"required,oneof=name connection_info comment"`
	Value    string `param:"value" validate:"required"`
}

type zoneInfo struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ConnectionInfo string `json:"connection_info"`
	Comment        string `json:"comment"`
	Type           string `json:"type"`
}

type zoneStatResponse struct {
	api.Envelope
	Exists bool `json:"exists"`
	Info   any  `json:"info"`
}

type zoneReportResponse struct {
	api.Envelope
	Report json.RawMessage `json:"zone_report"`
}

func (h *Handlers) zonesEndpoint() api.Endpoint {
	return api.Endpoint{
		Name: "zones",
		Path: "/zones",
		Get: api.OperationTable{
			"report": h.zoneReport,
			"stat":   h.statZone,
		},
		Post: api.OperationTable{
			"add":    h.addZone,
			"remove": h.removeZone,
			"modify": h.modifyZone,
		},
	}
}

func (h *Handlers) zoneReport(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		out, err := conn.Execute(ctx, irods.Call{API: irods.APIZoneReport})
		if err != nil {
			return api.FromError(ctx, err)
		}
		return api.JSON(http.StatusOK, zoneReportResponse{Report: json.RawMessage(out.Text)})
	})
}

func (h *Handlers) statZone(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := zoneRequest{Name: args["name"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		query := fmt.Sprintf("select ZONE_ID, ZONE_NAME, ZONE_CONNECTION, ZONE_COMMENT, ZONE_TYPE where ZONE_NAME = '%s'", req.Name)
		rows, err := genQuery(ctx, conn, query, 1)
		if err != nil {
			return api.FromError(ctx, err)
		}

		if len(rows) == 0 || len(rows[0]) < 5 {
			return api.JSON(http.StatusOK, zoneStatResponse{Info: struct{}{}})
		}

		row := rows[0]
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return api.FromError(ctx, fmt.Errorf("parse zone id %q: %w", row[0], err))
		}
		info := zoneInfo{ID: id, Name: row[1], ConnectionInfo: row[2], Comment: row[3], Type: "remote"}
		if row[4] == "local" {
			info.Type = "local"
		}
		return api.JSON(http.StatusOK, zoneStatResponse{Exists: true, Info: info})
	})
}

func (h *Handlers) addZone(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := addZoneRequest{Name: args["name"], ConnectionInfo: args["connection-info"], Comment: args["comment"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "add", "zone", req.Name, "remote", req.ConnectionInfo, req.Comment)
	})
}

func (h *Handlers) removeZone(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := zoneRequest{Name: args["name"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "rm", "zone", req.Name)
	})
}

func (h *Handlers) modifyZone(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := modifyZoneRequest{Name: args["name"], Property: args["property"], Value: args["value"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "modify", "zone", req.Name, req.Property, req.Value)
	})
}
