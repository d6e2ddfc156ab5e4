// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
)

type createTicketRequest struct {
	Path       string `param:"lpath" validate:"required,lpath"`
	Type       string `param:"type" validate:"oneof=read write"`
	Uses       int64  `param:"use-count" validate:"gte=0"`
	WriteFiles int64  `param:"write-data-object-count" validate:"gte=0"`
	WriteBytes int64  `param:"write-byte-count" validate:"gte=0"`
}

type ticketResponse struct {
	api.Envelope
	Ticket string `json:"ticket"`
}

func (h *Handlers) ticketsEndpoint() api.Endpoint {
	return api.Endpoint{
		Name: "tickets",
		Path: "/tickets",
		Get: api.OperationTable{
			"list": notImplemented,
			"stat": notImplemented,
		},
		Post: api.OperationTable{
			"create": h.createTicket,
			"remove": h.removeTicket,
		},
	}
}

// createTicket creates a ticket and applies its limits and restrictions.
// When a later step fails the ticket is deleted again.
func (h *Handlers) createTicket(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := createTicketRequest{Path: args["lpath"], Type: args["type"]}
	if req.Type == "" {
		req.Type = "read"
	}
	for name, dst := range map[string]*int64{
		"use-count":               &req.Uses,
		"write-data-object-count": &req.WriteFiles,
		"write-byte-count":        &req.WriteBytes,
	} {
		n, err := args.Int64(name, 0)
		if err != nil {
			rejectArgument(sess, name, err)
			return
		}
		*dst = n
	}
	if !valid(sess, &req) {
		return
	}

	var expires int64
	if _, ok := args["seconds-until-expiration"]; ok {
		secs, err := args.Int64("seconds-until-expiration", 0)
		if err != nil || secs <= 0 {
			rejectArgument(sess, "seconds-until-expiration", err)
			return
		}
		expires = h.now().Unix() + secs
	}

	restrictions := map[string][]string{
		"user":  splitList(args["users"]),
		"group": splitList(args["groups"]),
		"host":  splitList(args["hosts"]),
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		out, err := conn.Execute(ctx, irods.Call{API: irods.APITicketAdmin, Args: []string{"create", req.Type, req.Path}})
		if err != nil {
			return api.FromError(ctx, err)
		}
		ticket := out.Text

		mod := func(args ...string) error {
			_, err := conn.Execute(ctx, irods.Call{API: irods.APITicketAdmin, Args: append([]string{"mod", ticket}, args...)})
			return err
		}

		err = configureTicket(mod, req, expires, restrictions)
		if err != nil {
			if _, derr := conn.Execute(ctx, irods.Call{API: irods.APITicketAdmin, Args: []string{"delete", ticket}}); derr != nil {
				logging.Ctx(ctx).Warn().Err(derr).Msg("Could not delete partially configured ticket")
			}
			return api.FromError(ctx, err)
		}

		return api.JSON(http.StatusOK, ticketResponse{Ticket: ticket})
	})
}

func configureTicket(mod func(args ...string) error, req createTicketRequest, expires int64, restrictions map[string][]string) error {
	limits := [][2]string{
		{"uses", strconv.FormatInt(req.Uses, 10)},
		{"write-file", strconv.FormatInt(req.WriteFiles, 10)},
		{"write-bytes", strconv.FormatInt(req.WriteBytes, 10)},
	}
	if expires > 0 {
		limits = append(limits, [2]string{"expire", strconv.FormatInt(expires, 10)})
	}
	for _, l := range limits {
		if err := mod(l[0], l[1]); err != nil {
			return err
		}
	}

	for _, kind := range []string{"user", "group", "host"} {
		for _, v := range restrictions[kind] {
			if err := mod("add", kind, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handlers) removeTicket(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := nameRequest{Name: args["name"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		_, err := conn.Execute(ctx, irods.Call{API: irods.APITicketAdmin, Args: []string{"delete", req.Name}})
		return api.FromError(ctx, err)
	})
}

// splitList splits a comma separated argument, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
