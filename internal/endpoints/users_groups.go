// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/irods"
)

const groupType = "rodsgroup"

type principalRequest struct {
	Name string `param:"name" validate:"required,irodsname"`
	Zone string `param:"zone" validate:"omitempty,irodsname"`
}

type createUserRequest struct {
	Name     string `param:"name" validate:"required,irodsname"`
	Zone     string `param:"zone" validate:"required,irodsname"`
	UserType string `param:"user-type" validate:"oneof=rodsuser rodsadmin groupadmin"`
}

type qualifiedUserRequest struct {
	Name string `param:"name" validate:"required,irodsname"`
	Zone string `param:"zone" validate:"required,irodsname"`
}

type setPasswordRequest struct {
	Name     string `param:"name" validate:"required,irodsname"`
	Zone     string `param:"zone" validate:"required,irodsname"`
	Password string `param:"new-password" validate:"required"`
}

type setUserTypeRequest struct {
	Name     string `param:"name" validate:"required,irodsname"`
	Zone     string `param:"zone" validate:"required,irodsname"`
	UserType string `param:"new-user-type" validate:"required,oneof=rodsuser rodsadmin groupadmin"`
}

type groupRequest struct {
	Group string `param:"group" validate:"required,irodsname"`
}

type membershipRequest struct {
	User  string `param:"user" validate:"required,irodsname"`
	Group string `param:"group" validate:"required,irodsname"`
	Zone  string `param:"zone" validate:"omitempty,irodsname"`
}

type userEntry struct {
	Name string `json:"name"`
	Zone string `json:"zone"`
}

type usersResponse struct {
	api.Envelope
	Users []userEntry `json:"users"`
}

type groupsResponse struct {
	api.Envelope
	Groups []string `json:"groups"`
}

type principalStatResponse struct {
	api.Envelope
	Exists          bool   `json:"exists"`
	ID              string `json:"id,omitempty"`
	LocalUniqueName string `json:"local_unique_name,omitempty"`
	Type            string `json:"type,omitempty"`
}

type membershipResponse struct {
	api.Envelope
	IsMember bool `json:"is_member"`
}

func (h *Handlers) usersGroupsEndpoint() api.Endpoint {
	return api.Endpoint{
		Name: "users_groups",
		Path: "/users-groups",
		Get: api.OperationTable{
			"stat":               h.statPrincipal,
			"users":              h.listUsers,
			"groups":             h.listGroups,
			"members":            h.listMembers,
			"is_member_of_group": h.isMemberOfGroup,
		},
		Post: api.OperationTable{
			"create_user":       h.createUser,
			"remove_user":       h.removeUser,
			"set_password":      h.setPassword,
			"set_user_type":     h.setUserType,
			"add_user_auth":     notImplemented,
			"remove_user_auth":  notImplemented,
			"create_group":      h.createGroup,
			"remove_group":      h.removeGroup,
			"add_to_group":      h.addToGroup,
			"remove_from_group": h.removeFromGroup,
		},
	}
}

// statPrincipal describes a user or group. Without a zone the name is
// looked up in any zone and users report their qualified name.
func (h *Handlers) statPrincipal(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := principalRequest{Name: args["name"], Zone: args["zone"]}
	if !valid(sess, &req) {
		return
	}

	query := fmt.Sprintf("select USER_ID, USER_TYPE, USER_ZONE where USER_NAME = '%s'", req.Name)
	if req.Zone != "" {
		query += fmt.Sprintf(" and USER_ZONE = '%s'", req.Zone)
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		rows, err := genQuery(ctx, conn, query, 1)
		if err != nil {
			return api.FromError(ctx, err)
		}
		if len(rows) == 0 || len(rows[0]) < 3 {
			return api.JSON(http.StatusOK, principalStatResponse{})
		}

		row := rows[0]
		out := principalStatResponse{Exists: true, ID: row[0], Type: row[1]}
		if req.Zone == "" && row[1] != groupType {
			out.LocalUniqueName = irods.User{Name: req.Name, Zone: row[2]}.String()
		}
		return api.JSON(http.StatusOK, out)
	})
}

func (h *Handlers) listUsers(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return h.users(ctx, conn, fmt.Sprintf("select USER_NAME, USER_ZONE where USER_TYPE != '%s'", groupType))
	})
}

func (h *Handlers) listMembers(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := groupRequest{Group: args["group"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return h.users(ctx, conn, fmt.Sprintf(
			"select USER_NAME, USER_ZONE where USER_TYPE != '%s' and USER_GROUP_NAME = '%s'", groupType, req.Group))
	})
}

func (h *Handlers) users(ctx context.Context, conn *irods.Facade, query string) api.Response {
	rows, err := genQuery(ctx, conn, query, 0)
	if err != nil {
		return api.FromError(ctx, err)
	}

	users := make([]userEntry, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		users = append(users, userEntry{Name: row[0], Zone: row[1]})
	}
	return api.JSON(http.StatusOK, usersResponse{Users: users})
}

func (h *Handlers) listGroups(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		rows, err := genQuery(ctx, conn, fmt.Sprintf("select USER_NAME where USER_TYPE = '%s'", groupType), 0)
		if err != nil {
			return api.FromError(ctx, err)
		}

		groups := make([]string, 0, len(rows))
		for _, row := range rows {
			if len(row) > 0 {
				groups = append(groups, row[0])
			}
		}
		return api.JSON(http.StatusOK, groupsResponse{Groups: groups})
	})
}

func (h *Handlers) isMemberOfGroup(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := membershipRequest{User: args["user"], Group: args["group"], Zone: args["zone"]}
	if req.Zone == "" {
		req.Zone = h.cfg.Zone
	}
	if !valid(sess, &req) {
		return
	}

	query := fmt.Sprintf("select USER_ID where USER_NAME = '%s' and USER_ZONE = '%s' and USER_GROUP_NAME = '%s'",
		req.User, req.Zone, req.Group)

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		rows, err := genQuery(ctx, conn, query, 1)
		if err != nil {
			return api.FromError(ctx, err)
		}
		return api.JSON(http.StatusOK, membershipResponse{IsMember: len(rows) > 0})
	})
}

func (h *Handlers) createUser(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := createUserRequest{Name: args["name"], Zone: args["zone"], UserType: args["user-type"]}
	if req.UserType == "" {
		req.UserType = "rodsuser"
	}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "add", "user", req.Name, req.UserType, req.Zone)
	})
}

func (h *Handlers) removeUser(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := qualifiedUserRequest{Name: args["name"], Zone: args["zone"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "rm", "user", req.Name, req.Zone)
	})
}

func (h *Handlers) setPassword(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := setPasswordRequest{Name: args["name"], Zone: args["zone"], Password: args["new-password"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		_, err := conn.Execute(ctx, irods.Call{
			API:  irods.APIUserAdmin,
			Args: []string{"set_password", req.Name, req.Zone, req.Password},
		})
		return api.FromError(ctx, err)
	})
}

func (h *Handlers) setUserType(sess *api.Session, r *http.Request, args api.Args) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := setUserTypeRequest{Name: args["name"], Zone: args["zone"], UserType: args["new-user-type"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "modify", "user", req.Name, req.Zone, "type", req.UserType)
	})
}

func (h *Handlers) createGroup(sess *api.Session, r *http.Request, args api.Args) {
	h.groupCall(sess, r, args, "add")
}

func (h *Handlers) removeGroup(sess *api.Session, r *http.Request, args api.Args) {
	h.groupCall(sess, r, args, "rm")
}

func (h *Handlers) groupCall(sess *api.Session, r *http.Request, args api.Args, verb string) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := principalRequest{Name: args["name"]}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, verb, "group", req.Name)
	})
}

func (h *Handlers) addToGroup(sess *api.Session, r *http.Request, args api.Args) {
	h.membershipCall(sess, r, args, "add")
}

func (h *Handlers) removeFromGroup(sess *api.Session, r *http.Request, args api.Args) {
	h.membershipCall(sess, r, args, "remove")
}

func (h *Handlers) membershipCall(sess *api.Session, r *http.Request, args api.Args, action string) {
	res, ok := h.authenticate(sess, r)
	if !ok {
		return
	}

	req := membershipRequest{User: args["user"], Group: args["group"], Zone: args["zone"]}
	if req.Zone == "" {
		req.Zone = h.cfg.Zone
	}
	if !valid(sess, &req) {
		return
	}

	h.submit(sess, res, func(ctx context.Context, conn *irods.Facade) api.Response {
		return adminCall(ctx, conn, "modify", "group", req.Group, action, req.User, req.Zone)
	})
}
