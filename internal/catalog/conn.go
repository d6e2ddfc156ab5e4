// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package catalog

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/irods-gateway/internal/authz"
	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
)

var errClosed = errors.New("catalog: connection closed")

// conn is one session against the catalog. It is owned by a single task.
type conn struct {
	cat        *Catalog
	proxyUser  irods.User
	clientUser irods.User

	proxy  principal
	client principal
	authed bool
	closed bool
}

func (c *conn) Authenticate(ctx context.Context, password string) error {
	if c.closed {
		return irods.ConnectionError("authenticate", errClosed)
	}

	proxy, err := lookupPrincipal(ctx, c.cat.db, c.proxyUser)
	if err != nil {
		var e *irods.Error
		if errors.As(err, &e) && e.Code == irods.CatInvalidUser {
			return irods.NewError(irods.CatInvalidAuthentication, "authentication failed for %s", c.proxyUser)
		}
		return err
	}
	if proxy.userType == TypeGroup || proxy.hash == "" ||
		bcrypt.CompareHashAndPassword([]byte(proxy.hash), []byte(password)) != nil {
		return irods.NewError(irods.CatInvalidAuthentication, "authentication failed for %s", c.proxyUser)
	}

	client := proxy
	if c.clientUser.Name != "" && c.clientUser != c.proxyUser {
		if err := c.cat.authorize(proxy, authz.ObjectIdentity, authz.ActionSwitch); err != nil {
			return irods.NewError(irods.SysProxyUserNotAuthorized, "%s may not act for %s", c.proxyUser, c.clientUser)
		}
		if client, err = lookupPrincipal(ctx, c.cat.db, c.clientUser); err != nil {
			return err
		}
	}

	c.proxy, c.client, c.authed = proxy, client, true
	logging.Ctx(ctx).Trace().Str("proxy", proxy.user.String()).Str("client", client.user.String()).Msg("Catalog login")
	return nil
}

func (c *conn) SwitchIdentity(ctx context.Context, user irods.User, closeOpenReplicas bool) error {
	if c.closed {
		return irods.ConnectionError("switch identity", errClosed)
	}
	if !c.authed {
		return irods.NewError(irods.CatInvalidAuthentication, "connection is not authenticated")
	}
	if err := c.cat.authorize(c.proxy, authz.ObjectIdentity, authz.ActionSwitch); err != nil {
		return irods.NewError(irods.SysProxyUserNotAuthorized, "%s may not switch identities", c.proxy.user)
	}

	next, err := lookupPrincipal(ctx, c.cat.db, c.cat.qualify(user))
	if err != nil {
		return err
	}
	if next.userType == TypeGroup {
		return irods.NewError(irods.CatInvalidUser, "%s is a group", next.user)
	}

	if closeOpenReplicas {
		if err := c.cat.closeReplicas(ctx, c.client.user); err != nil {
			return err
		}
	}

	c.client = next
	return nil
}

func (c *conn) ClientUser() irods.User {
	if c.authed {
		return c.client.user
	}
	if c.clientUser.Name != "" {
		return c.clientUser
	}
	return c.proxyUser
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}

func (c *conn) Execute(ctx context.Context, call irods.Call) (*irods.Result, error) {
	if c.closed {
		return nil, irods.ConnectionError("execute", errClosed)
	}
	if !c.authed {
		return nil, irods.NewError(irods.CatInvalidAuthentication, "connection is not authenticated")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.cat.authorize(c.client, string(call.API), actionFor(call)); err != nil {
		return nil, err
	}

	switch call.API {
	case irods.APIGenQuery:
		return c.cat.genQuery(ctx, c.client, call)
	case irods.APIGenQuery2:
		return c.cat.genQuery2(ctx, c.client, call)
	case irods.APISpecificQuery:
		return c.cat.specificQuery(ctx, call)
	case irods.APIGeneralAdmin:
		return c.cat.generalAdmin(ctx, c.client, call)
	case irods.APIUserAdmin:
		return c.cat.userAdmin(ctx, c.client, call)
	case irods.APITicketAdmin:
		return c.cat.ticketAdmin(ctx, c.client, call)
	case irods.APIZoneReport:
		return c.cat.zoneReport(ctx)
	case irods.APICheckAuth:
		return c.cat.checkAuth(ctx, call)
	}
	return nil, irods.NewError(irods.SysNotSupported, "unsupported API %s", call.API)
}

// actionFor names the policy action of call.
func actionFor(call irods.Call) string {
	switch call.API {
	case irods.APIGeneralAdmin:
		return call.Arg(0) + "_" + call.Arg(1)
	case irods.APIUserAdmin, irods.APITicketAdmin:
		return call.Arg(0)
	}
	return authz.ActionExecute
}

func (c *Catalog) authorize(p principal, object, action string) error {
	allowed, err := c.authz.Enforce(p.userType, object, action)
	if err != nil {
		return irods.NewError(irods.SysInternalErr, "%v", err)
	}
	if !allowed {
		return irods.NewError(irods.CatInsufficientPrivilege, "%s may not perform %s %s", p.user, object, action)
	}
	return nil
}

// closeReplicas finalizes replicas user left open.
func (c *Catalog) closeReplicas(ctx context.Context, user irods.User) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE data_objects SET repl_status = ?, opened_by = '', modify_ts = ? WHERE opened_by = ?`,
		ReplicaGood, c.now().Unix(), user.String())
	if err != nil {
		return sqlError(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logging.Ctx(ctx).Debug().Str("user", user.String()).Int64("replicas", n).Msg("Closed open replicas")
	}
	return nil
}

// checkAuth verifies a native password: Args are user, zone, password.
func (c *Catalog) checkAuth(ctx context.Context, call irods.Call) (*irods.Result, error) {
	user := c.qualify(irods.User{Name: call.Arg(0), Zone: call.Arg(1)})
	p, err := lookupPrincipal(ctx, c.db, user)
	if err != nil {
		return nil, irods.NewError(irods.CatInvalidAuthentication, "authentication failed for %s", user)
	}
	if p.userType == TypeGroup || p.hash == "" ||
		bcrypt.CompareHashAndPassword([]byte(p.hash), []byte(call.Arg(2))) != nil {
		return nil, irods.NewError(irods.CatInvalidAuthentication, "authentication failed for %s", user)
	}
	return &irods.Result{}, nil
}
