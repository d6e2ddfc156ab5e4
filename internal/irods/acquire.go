// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package irods

import (
	"context"
	"sync"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
)

// Client is the identity a request wants a connection for.
type Client struct {
	Username string
	Zone     string

	// Password is only used in compatibility mode. When empty the proxy
	// account logs in on the client's behalf.
	Password string
}

// Acquirer hands out connections acting for a given client.
//
// In pooled mode a pre-authenticated proxy connection is checked out and its
// acting identity switched to the client. In compatibility mode every
// acquisition dials a fresh connection, for servers without identity
// switching.
type Acquirer struct {
	connector     *Connector
	pool          *Pool
	compatibility bool
}

// NewPooledAcquirer creates an acquirer backed by pool.
func NewPooledAcquirer(connector *Connector, pool *Pool) *Acquirer {
	return &Acquirer{connector: connector, pool: pool}
}

// NewCompatibilityAcquirer creates an acquirer that dials per request.
func NewCompatibilityAcquirer(connector *Connector) *Acquirer {
	return &Acquirer{connector: connector, compatibility: true}
}

// Compatibility reports whether the acquirer dials per request.
func (a *Acquirer) Compatibility() bool {
	return a.compatibility
}

// Zone returns the local zone.
func (a *Acquirer) Zone() string {
	return a.connector.Zone()
}

// Acquire returns a connection acting for client. The caller owns the
// facade exclusively and must call Release when done.
func (a *Acquirer) Acquire(ctx context.Context, client Client) (*Facade, error) {
	user := User{Name: client.Username, Zone: client.Zone}
	if user.Zone == "" {
		user.Zone = a.connector.Zone()
	}

	if a.compatibility {
		conn, err := a.connector.ConnectFor(ctx, user, client.Password)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("user", user.String()).Msg("Could not open compatibility connection")
			return nil, err
		}
		return &Facade{conn: conn, release: func(c Conn, _ bool) { _ = c.Close() }}, nil
	}

	conn, err := a.pool.Checkout(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Could not check out backend connection")
		return nil, err
	}

	logging.Ctx(ctx).Trace().Str("user", user.String()).Msg("Changing identity associated with connection")

	if err := conn.SwitchIdentity(ctx, user, true); err != nil {
		metrics.IdentitySwitches.WithLabelValues("failed").Inc()
		a.pool.Discard(conn)
		logging.Ctx(ctx).Error().Err(err).Str("user", user.String()).Msg("Identity switch failed")
		return nil, ConnectionError("switch identity", err)
	}
	metrics.IdentitySwitches.WithLabelValues("ok").Inc()

	return &Facade{conn: conn, release: a.giveBack}, nil
}

// CheckCredentials verifies a native password for username.
func (a *Acquirer) CheckCredentials(ctx context.Context, username, password string) error {
	user := User{Name: username, Zone: a.connector.Zone()}

	if a.compatibility {
		conn, err := a.connector.ConnectFor(ctx, user, password)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	conn, err := a.pool.Checkout(ctx)
	if err != nil {
		return err
	}

	// Pooled connections keep acting for their last client.
	proxy := User{Name: a.connector.cfg.ProxyUsername, Zone: a.connector.Zone()}
	if err := conn.SwitchIdentity(ctx, proxy, true); err != nil {
		metrics.IdentitySwitches.WithLabelValues("failed").Inc()
		a.pool.Discard(conn)
		logging.Ctx(ctx).Error().Err(err).Str("user", proxy.String()).Msg("Could not switch to proxy for credential check")
		return ConnectionError("switch identity", err)
	}
	metrics.IdentitySwitches.WithLabelValues("ok").Inc()

	_, err = conn.Execute(ctx, Call{API: APICheckAuth, Args: []string{username, user.Zone, password}})
	if err != nil && IsConnectionError(err) {
		a.pool.Discard(conn)
		return err
	}
	a.pool.Return(conn)
	return err
}

func (a *Acquirer) giveBack(conn Conn, healthy bool) {
	if healthy {
		a.pool.Return(conn)
		return
	}
	a.pool.Discard(conn)
}

// Facade wraps one connection for the duration of a task. It is not safe
// for concurrent use.
type Facade struct {
	conn    Conn
	release func(conn Conn, healthy bool)
	broken  bool
	once    sync.Once
}

// Execute runs call on the underlying connection. A connection-level
// failure marks the facade broken so Release discards it.
func (f *Facade) Execute(ctx context.Context, call Call) (*Result, error) {
	res, err := f.conn.Execute(ctx, call)
	if err != nil && IsConnectionError(err) {
		f.broken = true
	}
	return res, err
}

// ClientUser returns the identity the connection acts for.
func (f *Facade) ClientUser() User {
	return f.conn.ClientUser()
}

// MarkBroken forces Release to discard the connection.
func (f *Facade) MarkBroken() {
	f.broken = true
}

// Release gives the connection back. It is safe to call more than once.
func (f *Facade) Release() {
	f.once.Do(func() {
		f.release(f.conn, !f.broken)
	})
}
