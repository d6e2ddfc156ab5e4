// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package irods

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// fakeConn records every call made on it.
type fakeConn struct {
	id       int
	req      DialRequest
	client   User
	password string

	authErr   error
	switchErr error
	execErr   error

	mu       sync.Mutex
	switches []User
	closed   bool
	calls    []Call
}

func (c *fakeConn) Authenticate(_ context.Context, password string) error {
	c.password = password
	return c.authErr
}

func (c *fakeConn) SwitchIdentity(_ context.Context, user User, closeOpenReplicas bool) error {
	if !closeOpenReplicas {
		return errors.New("expected close-open-replicas flag")
	}
	if c.switchErr != nil {
		return c.switchErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.switches = append(c.switches, user)
	c.client = user
	return nil
}

func (c *fakeConn) Execute(_ context.Context, call Call) (*Result, error) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
	if c.execErr != nil {
		return nil, c.execErr
	}
	return &Result{Rows: [][]string{{c.client.Name}}}, nil
}

func (c *fakeConn) ClientUser() User { return c.client }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer hands out fakeConns and can be told to fail.
type fakeDialer struct {
	next    atomic.Int32
	dialErr error

	mu    sync.Mutex
	conns []*fakeConn

	// configure runs on every new connection before it is returned.
	configure func(*fakeConn)
}

func (d *fakeDialer) Dial(_ context.Context, req DialRequest) (Conn, error) {
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	c := &fakeConn{id: int(d.next.Add(1)), req: req, client: req.Client}
	if d.configure != nil {
		d.configure(c)
	}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) dialed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func testConnectorConfig() ConnectorConfig {
	return ConnectorConfig{
		Host:          "irods.example.org",
		Port:          1247,
		Zone:          "tempZone",
		ProxyUsername: "rods",
		ProxyPassword: "rods",
	}
}
