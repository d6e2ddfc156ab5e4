// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package irods

import (
	"context"
	"strconv"
)

// User names a backend account.
type User struct {
	Name string
	Zone string
}

func (u User) String() string {
	if u.Zone == "" {
		return u.Name
	}
	return u.Name + "#" + u.Zone
}

// DialRequest describes a new backend connection. Proxy is the account that
// authenticates; Client is the account the connection acts for.
type DialRequest struct {
	Host   string
	Port   int
	Proxy  User
	Client User
}

// Address returns host:port.
func (r DialRequest) Address() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

// API names a backend operation accepted by Conn.Execute.
type API string

// Backend operations used by the endpoint handlers.
const (
	APIGenQuery      API = "genquery"
	APIGenQuery2     API = "genquery2"
	APISpecificQuery API = "specific_query"
	APIGeneralAdmin  API = "general_admin"
	APIUserAdmin     API = "user_admin"
	APITicketAdmin   API = "ticket_admin"
	APIZoneReport    API = "zone_report"
	APICheckAuth     API = "check_auth_credentials"
)

// GenQuery option flags.
const (
	OptionUpperCaseWhere = 1 << iota
	OptionNoDistinct
)

// Call is one backend operation. Positional arguments mirror the admin-style
// APIs (arg0, arg1, ...); keyword options carry query text and hints.
type Call struct {
	API     API
	Args    []string
	Options map[string]string
	Flags   int
	Offset  int
	Limit   int
}

// Option returns a keyword option or "".
func (c Call) Option(key string) string {
	if c.Options == nil {
		return ""
	}
	return c.Options[key]
}

// Arg returns positional argument i or "".
func (c Call) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Result is the output of a backend operation. Row-producing APIs fill Rows;
// document-producing APIs (genquery2, zone report) fill Text.
type Result struct {
	Rows [][]string
	Text string
}

// Conn is one live backend connection. Implementations need not be safe for
// concurrent use; a Conn is owned by one task at a time.
type Conn interface {
	// Authenticate logs the connection in with a native password.
	Authenticate(ctx context.Context, password string) error

	// SwitchIdentity changes the acting user without a new handshake.
	// closeOpenReplicas asks the server to finalize replicas the previous
	// user left open.
	SwitchIdentity(ctx context.Context, user User, closeOpenReplicas bool) error

	// Execute runs one backend operation as the acting user.
	Execute(ctx context.Context, call Call) (*Result, error)

	// ClientUser returns the user the connection currently acts for.
	ClientUser() User

	Close() error
}

// Dialer opens unauthenticated backend connections.
type Dialer interface {
	Dial(ctx context.Context, req DialRequest) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, req DialRequest) (Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, req DialRequest) (Conn, error) {
	return f(ctx, req)
}
