// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package irods

import (
	"errors"
	"fmt"
)

// Error codes returned by the backend. Values follow the iRODS error table.
const (
	SysInternalErr              = -154000
	SysNotSupported             = -169000
	SysProxyUserNotAuthorized   = -175000
	UserInputPathErr            = -317000
	UserInputOptionErr          = -318000
	InputArgNotWellFormedErr    = -323000
	ObjPathDoesNotExist         = -358000
	CatSQLErr                   = -806000
	CatNoRowsFound              = -808000
	CatalogAlreadyHasItemByName = -809000
	CatInvalidArgument          = -816000
	CatNoAccessPermission       = -818000
	CatFailedToLinkTables       = -825000
	CatInvalidAuthentication    = -826000
	CatInvalidUser              = -827000
	CatInsufficientPrivilege    = -830000
	CatUnknownSpecificQuery     = -853000
	CatTicketInvalid            = -891000
)

var (
	// ErrConnection marks a failure of the connection itself (dial, login,
	// identity switch, broken transport). A connection that produced it must
	// not be reused.
	ErrConnection = errors.New("irods: connection failure")

	// ErrPoolClosed is returned by Checkout after the pool has been closed.
	ErrPoolClosed = errors.New("irods: connection pool closed")
)

// Error is a failure reported by the backend, carrying its numeric code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("irods error %d: %s", e.Code, e.Message)
}

// NewError builds an *Error with a formatted message.
func NewError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// connectionError wraps a backend failure that poisons the connection.
type connectionError struct {
	op  string
	err error
}

func (e *connectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *connectionError) Unwrap() []error {
	return []error{ErrConnection, e.err}
}

// ConnectionError marks err as fatal to the connection it came from. The
// result matches both ErrConnection and err under errors.Is and errors.As.
func ConnectionError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &connectionError{op: op, err: err}
}

// IsConnectionError reports whether err poisons the connection.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

// AsError extracts the backend error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
