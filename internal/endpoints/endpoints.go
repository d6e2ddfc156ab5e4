// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/irods-gateway/internal/api"
	"github.com/tomtom215/irods-gateway/internal/auth"
	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/validation"
)

// Identities resolves the bearer token of a request.
type Identities interface {
	Begin(ctx context.Context, req *http.Request) auth.Resolution
	Finish(ctx context.Context, res auth.Resolution) (auth.ClientIdentity, *auth.Failure)
	OIDCEnabled() bool
}

// Authenticator issues bearer tokens for basic-auth credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Backend hands out connections acting for a client.
type Backend interface {
	Acquire(ctx context.Context, client irods.Client) (*irods.Facade, error)
}

// Runner queues backend work off the serving goroutine.
type Runner interface {
	Submit(sess *api.Session, task api.Task) error
}

// Config carries the values the endpoints report or enforce.
type Config struct {
	Zone            string
	Version         string
	Build           string
	MaxRowsPerQuery int
	MaxBodyBytes    int64
}

// Deps are the collaborators shared by all endpoints.
type Deps struct {
	Identities Identities
	Login      Authenticator
	Backend    Backend
	Executor   Runner

	// Columns lists the GenQuery columns the backend understands. Nil
	// makes list_genquery_columns answer 501.
	Columns func() []string
}

// Handlers implements every endpoint of the gateway.
type Handlers struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

// New creates the endpoint handlers.
func New(cfg Config, deps Deps) *Handlers {
	if cfg.MaxRowsPerQuery < 1 {
		cfg.MaxRowsPerQuery = 1
	}
	return &Handlers{cfg: cfg, deps: deps, now: time.Now}
}

// Endpoints returns the endpoint table for api.NewRouter.
func (h *Handlers) Endpoints() []api.Endpoint {
	return []api.Endpoint{
		h.authenticationEndpoint(),
		h.informationEndpoint(),
		h.queryEndpoint(),
		h.quotasEndpoint(),
		h.ticketsEndpoint(),
		h.usersGroupsEndpoint(),
		h.zonesEndpoint(),
	}
}

// nameRequest is the argument set of operations keyed by a single name.
type nameRequest struct {
	Name string `param:"name" validate:"required"`
}

// backendFunc is the body of a task that holds a connection.
type backendFunc func(ctx context.Context, conn *irods.Facade) api.Response

// identityFunc is the body of a task that only needs the caller's identity.
type identityFunc func(ctx context.Context, id auth.ClientIdentity) api.Response

// authenticate runs the non-blocking half of identity resolution on the
// serving goroutine. A failure is sent immediately.
func (h *Handlers) authenticate(sess *api.Session, r *http.Request) (auth.Resolution, bool) {
	res := h.deps.Identities.Begin(sess.Context(), r)
	if res.Failure != nil {
		sess.Send(failureResponse(res.Failure))
		return res, false
	}
	return res, true
}

// run queues fn behind the blocking half of identity resolution.
func (h *Handlers) run(sess *api.Session, res auth.Resolution, fn identityFunc) {
	err := h.deps.Executor.Submit(sess, func(ctx context.Context) api.Response {
		id, f := h.deps.Identities.Finish(ctx, res)
		if f != nil {
			return failureResponse(f)
		}
		logging.Ctx(ctx).Debug().Str("user", id.Username).Msg("Running operation")
		return fn(ctx, id)
	})
	if err != nil {
		logging.Ctx(sess.Context()).Error().Err(err).Msg("Could not queue operation")
		sess.Send(api.Fail(http.StatusServiceUnavailable))
	}
}

// submit queues fn with a connection acting for the caller. The
// connection is released when fn returns.
func (h *Handlers) submit(sess *api.Session, res auth.Resolution, fn backendFunc) {
	h.run(sess, res, func(ctx context.Context, id auth.ClientIdentity) api.Response {
		conn, err := h.deps.Backend.Acquire(ctx, id.Client())
		if err != nil {
			return api.FromError(ctx, err)
		}
		defer conn.Release()
		return fn(ctx, conn)
	})
}

// valid validates req and answers 400 when it fails.
func valid(sess *api.Session, req any) bool {
	if err := validation.ValidateStruct(req); err != nil {
		logging.Ctx(sess.Context()).Error().Err(err).Msg("Invalid request arguments")
		sess.Send(api.Fail(http.StatusBadRequest))
		return false
	}
	return true
}

// rejectArgument logs a bad argument and answers 400.
func rejectArgument(sess *api.Session, name string, err error) {
	ev := logging.Ctx(sess.Context()).Error().Str("param", name)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("Invalid request argument")
	sess.Send(api.Fail(http.StatusBadRequest))
}

// notImplemented answers 501 for operations that are recognized but not
// supported.
func notImplemented(sess *api.Session, r *http.Request, args api.Args) {
	logging.Ctx(sess.Context()).Error().Str("op", args["op"]).Msg("Operation not implemented")
	sess.Send(api.Fail(http.StatusNotImplemented))
}

func failureResponse(f *auth.Failure) api.Response {
	return api.Response{Status: f.Status, Header: f.Header, Body: f.Body}
}

// adminCall runs a general_admin call and answers with the bare envelope.
func adminCall(ctx context.Context, conn *irods.Facade, args ...string) api.Response {
	_, err := conn.Execute(ctx, irods.Call{API: irods.APIGeneralAdmin, Args: args})
	return api.FromError(ctx, err)
}

// genQuery runs a GenQuery1 statement and returns its rows.
func genQuery(ctx context.Context, conn *irods.Facade, query string, limit int) ([][]string, error) {
	res, err := conn.Execute(ctx, irods.Call{
		API:     irods.APIGenQuery,
		Options: map[string]string{"query": query},
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}
