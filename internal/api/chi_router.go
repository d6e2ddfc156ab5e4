// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/middleware"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// BaseURL prefixes every endpoint path, e.g. "/irods-http-api/0.2.0".
	BaseURL string

	// Timeout bounds each exchange. Zero means no timeout beyond the
	// client connection.
	Timeout time.Duration

	// CompressionThreshold is the minimum declared body size for gzip.
	CompressionThreshold int

	// Middleware supplies CORS, rate limiting and body limits.
	Middleware *ChiMiddleware
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter builds the HTTP handler serving the given endpoints under
// cfg.BaseURL, plus /metrics.
func NewRouter(cfg RouterConfig, endpoints ...Endpoint) http.Handler {
	mw := cfg.Middleware
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	threshold := cfg.CompressionThreshold
	if threshold <= 0 {
		threshold = middleware.DefaultCompressionThreshold
	}

	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		logging.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Msg("No endpoint for path")
		Fail(http.StatusNotFound).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		Fail(http.StatusMethodNotAllowed).Write(w)
	})

	r.Handle("/metrics", promhttp.Handler())

	base := "/" + strings.Trim(cfg.BaseURL, "/")

	r.Route(base, func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(mw.BodyLimit())
		r.Use(chiMiddleware(middleware.Compression(threshold)))

		for _, ep := range endpoints {
			r.Handle(ep.Path, serveEndpoint(ep, cfg.Timeout))
		}
	})

	return r
}

// serveEndpoint runs one exchange: it opens a session, lets the endpoint
// dispatch the request and writes whatever response the session receives.
func serveEndpoint(ep Endpoint, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithLogger(r.Context(), logging.WithComponent("endpoint."+ep.Name))
		var cancel context.CancelFunc
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
		} else {
			ctx, cancel = context.WithCancel(ctx)
		}
		defer cancel()

		r = r.WithContext(ctx)
		sess := NewSession(ctx)

		if ep.Handle != nil {
			ep.Handle(sess, r)
		} else {
			ep.Dispatch(sess, r)
		}

		sess.Serve(w)
	}
}
