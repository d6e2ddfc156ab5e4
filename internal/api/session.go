// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/tomtom215/irods-gateway/internal/logging"
)

// Session owns the response of one HTTP exchange.
//
// Handlers and background tasks deliver the response with Send from any
// goroutine; only the serving goroutine writes it, in Serve. The first
// response sent wins and later ones are dropped.
type Session struct {
	ctx  context.Context
	out  chan Response
	once sync.Once
}

// NewSession creates a session bound to the request context.
func NewSession(ctx context.Context) *Session {
	return &Session{ctx: ctx, out: make(chan Response, 1)}
}

// Context returns the request context. It is done when the client goes
// away or the request times out.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Send delivers resp. It never blocks and reports whether resp was the
// first response for the session.
func (s *Session) Send(resp Response) bool {
	sent := false
	s.once.Do(func() {
		s.out <- resp
		sent = true
	})
	if !sent {
		logging.Ctx(s.ctx).Debug().Int("status", resp.Status).Msg("Dropping second response for exchange")
	}
	return sent
}

// Wait blocks until a response has been sent or the context is done.
func (s *Session) Wait() (Response, error) {
	select {
	case resp := <-s.out:
		return resp, nil
	case <-s.ctx.Done():
		// A response may have raced the cancellation.
		select {
		case resp := <-s.out:
			return resp, nil
		default:
		}
		return Response{}, s.ctx.Err()
	}
}

// Serve waits for the response and writes it to w. When no response
// arrives before the context ends, an empty 500 is written.
func (s *Session) Serve(w http.ResponseWriter) {
	resp, err := s.Wait()
	if err != nil {
		logging.Ctx(s.ctx).Error().Err(err).Msg("No response before the request ended")
		resp = Fail(http.StatusInternalServerError)
	}
	resp.Write(w)
}
