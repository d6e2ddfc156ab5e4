// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakePool struct {
	warmErr error
	warmed  chan struct{}
	closed  atomic.Bool
}

func (p *fakePool) Warm(context.Context) error {
	close(p.warmed)
	return p.warmErr
}

func (p *fakePool) Close() { p.closed.Store(true) }
func (p *fakePool) Size() int { return 4 }

func TestConnectionPoolService_Serve(t *testing.T) {
	tests := []struct {
		name    string
		warmErr error
	}{
		{"warm", nil},
		{"warm failure is not fatal", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := &fakePool{warmErr: tt.warmErr, warmed: make(chan struct{})}
			svc := NewConnectionPoolService(pool)
			ctx, cancel := context.WithCancel(context.Background())

			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			<-pool.warmed
			select {
			case err := <-errCh:
				t.Fatalf("Serve() returned early: %v", err)
			case <-time.After(20 * time.Millisecond):
			}
			if pool.closed.Load() {
				t.Fatal("pool closed before shutdown")
			}

			cancel()
			if err := <-errCh; !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() error = %v, want context.Canceled", err)
			}
			if !pool.closed.Load() {
				t.Error("pool not closed on shutdown")
			}
		})
	}

	if got := NewConnectionPoolService(&fakePool{}).String(); got != "connection-pool" {
		t.Errorf("String() = %q, want connection-pool", got)
	}
}
