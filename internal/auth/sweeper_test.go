// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/irods-gateway/internal/stash"
)

func TestSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	identities := stash.New[ClientIdentity]()
	archive := openTestArchive(t)
	ctx := context.Background()

	expired := identities.Insert(ClientIdentity{Username: "alice", ExpiresAt: now.Add(-time.Second)})
	alsoExpired := identities.Insert(ClientIdentity{Username: "bob", ExpiresAt: now})
	live := identities.Insert(ClientIdentity{Username: "carol", ExpiresAt: now.Add(time.Hour)})
	forever := identities.Insert(ClientIdentity{Username: "svc"})

	s := NewSweeper(identities, archive, time.Minute)
	s.now = func() time.Time { return now }

	if got := s.Sweep(ctx); got != 2 {
		t.Errorf("Sweep() = %d, want 2", got)
	}
	for _, token := range []string{expired, alsoExpired} {
		if _, ok := identities.Find(token); ok {
			t.Errorf("expired token %s survived the sweep", token)
		}
	}
	for _, token := range []string{live, forever} {
		if _, ok := identities.Find(token); !ok {
			t.Errorf("live token %s was swept", token)
		}
	}
	if got := s.Sweep(ctx); got != 0 {
		t.Errorf("second Sweep() = %d, want 0", got)
	}
}

func TestSweeper_Serve(t *testing.T) {
	identities := stash.New[ClientIdentity]()
	identities.Insert(ClientIdentity{Username: "alice", ExpiresAt: time.Now().Add(-time.Hour)})

	s := NewSweeper(identities, nil, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for identities.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not evict the expired identity")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if s.String() != "identity-sweeper" {
		t.Errorf("String() = %q", s.String())
	}
}
