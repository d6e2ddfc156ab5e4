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

	"github.com/tomtom215/irods-gateway/internal/irods"
	"github.com/tomtom215/irods-gateway/internal/stash"
)

// fakeChecker accepts alice/secret and fails everything else with err.
type fakeChecker struct {
	err   error
	calls int
}

func (f *fakeChecker) CheckCredentials(_ context.Context, username, password string) error {
	f.calls++
	if username == "alice" && password == "secret" {
		return nil
	}
	return f.err
}

func TestLogin(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	badPassword := irods.NewError(irods.CatInvalidAuthentication, "authentication failed")
	unknownUser := irods.NewError(irods.CatInvalidUser, "no such user")
	brokenBackend := irods.ConnectionError("dial", errors.New("connection refused"))

	tests := []struct {
		name      string
		username  string
		password  string
		checkErr  error
		wantErr   error
		wantOther bool
		wantCalls int
	}{
		{name: "valid", username: "alice", password: "secret", wantCalls: 1},
		{name: "anonymous", username: AnonymousUser},
		{name: "anonymous with password", username: AnonymousUser, password: "x", checkErr: badPassword, wantErr: ErrInvalidCredentials, wantCalls: 1},
		{name: "wrong password", username: "alice", password: "nope", checkErr: badPassword, wantErr: ErrInvalidCredentials, wantCalls: 1},
		{name: "unknown user", username: "mallory", password: "x", checkErr: unknownUser, wantErr: ErrInvalidCredentials, wantCalls: 1},
		{name: "empty password", username: "alice", wantErr: ErrInvalidCredentials},
		{name: "empty username", password: "secret", wantErr: ErrInvalidCredentials},
		{name: "backend down", username: "bob", password: "x", checkErr: brokenBackend, wantOther: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identities := stash.New[ClientIdentity]()
			checker := &fakeChecker{err: tt.checkErr}
			l := NewLogin(checker, identities, LoginConfig{
				Zone:     "tempZone",
				Lifetime: time.Hour,
				Now:      func() time.Time { return now },
			})

			token, err := l.Login(context.Background(), tt.username, tt.password)
			if checker.calls != tt.wantCalls {
				t.Errorf("CheckCredentials calls = %d, want %d", checker.calls, tt.wantCalls)
			}

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantOther:
				if err == nil || errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Login() error = %v, want a backend failure", err)
				}
				if !irods.IsConnectionError(err) {
					t.Errorf("Login() error = %v, want it to wrap the connection error", err)
				}
			default:
				if err != nil {
					t.Fatalf("Login() error = %v", err)
				}
				id, ok := identities.Find(token)
				if !ok {
					t.Fatal("token not in the handle store")
				}
				want := ClientIdentity{Username: tt.username, Zone: "tempZone", ExpiresAt: now.Add(time.Hour)}
				if id != want {
					t.Errorf("identity = %+v, want %+v", id, want)
				}
				if len(token) != 36 {
					t.Errorf("token = %q, want 36 characters", token)
				}
				return
			}
			if identities.Len() != 0 {
				t.Errorf("store has %d entries after a failed login", identities.Len())
			}
		})
	}
}

func TestLogin_KeepPasswordAndArchive(t *testing.T) {
	archive := openTestArchive(t)
	identities := stash.New[ClientIdentity]()
	l := NewLogin(&fakeChecker{}, identities, LoginConfig{
		Zone:         "tempZone",
		Lifetime:     time.Hour,
		KeepPassword: true,
		Archive:      archive,
	})

	token, err := l.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if id, _ := identities.Find(token); id.Password != "secret" {
		t.Errorf("Password = %q, want it kept for compatibility mode", id.Password)
	}

	restored := stash.New[ClientIdentity]()
	n, err := archive.Restore(context.Background(), restored, time.Now())
	if err != nil || n != 1 {
		t.Fatalf("Restore() = %d, %v, want 1", n, err)
	}
	id, ok := restored.Find(token)
	if !ok {
		t.Fatal("archived token not restored")
	}
	if id.Username != "alice" || id.Password != "" {
		t.Errorf("restored identity = %+v, want alice without a password", id)
	}
}
