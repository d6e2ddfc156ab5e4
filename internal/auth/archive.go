// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/stash"
)

// tokenKeyPrefix namespaces archived tokens in BadgerDB.
const tokenKeyPrefix = "token:"

// archivedIdentity is the persisted form of a ClientIdentity. Passwords are
// never written to disk.
type archivedIdentity struct {
	Username  string    `json:"username"`
	Zone      string    `json:"zone,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenArchive persists basic-auth tokens in BadgerDB so they survive a
// restart.
type TokenArchive struct {
	db *badger.DB
}

// OpenTokenArchive opens (or creates) an archive at path. ":memory:" keeps
// the archive in memory.
func OpenTokenArchive(path string) (*TokenArchive, error) {
	opts := badger.DefaultOptions(path)
	if path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open token archive: %w", err)
	}
	return &TokenArchive{db: db}, nil
}

// NewTokenArchive wraps an already open database.
func NewTokenArchive(db *badger.DB) *TokenArchive {
	return &TokenArchive{db: db}
}

// Close closes the underlying database.
func (a *TokenArchive) Close() error {
	return a.db.Close()
}

// Save records token. Entries carry a badger TTL matching their expiry.
func (a *TokenArchive) Save(_ context.Context, token string, id ClientIdentity) error {
	data, err := json.Marshal(archivedIdentity{Username: id.Username, Zone: id.Zone, ExpiresAt: id.ExpiresAt})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return a.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(tokenKeyPrefix+token), data)
		if !id.ExpiresAt.IsZero() {
			ttl := time.Until(id.ExpiresAt)
			if ttl <= 0 {
				return nil
			}
			entry = entry.WithTTL(ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set token: %w", err)
		}
		return nil
	})
}

// Delete removes token. Deleting an unknown token is not an error.
func (a *TokenArchive) Delete(_ context.Context, token string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(tokenKeyPrefix + token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Prune removes every archived token expired at now and returns the count.
func (a *TokenArchive) Prune(_ context.Context, now time.Time) (int, error) {
	var expired [][]byte

	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(tokenKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec archivedIdentity
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				// Unreadable records are pruned as well.
				expired = append(expired, item.KeyCopy(nil))
				continue
			}
			if (ClientIdentity{ExpiresAt: rec.ExpiresAt}).Expired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		for _, key := range expired {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune tokens: %w", err)
	}
	return len(expired), nil
}

// Restore loads every unexpired token into identities and returns the
// number restored.
func (a *TokenArchive) Restore(ctx context.Context, identities *stash.Store[ClientIdentity], now time.Time) (int, error) {
	restored := 0

	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(tokenKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			token := string(item.Key()[len(prefix):])

			var rec archivedIdentity
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("token", logging.SanitizeToken(token)).Msg("Skipping unreadable archived token")
				continue
			}

			id := ClientIdentity{Username: rec.Username, Zone: rec.Zone, ExpiresAt: rec.ExpiresAt}
			if id.Expired(now) {
				continue
			}
			identities.Restore(token, id)
			restored++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("restore tokens: %w", err)
	}
	return restored, nil
}
