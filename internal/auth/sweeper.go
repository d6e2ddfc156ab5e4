// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package auth

import (
	"context"
	"time"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
	"github.com/tomtom215/irods-gateway/internal/stash"
)

// Sweeper removes expired identities from the handle store, and from the
// token archive when one is configured. It implements suture.Service.
type Sweeper struct {
	identities *stash.Store[ClientIdentity]
	archive    *TokenArchive
	interval   time.Duration
	now        func() time.Time
}

// NewSweeper creates a sweeper running every interval. archive may be nil.
func NewSweeper(identities *stash.Store[ClientIdentity], archive *TokenArchive, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{identities: identities, archive: archive, interval: interval, now: time.Now}
}

// Serve sweeps until ctx is canceled.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of identities evicted.
func (s *Sweeper) Sweep(ctx context.Context) int {
	now := s.now()
	removed := s.identities.EraseIf(func(_ string, id ClientIdentity) bool {
		return id.Expired(now)
	})

	metrics.StashEvictions.Add(float64(removed))
	metrics.StashEntries.Set(float64(s.identities.Len()))

	if s.archive != nil {
		if pruned, err := s.archive.Prune(ctx, now); err != nil {
			logging.Warn().Err(err).Msg("Could not prune token archive")
		} else if pruned > 0 {
			logging.Debug().Int("pruned", pruned).Msg("Pruned token archive")
		}
	}

	if removed > 0 {
		logging.Debug().Int("evicted", removed).Int("remaining", s.identities.Len()).Msg("Swept expired identities")
	}
	return removed
}

func (s *Sweeper) String() string {
	return "identity-sweeper"
}
