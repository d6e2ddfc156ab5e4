// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package services

import (
	"context"

	"github.com/tomtom215/irods-gateway/internal/logging"
)

// ConnectionPool is the lifecycle subset of *irods.Pool.
type ConnectionPool interface {
	Warm(ctx context.Context) error
	Close()
	Size() int
}

// ConnectionPoolService fills the pool on start and closes it on shutdown.
type ConnectionPoolService struct {
	pool ConnectionPool
}

// NewConnectionPoolService wraps pool.
func NewConnectionPoolService(pool ConnectionPool) *ConnectionPoolService {
	return &ConnectionPoolService{pool: pool}
}

// Serve implements suture.Service. A failed warm-up is not fatal.
func (s *ConnectionPoolService) Serve(ctx context.Context) error {
	if err := s.pool.Warm(ctx); err != nil {
		logging.Warn().Err(err).Int("size", s.pool.Size()).Msg("Connection pool warm-up incomplete")
	} else {
		logging.Info().Int("size", s.pool.Size()).Msg("Connection pool ready")
	}

	<-ctx.Done()
	s.pool.Close()
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *ConnectionPoolService) String() string {
	return "connection-pool"
}
