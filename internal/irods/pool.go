// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package irods

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/irods-gateway/internal/logging"
	"github.com/tomtom215/irods-gateway/internal/metrics"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	// Size is the maximum number of connections, idle plus checked out.
	Size int

	// RefreshAfter recycles a connection older than this on return.
	// Zero keeps connections indefinitely.
	RefreshAfter time.Duration

	// MaxUses recycles a connection after this many checkouts.
	// Zero disables the limit.
	MaxUses int
}

// Factory opens a new authenticated connection for the pool.
type Factory func(ctx context.Context) (Conn, error)

type pooled struct {
	conn    Conn
	created time.Time
	uses    int
}

// Pool holds up to Size authenticated connections. Checkout blocks while
// every slot is in use.
type Pool struct {
	cfg     PoolConfig
	factory Factory

	// slots holds one token per connection that may exist.
	slots chan struct{}

	mu     sync.Mutex
	idle   []*pooled
	out    map[Conn]*pooled
	closed bool

	now func() time.Time
}

// NewPool creates a pool. Connections are opened lazily; call Warm to fill
// the pool up front.
func NewPool(factory Factory, cfg PoolConfig) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("connection pool size must be positive, got %d", cfg.Size)
	}

	p := &Pool{
		cfg:     cfg,
		factory: factory,
		slots:   make(chan struct{}, cfg.Size),
		out:     make(map[Conn]*pooled),
		now:     time.Now,
	}
	for i := 0; i < cfg.Size; i++ {
		p.slots <- struct{}{}
	}
	return p, nil
}

// Size returns the configured capacity.
func (p *Pool) Size() int {
	return p.cfg.Size
}

// Warm opens connections until the pool is full. It stops at the first
// failure and returns it.
func (p *Pool) Warm(ctx context.Context) error {
	for i := 0; i < p.cfg.Size; i++ {
		conn, err := p.Checkout(ctx)
		if err != nil {
			return err
		}
		defer p.Return(conn)
	}
	return nil
}

// Checkout takes a connection out of the pool, opening one if no idle
// connection is available. It blocks until a slot frees up or ctx is done.
func (p *Pool) Checkout(ctx context.Context) (Conn, error) {
	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, ConnectionError("checkout", ctx.Err())
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.slots <- struct{}{}
		return nil, ErrPoolClosed
	}

	var pc *pooled
	if n := len(p.idle); n > 0 {
		pc = p.idle[n-1]
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if pc == nil {
		conn, err := p.factory(ctx)
		if err != nil {
			p.slots <- struct{}{}
			return nil, err
		}
		pc = &pooled{conn: conn, created: p.now()}
	}

	pc.uses++

	p.mu.Lock()
	p.out[pc.conn] = pc
	p.updateGauges()
	p.mu.Unlock()

	metrics.PoolCheckouts.Inc()
	return pc.conn, nil
}

// Return puts a healthy connection back. Connections past their refresh
// age or use count are closed instead.
func (p *Pool) Return(conn Conn) {
	p.mu.Lock()
	pc, ok := p.out[conn]
	if !ok {
		p.mu.Unlock()
		logging.Warn().Msg("Connection returned to a pool that does not own it")
		return
	}
	delete(p.out, conn)

	reason := ""
	switch {
	case p.closed:
		reason = "closed"
	case p.cfg.RefreshAfter > 0 && p.now().Sub(pc.created) >= p.cfg.RefreshAfter:
		reason = "refresh"
	case p.cfg.MaxUses > 0 && pc.uses >= p.cfg.MaxUses:
		reason = "refresh"
	default:
		p.idle = append(p.idle, pc)
	}
	p.updateGauges()
	p.mu.Unlock()

	if reason != "" {
		p.close(conn, reason)
	}
	p.slots <- struct{}{}
}

// Discard closes a checked-out connection and frees its slot. Use it for
// connections that failed in a way that makes them unsafe to reuse.
func (p *Pool) Discard(conn Conn) {
	p.mu.Lock()
	_, ok := p.out[conn]
	delete(p.out, conn)
	p.updateGauges()
	p.mu.Unlock()

	p.close(conn, "failed")
	if ok {
		p.slots <- struct{}{}
	}
}

// Close closes idle connections and makes further checkouts fail.
// Checked-out connections are closed when they come back.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.updateGauges()
	p.mu.Unlock()

	for _, pc := range idle {
		p.close(pc.conn, "closed")
	}
}

// Stats reports idle and checked-out counts.
func (p *Pool) Stats() (idle, inUse int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), len(p.out)
}

func (p *Pool) close(conn Conn, reason string) {
	metrics.PoolDiscards.WithLabelValues(reason).Inc()
	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Str("reason", reason).Msg("Error closing backend connection")
	}
}

// updateGauges must be called with mu held.
func (p *Pool) updateGauges() {
	metrics.PoolIdle.Set(float64(len(p.idle)))
	metrics.PoolInUse.Set(float64(len(p.out)))
}
